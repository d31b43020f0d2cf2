package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"machine-ledger-backend/config"
)

const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
	googleTokenURI   = "https://oauth2.googleapis.com/token"
)

// ErrNoSpreadsheet is returned when the sheets backend has no spreadsheet id.
var ErrNoSpreadsheet = errors.New("spreadsheet id is not configured")

// sheetsStore implements Store on the Google Sheets values API.
type sheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	timeout       time.Duration
}

// NewSheetsStore creates a Store for the spreadsheet in cfg. Extra client
// options are applied after the credential options.
func NewSheetsStore(ctx context.Context, cfg *config.SheetsConfig, extra ...option.ClientOption) (Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}

	opts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &sheetsStore{svc: svc, spreadsheetID: cfg.SpreadsheetID, timeout: cfg.Timeout}, nil
}

// credentialOptions picks, in order: an inline JSON blob, a client email and
// private key pair, a credentials file, or application default credentials.
func credentialOptions(cfg *config.SheetsConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}, nil
	case cfg.ClientEmail != "" && cfg.PrivateKey != "":
		blob, err := serviceAccountJSON(cfg.ClientEmail, cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithCredentialsJSON(blob)}, nil
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	}
	return nil, nil
}

func serviceAccountJSON(email, privateKey string) ([]byte, error) {
	// Keys pasted into env files usually carry literal \n sequences.
	key := strings.ReplaceAll(privateKey, `\n`, "\n")
	blob, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": email,
		"private_key":  key,
		"token_uri":    googleTokenURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account credentials: %w", err)
	}
	return blob, nil
}

func (s *sheetsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *sheetsStore) Read(ctx context.Context, r Range) ([][]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, r.A1()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.A1(), err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		rows[i] = row
	}
	return rows, nil
}

func (s *sheetsStore) Append(ctx context.Context, r Range, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	vr := &sheets.ValueRange{Values: toValues(rows)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, r.A1(), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), r.A1(), err)
	}
	return nil
}

func (s *sheetsStore) BatchWrite(ctx context.Context, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: valueInputOption}
	for _, w := range writes {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  w.A1(),
			Values: [][]interface{}{{w.Value}},
		})
	}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write %d cells: %w", len(writes), err)
	}
	return nil
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return values
}
