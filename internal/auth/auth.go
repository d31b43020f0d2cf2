// Package auth resolves the actor recorded on movements: users log in with
// email and password and receive an HS256 session token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"machine-ledger-backend/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrNoSecret           = errors.New("auth enabled without a jwt secret")
)

const issuer = "machine-ledger"

// Claims are the session token claims. Subject is the user's email.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator checks passwords and issues and verifies session tokens.
type Authenticator struct {
	users  map[string]User
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates an Authenticator over users. A nil clock uses time.Now.
func New(cfg *config.AuthConfig, users []User, now func() time.Time) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	if now == nil {
		now = time.Now
	}
	a := &Authenticator{
		users:  make(map[string]User, len(users)),
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		now:    now,
	}
	for _, u := range users {
		a.users[normalizeEmail(u.Email)] = u
	}
	return a, nil
}

// Login checks the password of email and returns a signed token with its
// expiry.
func (a *Authenticator) Login(email, password string) (string, time.Time, User, error) {
	u, ok := a.users[normalizeEmail(email)]
	if !ok {
		return "", time.Time{}, User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, User{}, ErrInvalidCredentials
	}

	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, User{}, fmt.Errorf("could not sign token: %w", err)
	}
	return token, exp, u, nil
}

// Verify parses a token signed by this Authenticator.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
