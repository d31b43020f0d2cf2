package logging

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// ServiceID is stamped on every log entry.
const ServiceID = "machine-ledger"

// LevelNone disables logging entirely.
const LevelNone = "none"

var Formatter = &formatter.Formatter{
	TimestampFormat: "2006-01-02 15:04:05",
	HideKeys:        true,
	FieldsOrder:     []string{"req-id", "actor", "service", "subsystem"},
	CallerFirst:     true,
	CustomCallerFormatter: func(f *runtime.Frame) string {
		return fmt.Sprintf(" [%s %s():%d]", path.Base(f.File), f.Function, f.Line)
	},
}

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(Formatter)
	return l
}

// Logger returns the process-wide logger every subsystem writes through.
func Logger() *logrus.Logger {
	return root
}

// Setup applies the configured level to the shared logger. An invalid level
// keeps the current one.
func Setup(level string) {
	if level == LevelNone {
		root.SetOutput(io.Discard)
		return
	}
	if level == "" {
		root.Warnf("log level not set, keeping '%s'", root.GetLevel())
		return
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		root.Warnf("invalid log level '%s', keeping '%s'", level, root.GetLevel())
		return
	}
	root.SetLevel(lvl)
	root.Infof("log level set to '%s'", lvl)
}

// Subsystem returns an entry tagged with the service and subsystem names.
func Subsystem(name string) *logrus.Entry {
	return root.WithFields(logrus.Fields{
		"service":   ServiceID,
		"subsystem": name,
	})
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

// ContextWithRequestID stores a request id for FromContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithActor stores the authenticated user name for FromContext.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// FromContext decorates logger with the request id and actor carried by ctx.
func FromContext(ctx context.Context, logger *logrus.Entry) *logrus.Entry {
	fields := logrus.Fields{}
	if id := RequestID(ctx); id != "" {
		fields["req-id"] = id
	}
	if actor, _ := ctx.Value(actorKey).(string); actor != "" {
		fields["actor"] = actor
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.WithFields(fields)
}
