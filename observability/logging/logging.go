package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup configures structured JSON logging and returns the logger for richer
// logging within the ledger. All log lines include the service name and
// environment when provided.
func Setup(service, env string) *slog.Logger {
	return New(os.Stdout, service, env)
}

// New builds the ledger logger writing to the supplied sink.
func New(w io.Writer, service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	args := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		args = append(args, slog.String("env", env))
	}
	return slog.New(handler).With(args...)
}
