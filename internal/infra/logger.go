// README: Structured JSON logger shared by every module.
package infra

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewLogger builds a JSON slog logger tagged with the service name and environment.
// A nil output writes to stdout.
func NewLogger(service, environment, level string, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(output, opts)).With(
		"service", service,
		"environment", environment,
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
