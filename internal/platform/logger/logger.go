package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log pipelines
// can index the audit fields without parsing.
func New(service, version string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		"service", service,
		"version", version,
	)
}
