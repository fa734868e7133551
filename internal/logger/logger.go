package logger

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
)

const serviceName = "etgcatalog"

type Options struct {
	Level     string
	Format    string // text|json
	AddSource bool
	Env       string
	// nil means stdout
	Output io.Writer
}

// New returns the process logger. Every record carries the service name and,
// when set, the config profile; durations are logged as seconds.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	h := newHandler(out, opts.Format, &slog.HandlerOptions{
		Level:       parseLevel(opts.Level),
		AddSource:   opts.AddSource,
		ReplaceAttr: durationSeconds,
	})

	attrs := []slog.Attr{slog.String("service", serviceName)}
	if env := strings.TrimSpace(opts.Env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	return slog.New(h.WithAttrs(attrs))
}

func newHandler(out io.Writer, format string, hopts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(out, hopts)
	}
	return slog.NewTextHandler(out, hopts)
}

// durationSeconds rewrites time.Duration values as seconds rounded to milliseconds,
// matching the duration_seconds field of the API response.
func durationSeconds(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindDuration {
		return a
	}
	s := a.Value.Duration().Seconds()
	return slog.Float64(a.Key, math.Round(s*1000)/1000)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err == nil {
		return lvl
	}
	if strings.EqualFold(strings.TrimSpace(s), "warning") {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
