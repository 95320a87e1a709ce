package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Log is the process-wide logger, also installed as slog's default.
var Log *slog.Logger

type Options struct {
	// Development switches to human-readable text with debug records.
	Development bool
	// Environment tags Sentry events, e.g. "production".
	Environment string
	// SentryDSN enables forwarding of error records when set.
	SentryDSN string
}

// Init builds the portal logger and makes it the default. Production logs are
// JSON at info level. When Sentry cannot start, logging continues without it.
func Init(opts Options) {
	handler := consoleHandler(opts.Development)

	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			Environment:      opts.Environment,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			slog.New(handler).Warn("sentry disabled", "error", err)
		} else {
			handler = slogmulti.Fanout(handler, slogsentry.Option{
				Level:     slog.LevelError,
				AddSource: true,
			}.NewSentryHandler())
		}
	}

	Log = slog.New(handler).With("service", "resquick")
	slog.SetDefault(Log)
}

func consoleHandler(development bool) slog.Handler {
	if development {
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}

// Flush waits briefly for queued Sentry events.
func Flush() {
	sentry.Flush(2 * time.Second)
}
