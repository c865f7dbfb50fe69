package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the logger shared by every nodegraph command. Load
// warnings are reported at warn level and per-document counts at debug.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
	})
}

// timer measures one command run, such as a render of all requested
// formats.
type timer struct {
	logger *log.Logger
	start  time.Time
}

func startTimer(l *log.Logger) *timer {
	return &timer{logger: l, start: time.Now()}
}

// done logs msg at info level with the key-value pairs and an elapsed
// field rounded to the millisecond.
func (t *timer) done(msg string, kv ...any) {
	kv = append(kv, "elapsed", time.Since(t.start).Round(time.Millisecond))
	t.logger.Info(msg, kv...)
}

type loggerKey struct{}

// withLogger attaches l to ctx for the command's run functions.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the command logger, or log.Default() when a
// command runs without the root's pre-run.
func loggerFromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
			return l
		}
	}
	return log.Default()
}
