package reader

import (
	"log/slog"
	"time"

	"github.com/arloliu/mmv/internal/options"
)

const (
	// DefaultMaxRetries bounds how often a scan is retried while the writer
	// is mid-update.
	DefaultMaxRetries = 8
	// DefaultBackoff is the pause before the first retry. It doubles on
	// every further attempt up to maxBackoff.
	DefaultBackoff = 100 * time.Microsecond

	maxBackoff = 50 * time.Millisecond
)

// Option configures a Reader.
type Option = options.Option[*Reader]

// WithMaxRetries sets how many times a scan is retried after observing an
// in-progress or changed generation. Zero disables retries.
func WithMaxRetries(n int) Option {
	return options.NoError(func(r *Reader) {
		if n >= 0 {
			r.maxRetries = n
		}
	})
}

// WithBackoff sets the initial pause between scan attempts.
func WithBackoff(d time.Duration) Option {
	return options.NoError(func(r *Reader) {
		if d >= 0 {
			r.backoff = d
		}
	})
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	})
}

// WithClock replaces the wall clock used to evaluate open elapsed intervals.
func WithClock(now func() time.Time) Option {
	return options.NoError(func(r *Reader) {
		if now != nil {
			r.now = now
		}
	})
}
