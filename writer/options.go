package writer

import (
	"log/slog"
	"os"
	"time"

	"github.com/arloliu/mmv/config"
	"github.com/arloliu/mmv/internal/options"
)

// Option configures a Writer.
type Option = options.Option[*Writer]

// WithPath places the file at path instead of the MMV directory.
func WithPath(path string) Option {
	return options.NoError(func(w *Writer) {
		w.path = path
	})
}

// WithConfig sets the configuration used to resolve the file path. It
// defaults to config.FromEnv.
func WithConfig(cfg config.Config) Option {
	return options.NoError(func(w *Writer) {
		w.cfg = cfg
	})
}

// WithLogger sets the logger for lifecycle events. It defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	})
}

// WithPerm sets the permission bits of a newly created file.
func WithPerm(perm os.FileMode) Option {
	return options.NoError(func(w *Writer) {
		w.perm = perm
	})
}

// WithClock replaces the wall clock used for generations and elapsed intervals.
func WithClock(now func() time.Time) Option {
	return options.NoError(func(w *Writer) {
		if now != nil {
			w.now = now
		}
	})
}
