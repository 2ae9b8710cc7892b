// Package exporter republishes the values of an MMV file through Prometheus
// and OpenTelemetry.
//
// Both exporters read through a reader.Reader. Every collection refreshes
// the reader first; a collection that races with a structural rewrite is
// skipped rather than reporting values against stale descriptors. When the
// file is removed or replaced, the exporter follows the path to the new file
// and reports nothing while no file is there.
package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/options"
	"github.com/arloliu/mmv/reader"
)

// InstanceLabel is the label or attribute carrying the instance name of
// metrics with an instance domain.
const InstanceLabel = "instance"

type settings struct {
	namespace string
	registry  string
	logger    *slog.Logger
}

// Option configures an exporter.
type Option = options.Option[*settings]

// WithNamespace sets the leading name component. It defaults to "mmv".
func WithNamespace(ns string) Option {
	return options.NoError(func(s *settings) {
		s.namespace = ns
	})
}

// WithRegistryName sets the component naming the MMV file. It defaults to
// the base name of the reader's path. Files flagged format.FlagNoPrefix get
// no such component.
func WithRegistryName(name string) Option {
	return options.NoError(func(s *settings) {
		s.registry = name
	})
}

// WithLogger sets the logger for skipped collections and reopened files. It
// defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	})
}

func newSettings(r *reader.Reader, opts []Option) (*settings, error) {
	s := &settings{namespace: "mmv", logger: slog.Default()}
	if r.Path() != "" {
		s.registry = filepath.Base(r.Path())
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}
	if r.Header().Flags.Has(format.FlagNoPrefix) {
		s.registry = ""
	}

	return s, nil
}

// sample is one exported observation.
type sample struct {
	metric   reader.Metric
	instance string
	singular bool
	value    float64
}

// source is the reader an exporter collects from. When the file behind it is
// removed or replaced, the next collection opens the path again; until a new
// file appears nothing is collected.
type source struct {
	mu     sync.Mutex
	r      *reader.Reader
	owned  bool   // r was opened by the source and must be closed by it
	epoch  uint64 // bumped whenever r is replaced
	logger *slog.Logger
}

func newSource(r *reader.Reader, logger *slog.Logger) *source {
	return &source{r: r, logger: logger}
}

func (src *source) reader() *reader.Reader {
	src.mu.Lock()
	defer src.mu.Unlock()

	return src.r
}

// reopen replaces a reader whose mapping is gone with one over the file now
// at the same path.
func (src *source) reopen() error {
	path := src.r.Path()
	if path == "" {
		return errs.ErrMappingGone
	}
	r, err := reader.Open(path, reader.WithLogger(src.logger))
	if err != nil {
		return fmt.Errorf("%w: reopen %s: %w", errs.ErrMappingGone, path, err)
	}
	if src.owned {
		_ = src.r.Close()
	}
	src.r, src.owned = r, true
	src.epoch++
	src.logger.Info("mmv file reopened", "path", path, "generation", r.Generation())

	return nil
}

// collect refreshes the reader and reads every numeric value. String metrics
// have no numeric representation and are skipped. The returned epoch changes
// whenever the samples come from a different file than before.
func (src *source) collect() ([]sample, uint64, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	_, err := src.r.Refresh()
	if errors.Is(err, errs.ErrMappingGone) {
		err = src.reopen()
	}
	if err != nil {
		return nil, src.epoch, err
	}

	r := src.r
	values := r.Values()
	out := make([]sample, 0, len(values))
	for _, v := range values {
		if v.Type == format.TypeString {
			continue
		}
		m, ok := r.Metric(v.Metric)
		if !ok {
			continue
		}
		s, err := r.Value(v)
		if err != nil {
			if errors.Is(err, errs.ErrGenerationChanged) {
				return nil, src.epoch, err
			}
			src.logger.Debug("mmv value skipped", "metric", v.Metric, "instance", v.Instance, "error", err)

			continue
		}
		out = append(out, sample{metric: m, instance: v.Instance, singular: v.Singular, value: s.Float64()})
	}

	return out, src.epoch, nil
}

// close releases a reader the source opened itself. The reader handed to the
// exporter stays with its owner.
func (src *source) close() error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if !src.owned {
		return nil
	}
	src.owned = false

	return src.r.Close()
}

// sanitize maps name onto the character set allowed by keep, replacing
// everything else with '_'.
func sanitize(name string, keep func(rune) bool) string {
	return strings.Map(func(c rune) rune {
		if keep(c) {
			return c
		}

		return '_'
	}, name)
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func help(m reader.Metric) string {
	switch {
	case m.HelpText != nil && *m.HelpText != "":
		return *m.HelpText
	case m.ShortText != nil && *m.ShortText != "":
		return *m.ShortText
	default:
		return m.Name
	}
}
