package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/arloliu/mmv/config"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/writer"
)

const defaultInterval = time.Second

func newWriteCmd(g *globals) *cobra.Command {
	var (
		defPath string
		keep    bool
	)

	cmd := &cobra.Command{
		Use:   "write --config <definition.yaml>",
		Short: "Create an MMV file from a YAML definition and update it until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := config.Load(defPath)
			if err != nil {
				return errors.Wrap(err, "load definition")
			}

			w, err := startWriter(g, def)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runErr := feed(ctx, newFeeder(w), def.Interval)
			if err := w.Stop(!keep); err != nil && runErr == nil {
				runErr = errors.Wrap(err, "stop writer")
			}

			return runErr
		},
	}
	cmd.Flags().StringVar(&defPath, "config", "", "registry definition file")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the file in place on exit")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func startWriter(g *globals, def *config.Definition) (*writer.Writer, error) {
	reg, err := def.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build registry")
	}

	cfg := config.FromEnv().Merge(def.Config).Merge(config.Config{TmpDir: g.tmpDir})
	w, err := writer.Start(reg, writer.WithConfig(cfg), writer.WithLogger(g.logger))

	return w, errors.Wrapf(err, "start %s", def.Name)
}

func feed(ctx context.Context, f *feeder, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultInterval
	}
	if err := f.begin(); err != nil {
		return err
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return f.end()
		case now := <-t.C:
			if err := f.tick(now); err != nil {
				return err
			}
		}
	}
}

// feeder drives synthetic updates: counters grow by one per tick, instant
// values carry the tick number, and discrete strings the tick time.
type feeder struct {
	w     *writer.Writer
	ticks uint64
}

func newFeeder(w *writer.Writer) *feeder {
	return &feeder{w: w}
}

func (f *feeder) semantics(h writer.Handle) format.Semantics {
	m, _ := f.w.Registry().Lookup(h.Metric())

	return m.Semantics
}

// begin opens an interval on every elapsed-time value.
func (f *feeder) begin() error {
	for _, h := range f.w.Handles() {
		if h.Type() == format.TypeElapsed {
			if err := h.IntervalStart(); err != nil {
				return errors.Wrapf(err, "start interval %s", h.Metric())
			}
		}
	}

	return nil
}

func (f *feeder) end() error {
	for _, h := range f.w.Handles() {
		if h.Type() == format.TypeElapsed {
			if err := h.IntervalEnd(); err != nil {
				return errors.Wrapf(err, "end interval %s", h.Metric())
			}
		}
	}

	return nil
}

func (f *feeder) tick(now time.Time) error {
	f.ticks++
	for _, h := range f.w.Handles() {
		if err := f.update(h, now); err != nil {
			return errors.Wrapf(err, "update %s", h.Metric())
		}
	}

	return nil
}

func (f *feeder) update(h writer.Handle, now time.Time) error {
	switch h.Type() {
	case format.TypeElapsed:
		return nil
	case format.TypeString:
		return h.SetString(now.Format(time.RFC3339))
	case format.TypeFloat, format.TypeDouble:
		if f.semantics(h) == format.SemCounter {
			return h.Add(1)
		}

		return h.SetFloat64(float64(f.ticks))
	}

	if f.semantics(h) == format.SemCounter {
		return h.Inc(1)
	}
	if h.Type() == format.TypeI32 || h.Type() == format.TypeI64 {
		return h.SetInt64(int64(f.ticks)) //nolint:gosec
	}

	return h.SetUint64(f.ticks)
}
