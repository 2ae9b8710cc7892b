// Package writer materializes a registry as a shared memory mapped file and
// updates its values in place.
//
// The file is created at its exact final size, encoded in one pass and then
// published by setting the second generation word equal to the first. Value
// updates are single atomic stores that never touch the generation words;
// structural changes (AddInstance) bump the first generation, rewrite the
// file and republish.
package writer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/arloliu/mmv/config"
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/internal/hash"
	"github.com/arloliu/mmv/internal/mmap"
	"github.com/arloliu/mmv/internal/options"
	"github.com/arloliu/mmv/internal/pool"
	"github.com/arloliu/mmv/registry"
	"github.com/arloliu/mmv/section"
)

// Writer owns one mapped MMV file.
//
// Handles may be used concurrently from many goroutines. AddInstance and
// Stop wait for in-flight updates to finish.
type Writer struct {
	mu      sync.RWMutex
	reg     *registry.Registry
	layout  *registry.Layout
	region  *mmap.Region
	engine  endian.EndianEngine
	slots   *hash.Index
	gen     uint64
	stopped bool

	path   string
	cfg    config.Config
	perm   os.FileMode
	logger *slog.Logger
	now    func() time.Time
}

// Start seals reg, creates its file and publishes it.
//
// Any I/O failure removes the partially created file and is returned
// wrapped; registry validation errors are returned unchanged.
func Start(reg *registry.Registry, opts ...Option) (*Writer, error) {
	w := &Writer{
		reg:    reg,
		cfg:    config.FromEnv(),
		perm:   0o644,
		logger: slog.Default(),
		now:    time.Now,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	layout, err := reg.Layout()
	if err != nil {
		return nil, err
	}

	if w.path == "" {
		if err := w.cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("start %s: %w", reg.Name(), err)
		}
		w.path = w.cfg.Path(reg.Name())
	}

	// an overwritten file must not republish its predecessor's generation
	w.gen = previousGeneration(w.path)

	region, err := mmap.Create(w.path, int(layout.Size), w.perm) //nolint:gosec
	if err != nil {
		_ = os.Remove(w.path)
		return nil, fmt.Errorf("start %s: %w", reg.Name(), err)
	}
	w.region, w.layout, w.engine = region, layout, layout.Engine

	w.gen = w.nextGeneration()
	if err := layout.Encode(region.Bytes(), w.gen, 0); err != nil {
		_ = region.Close()
		_ = os.Remove(w.path)

		return nil, fmt.Errorf("start %s: %w", reg.Name(), err)
	}
	w.endUpdate()
	w.index()

	w.logger.Info("mmv writer started",
		"path", w.path,
		"size", layout.Size,
		"version", layout.Version,
		"metrics", reg.MetricCount(),
		"values", len(layout.Slots),
		"generation", w.gen,
	)

	return w, nil
}

// Path returns the path of the mapped file.
func (w *Writer) Path() string {
	return w.path
}

// Registry returns the registry the file was built from.
func (w *Writer) Registry() *registry.Registry {
	return w.reg
}

// Generation returns the currently published generation.
func (w *Writer) Generation() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.gen
}

// Layout returns the current file layout. It changes after AddInstance.
func (w *Writer) Layout() *registry.Layout {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.layout
}

// Sync flushes the mapping to the backing file.
func (w *Writer) Sync() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return errs.ErrWriterStopped
	}

	return w.region.Sync()
}

// Stop unmaps the file and, if unlink is set, removes it. Calling Stop again
// is harmless.
func (w *Writer) Stop(unlink bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	first := !w.stopped
	w.stopped = true

	err := w.region.Close()
	if unlink {
		if rmErr := os.Remove(w.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = fmt.Errorf("remove %s: %w", w.path, rmErr)
		}
	}
	if first {
		w.logger.Info("mmv writer stopped", "path", w.path, "unlinked", unlink)
	}

	return err
}

// Lookup resolves the value slot of metric and instance. instance must be
// empty for metrics without an instance domain.
func (w *Writer) Lookup(metric, instance string) (Handle, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return Handle{}, errs.ErrWriterStopped
	}
	if i, ok := w.slots.Get(slotName(metric, instance)); ok {
		return w.handle(i), nil
	}
	if _, ok := w.reg.Lookup(metric); !ok {
		return Handle{}, fmt.Errorf("%w: %q", errs.ErrMetricNotFound, metric)
	}

	return Handle{}, fmt.Errorf("%w: %q of %q", errs.ErrInstanceNotFound, instance, metric)
}

// LookupItem resolves a slot by item number and internal instance id. The
// instance id is ignored for metrics without an instance domain.
func (w *Writer) LookupItem(item uint32, internal int32) (Handle, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return Handle{}, errs.ErrWriterStopped
	}
	found := false
	for i, s := range w.layout.Slots {
		if s.Item != item {
			continue
		}
		found = true
		if s.Singular || s.Internal == internal {
			return w.handle(i), nil
		}
	}
	if !found {
		return Handle{}, fmt.Errorf("%w: item %d", errs.ErrMetricNotFound, item)
	}

	return Handle{}, fmt.Errorf("%w: item %d instance %d", errs.ErrInstanceNotFound, item, internal)
}

// Handles returns a handle for every value slot, in slot order.
func (w *Writer) Handles() []Handle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	hs := make([]Handle, len(w.layout.Slots))
	for i := range hs {
		hs[i] = w.handle(i)
	}

	return hs
}

// AddInstance adds an instance to an existing instance domain while the file
// is live. The file grows to the new layout; every existing value and every
// handle issued before the call is preserved.
//
// Validation errors leave the file untouched. An I/O error stops the writer.
func (w *Writer) AddInstance(serial uint32, internal int32, external string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errs.ErrWriterStopped
	}

	saved := w.saveValues()
	if _, err := w.reg.Extend(serial, internal, external); err != nil {
		return err
	}
	layout, err := w.reg.Layout()
	if err != nil {
		return err
	}

	buf := pool.GetImageBuffer()
	defer pool.PutImageBuffer(buf)
	buf.SetLength(int(layout.Size)) //nolint:gosec
	img := buf.Bytes()

	prev := w.gen
	w.beginUpdate()
	if err := layout.Encode(img, w.gen, prev); err != nil {
		return w.fail(err)
	}
	for i, v := range saved {
		if err := v.restore(img, layout.Slots[i], w.engine); err != nil {
			return w.fail(err)
		}
	}

	if err := w.region.Resize(int(layout.Size)); err != nil { //nolint:gosec
		return w.fail(err)
	}
	data := w.region.Bytes()
	copy(data[:section.OffG1], img[:section.OffG1])
	copy(data[section.OffG2+8:], img[section.OffG2+8:])

	w.layout = layout
	w.index()
	w.endUpdate()

	w.logger.Info("mmv instance added",
		"path", w.path,
		"indom", serial,
		"instance", external,
		"size", layout.Size,
		"generation", w.gen,
	)

	return nil
}

func (w *Writer) fail(err error) error {
	w.stopped = true
	_ = w.region.Close()
	w.logger.Error("mmv writer failed", "path", w.path, "error", err)

	return fmt.Errorf("rewrite %s: %w", w.path, err)
}

// nextGeneration returns a generation strictly greater than any published
// before at this path, seeded from wall clock seconds.
func (w *Writer) nextGeneration() uint64 {
	var g uint64
	if s := w.now().Unix(); s > 0 {
		g = uint64(s)
	}
	if g <= w.gen {
		g = w.gen + 1
	}

	return g
}

func (w *Writer) beginUpdate() {
	w.gen = w.nextGeneration()
	mmap.Store64(w.region.Bytes(), section.OffG1, w.engine, w.gen)
}

func (w *Writer) endUpdate() {
	mmap.Store64(w.region.Bytes(), section.OffG2, w.engine, w.gen)
}

func (w *Writer) index() {
	w.slots = hash.NewIndex(len(w.layout.Slots))
	for i, s := range w.layout.Slots {
		w.slots.Add(slotName(s.Metric, s.Instance), i)
	}
}

func (w *Writer) handle(i int) Handle {
	s := w.layout.Slots[i]

	return Handle{w: w, slot: i, metric: s.Metric, instance: s.Instance, typ: s.Type}
}

func slotName(metric, instance string) string {
	if instance == "" {
		return metric
	}

	return metric + "[" + instance + "]"
}

type savedValue struct {
	word  uint64
	extra uint64
	text  string
}

func (w *Writer) saveValues() []savedValue {
	data := w.region.Bytes()
	saved := make([]savedValue, len(w.layout.Slots))
	for i, s := range w.layout.Slots {
		v := &saved[i]
		v.word = mmap.Load64(data, s.Offset+section.OffValueWord, w.engine)
		if s.StringOffset != 0 {
			v.text = section.CString(data[s.StringOffset : s.StringOffset+section.StringSize])
		} else {
			v.extra = mmap.Load64(data, s.Offset+section.OffValueExtra, w.engine)
		}
	}

	return saved
}

// restore writes a saved value into the slot s of an image that is not yet
// visible to readers.
func (v savedValue) restore(img []byte, s registry.Slot, engine endian.EndianEngine) error {
	engine.PutUint64(img[s.Offset+section.OffValueWord:], v.word)
	if s.StringOffset != 0 {
		return section.PutString(img[s.StringOffset:s.StringOffset+section.StringSize], v.text)
	}
	engine.PutUint64(img[s.Offset+section.OffValueExtra:], v.extra)

	return nil
}

// previousGeneration returns the newer generation word of an MMV file
// already at path, or 0 when there is none.
func previousGeneration(path string) uint64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	hdr := make([]byte, section.HeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return 0
	}
	engine, err := section.DetectEngine(hdr)
	if err != nil {
		return 0
	}

	return max(engine.Uint64(hdr[section.OffG1:]), engine.Uint64(hdr[section.OffG2:]))
}
