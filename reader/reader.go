// Package reader maps MMV files read-only and decodes them under the
// generation protocol.
//
// A scan is only accepted when both generation words are equal before and
// after decoding the structure. Scans observing a writer mid-update are
// retried a bounded number of times. After a successful scan the first
// generation word is cached; a later mismatch means the structure was
// rewritten in place and the descriptors must be scanned again.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/mmap"
	"github.com/arloliu/mmv/internal/options"
	"github.com/arloliu/mmv/internal/proc"
	"github.com/arloliu/mmv/section"
)

// Reader is a consistent view over one MMV file. It is safe for concurrent use.
type Reader struct {
	mu     sync.Mutex
	region *mmap.Region // nil for in-memory images
	data   []byte
	path   string
	view   *view
	closed bool

	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func newReader(opts []Option) (*Reader, error) {
	r := &Reader{
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		logger:     slog.Default(),
		now:        time.Now,
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

// Open maps path read-only and scans it.
func Open(path string, opts ...Option) (*Reader, error) {
	r, err := newReader(opts)
	if err != nil {
		return nil, err
	}

	region, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	r.region, r.data, r.path = region, region.Bytes(), path

	if err := r.Scan(); err != nil {
		_ = region.Close()
		return nil, err
	}

	return r, nil
}

// FromBytes scans an in-memory image, such as a snapshot. The reader keeps
// data; the caller must not modify it afterwards.
func FromBytes(data []byte, opts ...Option) (*Reader, error) {
	r, err := newReader(opts)
	if err != nil {
		return nil, err
	}
	r.data = data

	if err := r.Scan(); err != nil {
		return nil, err
	}

	return r, nil
}

// Scan decodes the file structure, retrying while the writer is mid-update.
// It returns an error wrapping errs.ErrWriteInProgress once the retries are
// exhausted.
func (r *Reader) Scan() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.scanLocked()
}

func (r *Reader) scanLocked() error {
	if r.closed {
		return errs.ErrReaderClosed
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.sleep(attempt)
		}
		if err := r.remapLocked(); err != nil {
			return err
		}

		v, err := scanOnce(r.data)
		if err == nil {
			r.view = v
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		r.logger.Debug("mmv scan retry", "path", r.path, "attempt", attempt+1, "error", err)
	}

	if errors.Is(lastErr, errs.ErrWriteInProgress) {
		return fmt.Errorf("scan gave up after %d retries: %w", r.maxRetries, lastErr)
	}

	return fmt.Errorf("scan gave up after %d retries: %w: %w", r.maxRetries, errs.ErrWriteInProgress, lastErr)
}

// sleep pauses before retry attempt n (1-based), doubling the pause on
// every attempt.
func (r *Reader) sleep(n int) {
	pause := r.backoff
	for i := 1; i < n && pause < maxBackoff; i++ {
		pause *= 2
	}
	time.Sleep(min(pause, maxBackoff))
}

func retryable(err error) bool {
	return errors.Is(err, errs.ErrWriteInProgress) || errors.Is(err, errs.ErrGenerationChanged)
}

// remapLocked follows the backing file when the writer resized it.
func (r *Reader) remapLocked() error {
	if r.region == nil {
		return nil
	}
	if _, err := r.region.Remap(); err != nil {
		return err
	}
	r.data = r.region.Bytes()

	return nil
}

// Stale reports whether the structure changed since the last successful scan.
func (r *Reader) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.staleLocked()
}

func (r *Reader) staleLocked() bool {
	if r.closed || r.view == nil {
		return true
	}
	if r.region != nil {
		size, err := r.region.FileSize()
		if err != nil || size != int64(len(r.data)) {
			return true
		}
	}
	g1, _ := generation(r.data, r.view.engine)

	return g1 != r.view.header.G1
}

// Refresh rescans the structure if it changed since the last scan and
// reports whether it did. It returns errs.ErrMappingGone when the file was
// removed or replaced by a different file; such a reader should be closed
// and the path opened again.
func (r *Reader) Refresh() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, errs.ErrReaderClosed
	}
	if r.region != nil && r.region.Detached() {
		return false, fmt.Errorf("%w: %s", errs.ErrMappingGone, r.path)
	}
	if !r.staleLocked() {
		return false, nil
	}
	prev := r.view.header.G1
	if err := r.scanLocked(); err != nil {
		return false, err
	}
	r.logger.Debug("mmv rescanned", "path", r.path, "from", prev, "to", r.view.header.G1)

	return true, nil
}

// Close unmaps the file. Subsequent calls return errs.ErrReaderClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil
	if r.region != nil {
		return r.region.Close()
	}

	return nil
}

// current returns the last view or an error if the reader is closed.
func (r *Reader) current() (*view, error) {
	if r.closed {
		return nil, errs.ErrReaderClosed
	}

	return r.view, nil
}

// Path returns the file the reader was opened on, empty for FromBytes.
func (r *Reader) Path() string {
	return r.path
}

// Header returns the header of the last scan.
func (r *Reader) Header() section.Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.header
}

// Engine returns the byte order of the file.
func (r *Reader) Engine() endian.EndianEngine {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.engine
}

// Generation returns the generation cached by the last scan.
func (r *Reader) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.header.G1
}

// Size returns the number of mapped bytes.
func (r *Reader) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.data)
}

// Toc returns the table of contents of the last scan.
func (r *Reader) Toc() []section.TocEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.toc
}

// Metrics returns every metric descriptor in file order.
func (r *Reader) Metrics() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.metrics
}

// Indoms returns every instance domain with its instances.
func (r *Reader) Indoms() []Indom {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.indoms
}

// Labels returns every label record in file order.
func (r *Reader) Labels() []Label {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.labels
}

// Values returns every value slot in file order.
func (r *Reader) Values() []Value {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.values
}

// Metric returns the descriptor of the named metric.
func (r *Reader) Metric(name string) (Metric, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.view.names.Get(name)
	if !ok {
		return Metric{}, false
	}

	return r.view.metrics[i], true
}

// Indom returns the instance domain with the given serial.
func (r *Reader) Indom(serial uint32) (Indom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.view.indoms {
		if d.Serial == serial {
			return d, true
		}
	}

	return Indom{}, false
}

// Process returns the pid recorded by the writer.
func (r *Reader) Process() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.view.header.Process
}

// WriterAlive reports whether the writer of a process scoped file is still
// running. Files without format.FlagProcess are not tied to a process and
// always report true.
func (r *Reader) WriterAlive(ctx context.Context) bool {
	r.mu.Lock()
	h := r.view.header
	r.mu.Unlock()

	if !h.Flags.Has(format.FlagProcess) {
		return true
	}

	return proc.Alive(ctx, h.Process)
}

// WriterName returns the executable name of the writer process, or an empty
// string when it is unknown.
func (r *Reader) WriterName(ctx context.Context) string {
	return proc.Name(ctx, r.Process())
}

// Value reads the slot described by v.
//
// It returns errs.ErrGenerationChanged when the structure was rewritten since
// the scan that produced v and errs.ErrOffsetOutOfRange when v lies outside
// the mapping.
func (r *Reader) Value(v Value) (Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view, err := r.current()
	if err != nil {
		return Sample{}, err
	}

	return r.readLocked(view, v)
}

// ReadValue looks up and reads the slot of metric and instance. instance is
// empty for metrics without an instance domain.
func (r *Reader) ReadValue(metric, instance string) (Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view, err := r.current()
	if err != nil {
		return Sample{}, err
	}
	i, ok := view.slots.Get(slotName(metric, instance))
	if !ok {
		if _, ok := view.names.Get(metric); !ok {
			return Sample{}, fmt.Errorf("%w: %q", errs.ErrMetricNotFound, metric)
		}

		return Sample{}, fmt.Errorf("%w: %q of %q", errs.ErrInstanceNotFound, instance, metric)
	}

	return r.readLocked(view, view.values[i])
}

func (r *Reader) readLocked(view *view, v Value) (Sample, error) {
	if r.staleLocked() {
		return Sample{}, errs.ErrGenerationChanged
	}
	if v.Offset < section.HeaderSize || !section.InBounds(v.Offset, section.ValueSize, uint64(len(r.data))) {
		return Sample{}, fmt.Errorf("%w: value at %d, mapping is %d bytes", errs.ErrOffsetOutOfRange, v.Offset, len(r.data))
	}

	engine := view.engine
	s := Sample{Type: v.Type}
	s.Word = mmap.Load64(r.data, v.Offset+section.OffValueWord, engine)
	extra := int64(mmap.Load64(r.data, v.Offset+section.OffValueExtra, engine)) //nolint:gosec

	switch v.Type {
	case format.TypeString:
		text, err := section.ReadStringAt(r.data, uint64(extra)) //nolint:gosec
		if err != nil {
			return Sample{}, err
		}
		s.Text = text
	case format.TypeElapsed:
		if extra < 0 {
			s.Word += uint64(r.now().UnixMicro() + extra) //nolint:gosec
		}
	}

	return s, nil
}
