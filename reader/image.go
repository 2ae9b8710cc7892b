package reader

import (
	"fmt"

	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/section"
)

// Allocator provides the destination buffer for CopyImage and takes back
// buffers of attempts that observed a concurrent update.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Release(b []byte)
}

// CopyImage copies the whole file into a buffer from alloc while no update is
// in progress and returns the copy with its generation. Attempts that race
// with the writer are retried like Scan.
func (r *Reader) CopyImage(alloc Allocator) ([]byte, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, 0, errs.ErrReaderClosed
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.sleep(attempt)
		}
		if err := r.remapLocked(); err != nil {
			return nil, 0, err
		}

		engine, err := section.DetectEngine(r.data)
		if err != nil {
			if !retryable(err) {
				return nil, 0, err
			}
			lastErr = err

			continue
		}
		g1, g2 := generation(r.data, engine)
		if g1 != g2 {
			lastErr = fmt.Errorf("%w: g1=%d g2=%d", errs.ErrWriteInProgress, g1, g2)
			continue
		}

		buf, err := alloc.Alloc(len(r.data))
		if err != nil {
			return nil, 0, err
		}
		copy(buf, r.data)

		if e1, e2 := generation(r.data, engine); e1 != g1 || e2 != g1 {
			alloc.Release(buf)
			lastErr = fmt.Errorf("%w: %d became %d/%d during copy", errs.ErrGenerationChanged, g1, e1, e2)
			continue
		}

		return buf, g1, nil
	}

	return nil, 0, fmt.Errorf("copy gave up after %d retries: %w: %w", r.maxRetries, errs.ErrWriteInProgress, lastErr)
}
