package pool

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/arloliu/mmv/errs"
)

// PinPool hands out byte regions that stay pinned until released.
//
// A region is released by passing the address of any byte inside it to
// Unpin, so holders of a sub-slice can release the whole region without
// tracking its start. Addresses outside every pinned region are rejected.
type PinPool struct {
	mu      sync.Mutex
	regions []pinned // sorted by first
	buffers *ByteBufferPool
}

type pinned struct {
	first uintptr // address of the first byte
	last  uintptr // address of the last byte
	buf   *ByteBuffer
}

// NewPinPool creates a pool whose buffers are drawn from buffers, or from a
// private pool when buffers is nil.
func NewPinPool(buffers *ByteBufferPool) *PinPool {
	if buffers == nil {
		buffers = NewByteBufferPool(ImageBufferDefaultSize, ImageBufferMaxThreshold)
	}

	return &PinPool{buffers: buffers}
}

// AddrOf returns the address of b[i].
func AddrOf(b []byte, i int) uintptr {
	return uintptr(unsafe.Pointer(&b[i]))
}

// Pin returns a zeroed region of size bytes that remains pinned until Unpin
// is called with an address inside it.
func (p *PinPool) Pin(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pin: invalid size %d", size)
	}

	buf := p.buffers.Get()
	buf.SetLength(size)
	b := buf.B[:size:size]
	clear(b)

	r := pinned{first: AddrOf(b, 0), last: AddrOf(b, size-1), buf: buf}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := sort.Search(len(p.regions), func(i int) bool { return p.regions[i].first > r.first })
	p.regions = append(p.regions, pinned{})
	copy(p.regions[i+1:], p.regions[i:])
	p.regions[i] = r

	return b, nil
}

// Unpin releases the region containing addr.
//
// It returns errs.ErrNotPinned when addr is not inside a pinned region,
// including when the region was already released.
func (p *PinPool) Unpin(addr uintptr) error {
	p.mu.Lock()
	i := p.find(addr)
	if i < 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: %#x", errs.ErrNotPinned, addr)
	}
	r := p.regions[i]
	p.regions = append(p.regions[:i], p.regions[i+1:]...)
	p.mu.Unlock()

	p.buffers.Put(r.buf)

	return nil
}

// Pinned returns the number of regions currently pinned.
func (p *PinPool) Pinned() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.regions)
}

// find returns the index of the region containing addr or -1.
func (p *PinPool) find(addr uintptr) int {
	// first region starting after addr; the candidate is the one before it
	i := sort.Search(len(p.regions), func(i int) bool { return p.regions[i].first > addr })
	if i == 0 {
		return -1
	}
	if r := p.regions[i-1]; addr >= r.first && addr <= r.last {
		return i - 1
	}

	return -1
}
