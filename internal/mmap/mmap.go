// Package mmap maps MMV files into memory and provides the atomic accessors
// used for fields that change while other processes have the file mapped.
package mmap

import (
	"sync/atomic"
	"unsafe"

	"github.com/arloliu/mmv/endian"
)

// Load64 atomically loads the 64-bit word at b[off:] and decodes it with engine.
//
// Words that are not 8 byte aligned, which only happens for buffers that did
// not come from a mapping, fall back to a plain read.
func Load64(b []byte, off uint64, engine endian.EndianEngine) uint64 {
	p := unsafe.Pointer(&b[off : off+8][0])
	if uintptr(p)%8 != 0 {
		return engine.Uint64(b[off:])
	}

	return endian.FromHost64(engine, atomic.LoadUint64((*uint64)(p)))
}

// Store64 atomically stores v, encoded with engine, at b[off:].
func Store64(b []byte, off uint64, engine endian.EndianEngine, v uint64) {
	p := unsafe.Pointer(&b[off : off+8][0])
	if uintptr(p)%8 != 0 {
		engine.PutUint64(b[off:], v)
		return
	}

	atomic.StoreUint64((*uint64)(p), endian.ToHost64(engine, v))
}

// Add64 atomically adds delta to the word at b[off:] and returns the new value.
func Add64(b []byte, off uint64, engine endian.EndianEngine, delta uint64) uint64 {
	p := (*uint64)(unsafe.Pointer(&b[off : off+8][0]))
	if endian.CompareNativeEndian(engine) && uintptr(unsafe.Pointer(p))%8 == 0 {
		return atomic.AddUint64(p, delta)
	}

	return Update64(b, off, engine, func(v uint64) uint64 { return v + delta })
}

// Update64 atomically replaces the word at b[off:] with fn applied to its
// current value and returns the new value. fn may run more than once.
func Update64(b []byte, off uint64, engine endian.EndianEngine, fn func(uint64) uint64) uint64 {
	p := (*uint64)(unsafe.Pointer(&b[off : off+8][0]))
	if uintptr(unsafe.Pointer(p))%8 != 0 {
		next := fn(engine.Uint64(b[off:]))
		engine.PutUint64(b[off:], next)

		return next
	}

	for {
		old := atomic.LoadUint64(p)
		next := fn(endian.FromHost64(engine, old))
		if atomic.CompareAndSwapUint64(p, old, endian.ToHost64(engine, next)) {
			return next
		}
	}
}
