// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package buffer implements the growable accumulation buffer that the
// broker client reads socket bytes into before handing them to the
// wire-protocol parser. It mirrors the original C implementation's
// reserve/assign/cleanup shape (BufferReserve, BufferAssign,
// BufferCleanup) as a Go value type backed by a slice, rather than
// the direct realloc-on-grow the C source used.
package buffer

// Buffer accumulates bytes read from the broker socket. Unlike a
// plain []byte, it distinguishes capacity from the amount of
// meaningful data (Len) so that Reserve can grow storage ahead of a
// read without disturbing already-accumulated, not-yet-parsed bytes.
//
// The zero value is an empty, ready-to-use Buffer.
type Buffer struct {
	data []byte
	len  int
}

// Len returns the number of meaningful bytes currently held.
func (b *Buffer) Len() int { return b.len }

// Bytes returns the meaningful portion of the buffer. The returned
// slice aliases the Buffer's storage and is invalidated by the next
// call to Reserve, Assign, or Compact.
func (b *Buffer) Bytes() []byte { return b.data[:b.len] }

// Reserve grows the buffer's backing storage, if necessary, so that
// at least extra more bytes can be appended after the current content
// without reallocation, and returns a slice spanning exactly those
// extra bytes for the caller to fill (e.g. via a socket Read). Reserve
// does not change Len; the caller must grow Len (or call Assign) once
// it knows how many of the reserved bytes were actually written.
func (b *Buffer) Reserve(extra int) []byte {
	if extra < 0 {
		panic("buffer: negative Reserve size")
	}
	need := b.len + extra
	if need > cap(b.data) {
		grown := make([]byte, need, growTo(cap(b.data), need))
		copy(grown, b.data[:b.len])
		b.data = grown
	} else if need > len(b.data) {
		b.data = b.data[:need]
	}
	return b.data[b.len:need]
}

// Grow records that n additional bytes, previously obtained via
// Reserve and filled in by the caller, are now meaningful content.
func (b *Buffer) Grow(n int) {
	b.len += n
	if b.len > len(b.data) {
		panic("buffer: Grow beyond reserved capacity")
	}
}

// Assign replaces the buffer's meaningful content with data, copying
// it into the buffer's own storage (so the caller's slice can be
// reused or discarded immediately after the call). Equivalent to the
// original BufferAssign: growable storage, but a whole-content
// overwrite rather than an append.
func (b *Buffer) Assign(data []byte) {
	if cap(b.data) < len(data) {
		b.data = make([]byte, len(data))
	} else {
		b.data = b.data[:len(data)]
	}
	copy(b.data, data)
	b.len = len(data)
}

// Compact discards the first n bytes of meaningful content, shifting
// the remainder down to offset zero. It is the Go analogue of the
// original parser's memmove-based compaction after a partial (short)
// frame leaves unconsumed bytes at the front of the buffer.
func (b *Buffer) Compact(n int) {
	if n < 0 || n > b.len {
		panic("buffer: Compact out of range")
	}
	copy(b.data, b.data[n:b.len])
	b.len -= n
}

// Reset discards all meaningful content without releasing the
// underlying storage, so the next Reserve can reuse it.
func (b *Buffer) Reset() { b.len = 0 }

// growTo picks the next backing-array size for a buffer currently at
// capacity oldCap that must hold at least need bytes: double until
// need is met, the same amortized-growth policy append(, []byte) uses
// internally, made explicit here because Reserve pre-sizes storage
// rather than appending one byte at a time.
func growTo(oldCap, need int) int {
	if oldCap == 0 {
		oldCap = 64
	}
	for oldCap < need {
		oldCap *= 2
	}
	return oldCap
}
