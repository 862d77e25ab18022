// Package pixelbuf provides reference-counted pixel storage backing an
// Image's window and shallow-copy aliasing. Modeled on the Attach/Row
// shared-storage pattern of a rendering buffer, generalized to a single
// concrete element type per instantiation and to explicit ref-counting
// instead of Go's ordinary slice aliasing, so that writing through a
// buffer that has outstanding windows is a caught programming error
// rather than silent corruption.
package pixelbuf

import "sync/atomic"

// Buffer is a reference-counted, fixed-length array of T. Multiple
// *Buffer[T] handles can share the same backing array via Retain; the
// array is only considered exclusively owned (and therefore mutable) while
// its reference count is 1.
type Buffer[T any] struct {
	data []T
	refs *int32
}

// New wraps data in a freshly, exclusively owned Buffer.
func New[T any](data []T) *Buffer[T] {
	refs := int32(1)
	return &Buffer[T]{data: data, refs: &refs}
}

// Retain returns a new handle sharing the same backing array, incrementing
// the shared reference count.
func (b *Buffer[T]) Retain() *Buffer[T] {
	atomic.AddInt32(b.refs, 1)
	return &Buffer[T]{data: b.data, refs: b.refs}
}

// Release decrements the shared reference count. It is safe to call at
// most once per handle returned by New or Retain.
func (b *Buffer[T]) Release() {
	atomic.AddInt32(b.refs, -1)
}

// Len returns the length of the backing array.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// View returns a read-only slice [a,b) of the backing array. The returned
// slice must not be mutated; use MutableView on an exclusively owned
// buffer for writes.
func (b *Buffer[T]) View(a, end int) []T {
	return b.data[a:end]
}

// MutableView returns a writable slice [a,b) of the backing array. It
// panics if the buffer is currently shared (reference count > 1), which
// would otherwise let a write leak through an outstanding window.
func (b *Buffer[T]) MutableView(a, end int) []T {
	if atomic.LoadInt32(b.refs) > 1 {
		panic("pixelbuf: write through a shared (windowed) buffer")
	}
	return b.data[a:end]
}
