// Package buffer provides a fixed-capacity byte arena with a readable
// region and a writable region, used by the connection pipeline to
// stage bytes between the socket and the message parser/serializer.
package buffer

import (
	"github.com/evhttpd/evhttpd/pkg/constants"
	"github.com/evhttpd/evhttpd/pkg/errors"
)

// Buffer is a bounded byte arena with two cursors, read and write,
// satisfying 0 <= read <= write <= capacity at all times. Bytes in
// [read, write) are readable; bytes in [write, capacity) are writable.
type Buffer struct {
	data  []byte
	read  int
	write int
}

// New returns a Buffer with the given fixed capacity. A non-positive
// capacity falls back to constants.DefaultBufferCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = constants.DefaultBufferCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Capacity returns the arena's fixed size. It never changes.
func (b *Buffer) Capacity() int { return len(b.data) }

// Readable returns the number of bytes currently available to read.
func (b *Buffer) Readable() int { return b.write - b.read }

// Writable returns the number of bytes currently available to write.
func (b *Buffer) Writable() int { return len(b.data) - b.write }

// ReadableSpan returns the bytes in [read, write). The returned slice
// aliases the buffer's backing array and is only valid until the next
// Commit, Consume, or Prepare call.
func (b *Buffer) ReadableSpan() []byte {
	return b.data[b.read:b.write]
}

// WritableSpan returns the bytes in [write, capacity). Callers fill
// this span (e.g. via net.Conn.Read) and then call Commit with the
// number of bytes actually written.
func (b *Buffer) WritableSpan() []byte {
	return b.data[b.write:]
}

// Commit advances write by n, clamped to the available writable span.
// It returns the number of bytes actually committed.
func (b *Buffer) Commit(n int) int {
	max := len(b.data) - b.write
	if n > max {
		n = max
	}
	if n < 0 {
		n = 0
	}
	b.write += n
	return n
}

// Consume advances read by n. If n reaches or exceeds the readable
// region, both cursors reset to 0 so the buffer reuses its full
// capacity for the next fill.
func (b *Buffer) Consume(n int) {
	readable := b.Readable()
	if n >= readable {
		b.read = 0
		b.write = 0
		return
	}
	b.read += n
}

// Prepare ensures the writable span is at least constants.MinWritable
// bytes, compacting [read, write) to the start of the arena if needed.
// If compaction still leaves less than MinWritable bytes writable, it
// fails with BufferOverflow: the message being accumulated does not
// fit in this buffer's capacity.
//
// Prepare is a no-op (per the idempotence property in spec.md 8) when
// the writable span already satisfies the threshold.
func (b *Buffer) Prepare() error {
	if b.Writable() >= constants.MinWritable {
		return nil
	}
	b.compact()
	if b.Writable() < constants.MinWritable {
		return errors.NewBufferOverflowError(len(b.data))
	}
	return nil
}

// compact moves the readable region to the start of the arena.
func (b *Buffer) compact() {
	if b.read == 0 {
		return
	}
	n := copy(b.data, b.data[b.read:b.write])
	b.read = 0
	b.write = n
}

// Reset discards all buffered bytes and returns both cursors to 0.
// Capacity is retained for reuse.
func (b *Buffer) Reset() {
	b.read = 0
	b.write = 0
}
