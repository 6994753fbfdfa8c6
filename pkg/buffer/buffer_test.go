package buffer

import "testing"

func TestBufferFillAndConsume(t *testing.T) {
	b := New(16)
	if b.Capacity() != 16 {
		t.Fatalf("capacity = %d, want 16", b.Capacity())
	}

	n := copy(b.WritableSpan(), "hello")
	b.Commit(n)
	if b.Readable() != 5 {
		t.Fatalf("readable = %d, want 5", b.Readable())
	}
	if string(b.ReadableSpan()) != "hello" {
		t.Fatalf("readable span = %q, want %q", b.ReadableSpan(), "hello")
	}

	b.Consume(5)
	if b.Readable() != 0 {
		t.Fatalf("readable after consume = %d, want 0", b.Readable())
	}
	if b.Writable() != 16 {
		t.Fatalf("consuming everything should reset cursors, writable = %d, want 16", b.Writable())
	}
}

func TestBufferCommitClampsToWritable(t *testing.T) {
	b := New(4)
	n := b.Commit(100)
	if n != 4 {
		t.Fatalf("commit returned %d, want clamped to 4", n)
	}
	if b.Writable() != 0 {
		t.Fatalf("writable = %d, want 0", b.Writable())
	}
}

func TestBufferPrepareCompacts(t *testing.T) {
	b := New(2000)
	n := b.Commit(len(b.WritableSpan()))
	if n != 2000 {
		t.Fatalf("commit = %d, want 2000", n)
	}
	b.Consume(1900)

	if err := b.Prepare(); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if b.Writable() < 512 {
		t.Fatalf("expected compaction to free up MinWritable bytes, got %d writable", b.Writable())
	}
}

func TestBufferPrepareIdempotent(t *testing.T) {
	b := New(1024)
	if err := b.Prepare(); err != nil {
		t.Fatalf("first prepare failed: %v", err)
	}
	writable := b.Writable()
	if err := b.Prepare(); err != nil {
		t.Fatalf("second prepare failed: %v", err)
	}
	if b.Writable() != writable {
		t.Fatalf("prepare is not idempotent: %d != %d", b.Writable(), writable)
	}
}

func TestBufferPrepareOverflowsWhenMessageTooBig(t *testing.T) {
	b := New(8)
	n := copy(b.WritableSpan(), "abcdefgh")
	b.Commit(n)
	// nothing consumed: readable fills the whole capacity, so
	// compaction cannot free any writable space.
	if err := b.Prepare(); err == nil {
		t.Fatalf("expected buffer overflow, got nil")
	}
}

func TestBufferReset(t *testing.T) {
	b := New(16)
	n := copy(b.WritableSpan(), "partial")
	b.Commit(n)
	b.Reset()
	if b.Readable() != 0 || b.Writable() != 16 {
		t.Fatalf("reset left readable=%d writable=%d, want 0/16", b.Readable(), b.Writable())
	}
}
