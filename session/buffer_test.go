package session

import (
	"bytes"
	"testing"
)

func TestScrollbackOrder(t *testing.T) {
	b := NewScrollback(1024)
	b.Put([]byte("one "))
	b.Put([]byte("two "))
	b.Put([]byte("three"))

	if got := string(b.Bytes()); got != "one two three" {
		t.Errorf("Bytes() = %q", got)
	}
	if b.Size() != len("one two three") {
		t.Errorf("Size() = %d", b.Size())
	}
}

func TestScrollbackCopiesInput(t *testing.T) {
	b := NewScrollback(1024)
	p := []byte("stable")
	b.Put(p)
	copy(p, "XXXXXX")

	if got := string(b.Bytes()); got != "stable" {
		t.Errorf("Bytes() = %q, caller mutation leaked in", got)
	}
}

func TestScrollbackEvictsOldest(t *testing.T) {
	b := NewScrollback(10)
	b.Put(bytes.Repeat([]byte("a"), 6))
	b.Put(bytes.Repeat([]byte("b"), 6))

	got := b.Bytes()
	if bytes.IndexByte(got, 'a') >= 0 {
		t.Errorf("oldest chunk not evicted: %q", got)
	}
	if b.Size() != 6 {
		t.Errorf("Size() = %d, want 6", b.Size())
	}
}

func TestScrollbackKeepsLastChunkOverCap(t *testing.T) {
	b := NewScrollback(4)
	b.Put(bytes.Repeat([]byte("x"), 16))

	// A single oversized chunk is retained whole.
	if b.Size() != 16 {
		t.Errorf("Size() = %d, want 16", b.Size())
	}
}

func TestScrollbackIgnoresEmptyPut(t *testing.T) {
	b := NewScrollback(8)
	b.Put(nil)
	if b.Size() != 0 || len(b.Bytes()) != 0 {
		t.Error("empty put should be a no-op")
	}
}
