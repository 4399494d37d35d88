package shared

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.PushBack("a")
	q.PushBack("b")

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	if v, ok := q.PopFront(); !ok || v != "a" {
		t.Errorf("PopFront() = (%v, %v), want a", v, ok)
	}
	if v, ok := q.PopFront(); !ok || v != "b" {
		t.Errorf("PopFront() = (%v, %v), want b", v, ok)
	}
	if _, ok := q.PopFront(); ok {
		t.Error("PopFront() on empty queue reported ok")
	}
}

func TestQueueIgnoresNil(t *testing.T) {
	q := NewQueue()
	q.PushBack(nil)
	if q.Len() != 0 {
		t.Errorf("Len() = %d after nil push", q.Len())
	}
}
