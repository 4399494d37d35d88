package session

import (
	"sync"
)

// Scrollback retains recent terminal output so a freshly attached client can
// repaint the screen. Old chunks fall off once the retained total passes the
// byte cap.
type Scrollback struct {
	mu     sync.Mutex
	max    int
	size   int
	chunks [][]byte
}

func NewScrollback(maxBytes int) *Scrollback {
	return &Scrollback{
		max:    maxBytes,
		chunks: make([][]byte, 0, 128),
	}
}

// Put appends one output chunk. The data is copied.
func (b *Scrollback) Put(p []byte) {
	if len(p) == 0 {
		return
	}
	c := make([]byte, len(p))
	copy(c, p)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, c)
	b.size += len(c)
	for b.size > b.max && len(b.chunks) > 1 {
		b.size -= len(b.chunks[0])
		b.chunks = b.chunks[1:]
	}
}

// Bytes returns the retained output as one flat copy, oldest first.
func (b *Scrollback) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Size reports the retained byte count.
func (b *Scrollback) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
