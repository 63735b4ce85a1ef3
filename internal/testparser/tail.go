package testparser

import "sync"

// DefaultTailSize is how much trailing output a Tail keeps by default.
const DefaultTailSize = 256 * 1024

// Tail is an io.Writer that keeps only the last max bytes written to it.
// It is safe for concurrent use.
type Tail struct {
	mu  sync.Mutex
	buf []byte
	max int
}

// NewTail creates a Tail keeping at most max bytes.
func NewTail(max int) *Tail {
	if max <= 0 {
		max = DefaultTailSize
	}
	return &Tail{max: max}
}

// Write implements io.Writer. It never fails.
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

// String returns the retained output.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
