package wire

const (
	DefaultBufferCap = 256 // starting capacity for reply bodies
	growthFactor     = 2
)

// Buffer is an append-only byte store that doubles its capacity whenever an
// append would overflow it. A Buffer has a single owner for the lifetime of
// one request/response cycle.
type Buffer struct {
	data []byte
	size int
}

// NewBuffer returns an empty buffer with the given starting capacity.
// Non-positive capacities fall back to DefaultBufferCap.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &Buffer{data: make([]byte, capacity)}
}

func (b *Buffer) Len() int { return b.size }
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the valid region of the buffer. The slice aliases the
// buffer's storage and is only good until the next mutation.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

func (b *Buffer) String() string { return string(b.Bytes()) }

func (b *Buffer) AppendByte(c byte) {
	b.grow(1)
	b.data[b.size] = c
	b.size++
}

func (b *Buffer) AppendBytes(p []byte) {
	if len(p) == 0 {
		return
	}
	b.grow(len(p))
	b.size += copy(b.data[b.size:], p)
}

func (b *Buffer) AppendString(s string) {
	if len(s) == 0 {
		return
	}
	b.grow(len(s))
	b.size += copy(b.data[b.size:], s)
}

// Write implements io.Writer so file contents can be copied straight in.
// It never returns an error.
func (b *Buffer) Write(p []byte) (int, error) {
	b.AppendBytes(p)
	return len(p), nil
}

// Clear drops the contents but keeps the allocated capacity.
func (b *Buffer) Clear() { b.size = 0 }

// Release drops the contents and the backing storage. The buffer may be
// reused afterwards; the next append allocates DefaultBufferCap again.
func (b *Buffer) Release() {
	b.data = nil
	b.size = 0
}

// grow makes room for n more bytes, doubling capacity until they fit.
func (b *Buffer) grow(n int) {
	need := b.size + n
	if need <= len(b.data) {
		return
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = DefaultBufferCap
	}
	for newCap < need {
		newCap *= growthFactor
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.size])
	b.data = grown
}
