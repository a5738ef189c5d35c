package protocol

// FifoBuffer is a circular byte buffer. One slot is kept free to tell a
// full buffer from an empty one, so it holds capacity-1 bytes. It is not
// safe for concurrent use.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends as much of data as fits and returns the count written
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if !f.Put(b) {
			break
		}
		written++
	}
	return written
}

// Put appends one byte and reports false if the buffer is full
func (f *FifoBuffer) Put(b byte) bool {
	nextWrite := (f.write + 1) % f.size
	if nextWrite == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = nextWrite
	return true
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		b, ok := f.Get()
		if !ok {
			break
		}
		data[i] = b
		read++
	}
	return read
}

// Get removes and returns the oldest byte
func (f *FifoBuffer) Get() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
