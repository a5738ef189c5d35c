package protocol

import "sync"

// Transport is the byte stream under the protocol. It is all the engine and
// the host client need: no buffering, flow control or reconnection is
// assumed. ReadByte is only called after Available reported true.
type Transport interface {
	Available() bool
	ReadByte() (byte, error)
	WriteByte(c byte) error
}

// FifoTransport is an in-memory Transport built on two FifoBuffers. Bytes
// written to it land in its output buffer; bytes read from it come from its
// input buffer. It is safe for use by one reader and one writer goroutine.
type FifoTransport struct {
	mu  *sync.Mutex
	in  *FifoBuffer
	out *FifoBuffer
}

// NewFifoTransport creates a standalone transport. Tests inject bytes with
// Feed and collect what was written with Drain.
func NewFifoTransport(capacity int) *FifoTransport {
	return &FifoTransport{
		mu:  &sync.Mutex{},
		in:  NewFifoBuffer(capacity),
		out: NewFifoBuffer(capacity),
	}
}

// NewPipe returns two connected transports: what one writes, the other
// reads.
func NewPipe(capacity int) (*FifoTransport, *FifoTransport) {
	mu := &sync.Mutex{}
	ab := NewFifoBuffer(capacity)
	ba := NewFifoBuffer(capacity)
	return &FifoTransport{mu: mu, in: ba, out: ab},
		&FifoTransport{mu: mu, in: ab, out: ba}
}

func (t *FifoTransport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.in.IsEmpty()
}

func (t *FifoTransport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.in.Get()
	if !ok {
		return 0, ErrNoData
	}
	return b, nil
}

func (t *FifoTransport) WriteByte(c byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.out.Put(c) {
		return ErrBufferFull
	}
	return nil
}

// Write implements io.Writer so frames are queued in one lock.
func (t *FifoTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.out.Write(p)
	if n < len(p) {
		return n, ErrBufferFull
	}
	return n, nil
}

// Feed queues p as input, as if it had arrived from the peer.
func (t *FifoTransport) Feed(p []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.in.Write(p)
}

// Drain removes and returns everything written so far.
func (t *FifoTransport) Drain() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	data := make([]byte, t.out.Available())
	t.out.Read(data)
	return data
}
