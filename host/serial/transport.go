package serial

import (
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"romiserial/internal/logging"
	"romiserial/protocol"
)

// DefaultBufferSize holds several maximum-size frames.
const DefaultBufferSize = 1024

// Transport adapts a Port to protocol.Transport. A background goroutine
// reads the port into a FifoBuffer so Available never blocks.
type Transport struct {
	port Port
	log  *zap.Logger

	mu       sync.Mutex
	in       *protocol.FifoBuffer
	overflow int
	err      error

	stopChan chan struct{}
	doneChan chan struct{}
	closeMu  sync.Once
}

// NewTransport starts reading port. Close stops the reader and closes the
// port.
func NewTransport(port Port) *Transport {
	return NewTransportSize(port, DefaultBufferSize)
}

// NewTransportSize is NewTransport with a custom input buffer size.
func NewTransportSize(port Port, size int) *Transport {
	t := &Transport{
		port:     port,
		log:      logging.Named("serial"),
		in:       protocol.NewFifoBuffer(size),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *Transport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.in.IsEmpty()
}

func (t *Transport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.in.Get()
	if !ok {
		if t.err != nil {
			return 0, t.err
		}
		return 0, protocol.ErrNoData
	}
	return b, nil
}

func (t *Transport) WriteByte(c byte) error {
	_, err := t.Write([]byte{c})
	return err
}

// Write writes a whole frame to the port.
func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.port.Write(p)
	if err != nil {
		return n, err
	}
	if n != len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Flush drops buffered input, both staged and in the port.
func (t *Transport) Flush() error {
	t.mu.Lock()
	t.in.Reset()
	t.mu.Unlock()
	return t.port.Flush()
}

// Err returns the error that stopped the reader, if any.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Overflow returns the number of received bytes dropped because the input
// buffer was full.
func (t *Transport) Overflow() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overflow
}

// Close stops the reader and closes the port.
func (t *Transport) Close() error {
	var err error
	t.closeMu.Do(func() {
		close(t.stopChan)
		// Closing the port unblocks a pending Read
		err = t.port.Close()
		<-t.doneChan
	})
	return err
}

func (t *Transport) stopped() bool {
	select {
	case <-t.stopChan:
		return true
	default:
		return false
	}
}

// readLoop continuously reads from the port into the input buffer
func (t *Transport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)
	for !t.stopped() {
		n, err := t.port.Read(buffer)
		if n > 0 {
			t.stage(buffer[:n])
		}
		if err == nil {
			continue
		}
		if t.stopped() {
			return
		}
		// tarm reports an expired read timeout as io.EOF
		if errors.Is(err, io.EOF) {
			if n == 0 {
				time.Sleep(time.Millisecond)
			}
			continue
		}
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
			t.fail(err)
			return
		}
		t.log.Debug("serial read failed", zap.Error(err))
		time.Sleep(10 * time.Millisecond)
	}
}

func (t *Transport) stage(p []byte) {
	t.mu.Lock()
	written := t.in.Write(p)
	dropped := len(p) - written
	t.overflow += dropped
	t.mu.Unlock()

	logging.LogFrame("rx", p)
	if dropped > 0 {
		t.log.Warn("serial input buffer full", zap.Int("dropped", dropped))
	}
}

func (t *Transport) fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.log.Warn("serial reader stopped", zap.Error(err))
}
