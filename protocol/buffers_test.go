package protocol

import (
	"bytes"
	"testing"
)

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}
	if fifo.Free() != 9 {
		t.Errorf("Expected 9 bytes free, got %d", fifo.Free())
	}

	written := fifo.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	readBuf := make([]byte, 3)
	if n := fifo.Read(readBuf); n != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", n)
	}
	if !bytes.Equal(readBuf, []byte{1, 2, 3}) {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	fifo.Pop(1)
	b, ok := fifo.Get()
	if !ok || b != 5 {
		t.Errorf("Expected 5 after popping one byte, got %d (ok=%v)", b, ok)
	}
	if _, ok := fifo.Get(); ok {
		t.Error("Get on an empty FIFO should fail")
	}

	// One slot stays free
	fifo.Reset()
	big := make([]byte, 12)
	for i := range big {
		big[i] = byte(i)
	}
	if written := fifo.Write(big); written != 9 {
		t.Errorf("Expected to write 9 bytes to size-10 FIFO, wrote %d", written)
	}
	if fifo.Put(0xff) {
		t.Error("Put on a full FIFO should fail")
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5)

	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Read(make([]byte, 2))

	if written := fifo.Write([]byte{5, 6}); written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}

	all := make([]byte, 4)
	if n := fifo.Read(all); n != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", n)
	}
	if !bytes.Equal(all, []byte{3, 4, 5, 6}) {
		t.Errorf("Wrap-around data mismatch: got %v", all)
	}
}

func TestFifoTransportFeedAndDrain(t *testing.T) {
	tr := NewFifoTransport(16)

	if tr.Available() {
		t.Error("New transport should have nothing to read")
	}
	if _, err := tr.ReadByte(); err != ErrNoData {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	tr.Feed([]byte("ab"))
	for _, want := range []byte("ab") {
		if !tr.Available() {
			t.Fatal("Expected data to be available")
		}
		c, err := tr.ReadByte()
		if err != nil || c != want {
			t.Errorf("Expected %q, got %q (err=%v)", want, c, err)
		}
	}

	if err := tr.WriteByte('x'); err != nil {
		t.Fatalf("WriteByte failed: %v", err)
	}
	if _, err := tr.Write([]byte("yz")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := string(tr.Drain()); got != "xyz" {
		t.Errorf("Expected xyz, got %q", got)
	}
}

func TestFifoTransportFull(t *testing.T) {
	tr := NewFifoTransport(4)

	n, err := tr.Write([]byte("abcdef"))
	if err != ErrBufferFull {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 bytes written, got %d", n)
	}
	if err := tr.WriteByte('g'); err != ErrBufferFull {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
}

func TestPipe(t *testing.T) {
	a, b := NewPipe(32)

	a.Write([]byte("ping"))
	b.WriteByte('!')

	if got := readAll(b); got != "ping" {
		t.Errorf("Expected b to read ping, got %q", got)
	}
	if got := readAll(a); got != "!" {
		t.Errorf("Expected a to read !, got %q", got)
	}
}

func readAll(tr Transport) string {
	var out []byte
	for tr.Available() {
		c, err := tr.ReadByte()
		if err != nil {
			break
		}
		out = append(out, c)
	}
	return string(out)
}
