//go:build rp2040 || rp2350

package main

import (
	"io"
	"machine"
)

// maxWriteFailures is the number of failed writes after which the host is
// considered gone.
const maxWriteFailures = 10

// usbTransport adapts the USB CDC serial port to protocol.Transport.
type usbTransport struct {
	serial machine.Serialer

	writeFailures uint32
	disconnected  bool
}

func newUSBTransport() *usbTransport {
	// machine.Serial is USB CDC on the RP2040
	machine.Serial.Configure(machine.UARTConfig{})
	return &usbTransport{serial: machine.Serial}
}

func (t *usbTransport) Available() bool {
	return t.serial.Buffered() > 0
}

func (t *usbTransport) ReadByte() (byte, error) {
	return t.serial.ReadByte()
}

func (t *usbTransport) WriteByte(c byte) error {
	_, err := t.Write([]byte{c})
	return err
}

// Write sends a whole frame, retrying partial writes. Repeated failures
// mark the host as disconnected.
func (t *usbTransport) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := t.serial.Write(p[written:])
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			t.writeFailures++
			if t.writeFailures > maxWriteFailures {
				t.disconnected = true
				t.writeFailures = 0
			}
			return written, err
		}
		written += n
	}
	t.writeFailures = 0
	return written, nil
}

// reconnected reports, once, that data arrived after a disconnect.
func (t *usbTransport) reconnected() bool {
	if t.disconnected && t.Available() {
		t.disconnected = false
		return true
	}
	return false
}
