package serial

import (
	"errors"
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (github.com/tarm/serial or go.bug.st/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Backend selects the serial library behind Open.
type Backend string

const (
	BackendTarm  Backend = "tarm"
	BackendBugst Backend = "bugst"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC devices ignore this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	Backend Backend
}

var ErrUnknownBackend = errors.New("serial: unknown backend")

// DefaultConfig returns the configuration used by romiserial firmware
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
		Backend:     BackendTarm,
	}
}
