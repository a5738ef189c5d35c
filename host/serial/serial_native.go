//go:build !wasm

package serial

import (
	"fmt"
	"time"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Open opens a serial port with the configured backend
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	switch cfg.Backend {
	case BackendTarm, "":
		return openTarm(cfg)
	case BackendBugst:
		return openBugst(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *tarm.Port
	cfg  *Config
}

func openTarm(cfg *Config) (Port, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &NativePort{port: port, cfg: cfg}, nil
}

// Read reads data from the serial port. With a read timeout set, an
// expired read returns io.EOF.
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// BugstPort wraps the go.bug.st/serial implementation
type BugstPort struct {
	port bugst.Port
	cfg  *Config
}

func openBugst(cfg *Config) (Port, error) {
	port, err := bugst.Open(cfg.Device, &bugst.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeout) * time.Millisecond); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
		}
	}
	return &BugstPort{port: port, cfg: cfg}, nil
}

// Read reads data from the serial port. An expired read timeout returns
// 0, nil.
func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *BugstPort) Close() error {
	return p.port.Close()
}

func (p *BugstPort) Flush() error {
	return p.port.ResetInputBuffer()
}
