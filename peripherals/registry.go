// Package peripherals provides the request handlers of a romiserial device:
// brush motors, stepper axes, a character display, a battery monitor and an
// IMU. I2C peripherals are driven through tinygo.org/x/drivers so the same
// handlers run on a microcontroller and on a host with a simulated bus.
package peripherals

import (
	"errors"
	"fmt"

	"romiserial/protocol"
)

// Application error codes. Protocol codes are negative; codes reported by
// handlers are positive.
const (
	CodeDeviceError protocol.Code = 1
	CodeOutOfLimits protocol.Code = 2
	CodeNotEnabled  protocol.Code = 3
)

// IdentifyOpcode answers with the protocol version and the handler count.
const IdentifyOpcode = '?'

// Device is one peripheral exposing a group of handlers.
type Device interface {
	Name() string
	Handlers() []protocol.Handler
}

// Closer is implemented by devices that must be put in a safe state when
// the registry shuts down.
type Closer interface {
	Close() error
}

// Registry collects devices and builds the handler table served by the
// engine.
type Registry struct {
	devices []Device
	byName  map[string]Device
	opcodes map[byte]string
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Device),
		opcodes: map[byte]string{IdentifyOpcode: "identify"},
	}
}

// Register adds a device. Names must be unique and no opcode may be served
// by two devices.
func (r *Registry) Register(d Device) error {
	if d == nil {
		return errors.New("device is nil")
	}
	name := d.Name()
	if name == "" {
		return errors.New("device name is required")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("device %q already registered", name)
	}
	handlers := d.Handlers()
	for _, h := range handlers {
		if owner, taken := r.opcodes[h.Opcode]; taken {
			return fmt.Errorf("device %q: opcode %q already served by %s", name, h.Opcode, owner)
		}
	}
	for _, h := range handlers {
		r.opcodes[h.Opcode] = name
	}

	r.devices = append(r.devices, d)
	r.byName[name] = d
	return nil
}

// Get returns the device registered under name.
func (r *Registry) Get(name string) (Device, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Devices returns the registered devices in registration order.
func (r *Registry) Devices() []Device {
	return r.devices
}

// Table returns the handler table: identify first, then every device's
// handlers in registration order.
func (r *Registry) Table() protocol.HandlerTable {
	table := make(protocol.HandlerTable, 0, len(r.opcodes))
	table = append(table, protocol.Handler{Opcode: IdentifyOpcode, Name: "identify"})
	for _, d := range r.devices {
		table = append(table, d.Handlers()...)
	}

	count := int16(len(table))
	table[0].Func = func(w *protocol.Responder, req *protocol.Request) {
		w.Send(protocol.VersionMajor, protocol.VersionMinor, count)
	}
	return table
}

// Close closes every device that implements Closer, in reverse
// registration order. The first error is returned.
func (r *Registry) Close() error {
	var first error
	for i := len(r.devices) - 1; i >= 0; i-- {
		if c, ok := r.devices[i].(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = fmt.Errorf("close %s: %w", r.devices[i].Name(), err)
			}
		}
	}
	return first
}
