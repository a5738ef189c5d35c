package peripherals

import (
	"errors"
	"sync"
)

// ErrNoDevice is returned by MemoryBus for an address nothing is attached
// to, as a real bus reports a missing acknowledge.
var ErrNoDevice = errors.New("i2c: no device at address")

// MemoryBus is an I2C bus backed by per-address register maps. Each
// register holds the bytes of its last write, so 16-bit registers at
// consecutive numbers do not overlap. The first byte of a write selects the
// register and the rest, if any, become its contents. A read returns the
// selected register's contents, zero-padded to the read length.
type MemoryBus struct {
	mu      sync.Mutex
	devices map[uint16]*memoryDevice
}

type memoryDevice struct {
	regs    map[uint8][]byte
	pointer uint8
	writes  []byte
}

func newMemoryDevice() *memoryDevice {
	return &memoryDevice{regs: make(map[uint8][]byte)}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{devices: make(map[uint16]*memoryDevice)}
}

// Attach makes a device respond at addr.
func (b *MemoryBus) Attach(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.devices[addr]; !ok {
		b.devices[addr] = newMemoryDevice()
	}
}

// Detach removes the device at addr.
func (b *MemoryBus) Detach(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, addr)
}

// Tx implements drivers.I2C.
func (b *MemoryBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[addr]
	if !ok {
		return ErrNoDevice
	}
	if len(w) > 0 {
		d.writes = append(d.writes, w...)
		d.pointer = w[0]
		if len(w) > 1 {
			d.regs[d.pointer] = append([]byte(nil), w[1:]...)
		}
	}
	n := copy(r, d.regs[d.pointer])
	clear(r[n:])
	return nil
}

// Set stores data as the contents of register reg of the device at addr,
// attaching it if needed.
func (b *MemoryBus) Set(addr uint16, reg uint8, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[addr]
	if !ok {
		d = newMemoryDevice()
		b.devices[addr] = d
	}
	d.regs[reg] = append([]byte(nil), data...)
}

// Register returns the contents of one register of the device at addr.
func (b *MemoryBus) Register(addr uint16, reg uint8) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[addr]; ok {
		return append([]byte(nil), d.regs[reg]...)
	}
	return nil
}

// Written returns every byte written to addr so far.
func (b *MemoryBus) Written(addr uint16) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[addr]; ok {
		return append([]byte(nil), d.writes...)
	}
	return nil
}
