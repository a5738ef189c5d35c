package protocol

import "github.com/sigurn/crc8"

// ChecksumPolynomial is the CRC-8 generator used for frame metadata.
const ChecksumPolynomial = 0x07

// crcTable is built once at package init and never modified. CRC-8 with
// polynomial 0x07, init 0, no reflection and no final xor is exactly the
// table[crc ^ b] recurrence used on the firmware.
var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum accumulates a frame checksum one byte at a time.
type Checksum struct {
	crc uint8
}

// Start resets the accumulator to seed.
func (c *Checksum) Start(seed uint8) {
	c.crc = seed
}

// Update folds one byte into the checksum.
func (c *Checksum) Update(b byte) {
	var one [1]byte
	one[0] = b
	c.crc = crc8.Update(c.crc, one[:], crcTable)
}

// UpdateBytes folds p into the checksum.
func (c *Checksum) UpdateBytes(p []byte) {
	c.crc = crc8.Update(c.crc, p, crcTable)
}

// Finalize returns the checksum of everything seen since Start. It does not
// reset the accumulator.
func (c *Checksum) Finalize() uint8 {
	return crc8.Complete(c.crc, crcTable)
}

// ComputeChecksum returns the checksum of p.
func ComputeChecksum(p []byte) uint8 {
	var c Checksum
	c.Start(0)
	c.UpdateBytes(p)
	return c.Finalize()
}
