package protocol

import "testing"

func TestChecksumCheckValue(t *testing.T) {
	// Standard CRC-8 (poly 0x07) check value
	got := ComputeChecksum([]byte("123456789"))
	if got != 0xF4 {
		t.Errorf("ComputeChecksum(123456789) = 0x%02X, want 0xF4", got)
	}
}

func TestChecksumEmpty(t *testing.T) {
	if got := ComputeChecksum(nil); got != 0 {
		t.Errorf("ComputeChecksum(nil) = 0x%02X, want 0x00", got)
	}
}

func TestChecksumTableRecurrence(t *testing.T) {
	// Rebuild the MSB-first table by hand and compare byte by byte
	var table [256]uint8
	for i := 0; i < 256; i++ {
		crc := uint8(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ ChecksumPolynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}

	data := []byte("#V[100,-200]:0a")
	var want uint8
	for _, b := range data {
		want = table[want^b]
	}

	if got := ComputeChecksum(data); got != want {
		t.Errorf("ComputeChecksum = 0x%02X, want 0x%02X", got, want)
	}
}

func TestChecksumConsistency(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	crc1 := ComputeChecksum(data)
	crc2 := ComputeChecksum(data)

	if crc1 != crc2 {
		t.Errorf("checksum not consistent: first=%02X, second=%02X", crc1, crc2)
	}
}

func TestChecksumSingleByteChange(t *testing.T) {
	base := []byte("#M[1,2,3]:01")
	want := ComputeChecksum(base)

	for i := range base {
		changed := append([]byte(nil), base...)
		changed[i] ^= 0x01
		if ComputeChecksum(changed) == want {
			t.Errorf("flipping bit 0 of byte %d did not change the checksum", i)
		}
	}
}

func TestChecksumIncremental(t *testing.T) {
	data := []byte("#?:ff")

	var c Checksum
	c.Start(0)
	for _, b := range data {
		c.Update(b)
	}

	if got, want := c.Finalize(), ComputeChecksum(data); got != want {
		t.Errorf("incremental = 0x%02X, one-shot = 0x%02X", got, want)
	}

	// Finalize does not reset
	if got, want := c.Finalize(), ComputeChecksum(data); got != want {
		t.Errorf("second Finalize = 0x%02X, want 0x%02X", got, want)
	}
}
