package peripherals

// Register addresses of the simulated sensors
const (
	adxl345DataX0  = 0x32
	ina260Current  = 0x01
	ina260Voltage  = 0x02
	ina260Power    = 0x03
	ina260LSBMicro = 1250
	ina260PowerLSB = 10000
)

// Reading is a set of sensor values for a simulated bus.
type Reading struct {
	// Raw ADXL345 counts, 256 per g in the 2g range
	AccelX, AccelY, AccelZ int16

	MicroVolts int32
	MicroAmps  int32
	MicroWatts int32
}

// RestingReading is a robot standing still on a charged battery.
var RestingReading = Reading{
	AccelZ:     256,
	MicroVolts: 7200000,
	MicroAmps:  500000,
	MicroWatts: 3600000,
}

// Simulate attaches the enabled I2C peripherals of cfg to bus and loads r
// into their registers.
func Simulate(bus *MemoryBus, cfg Config, r Reading) {
	if cfg.Display {
		bus.Attach(cfg.DisplayAddr)
	}
	if cfg.IMU {
		SetAcceleration(bus, cfg.IMUAddr, r.AccelX, r.AccelY, r.AccelZ)
	}
	if cfg.Battery {
		SetBattery(bus, cfg.BatteryAddr, r.MicroVolts, r.MicroAmps, r.MicroWatts)
	}
}

// SetAcceleration stores raw ADXL345 samples, little-endian as the chip
// lays them out.
func SetAcceleration(bus *MemoryBus, addr uint16, x, y, z int16) {
	bus.Set(addr, adxl345DataX0,
		byte(x), byte(uint16(x)>>8),
		byte(y), byte(uint16(y)>>8),
		byte(z), byte(uint16(z)>>8))
}

// SetBattery stores INA260 readings, rounded down to the chip resolution.
func SetBattery(bus *MemoryBus, addr uint16, microVolts, microAmps, microWatts int32) {
	put := func(reg uint8, v uint16) {
		bus.Set(addr, reg, byte(v>>8), byte(v))
	}
	put(ina260Current, uint16(int16(microAmps/ina260LSBMicro)))
	put(ina260Voltage, uint16(microVolts/ina260LSBMicro))
	put(ina260Power, uint16(microWatts/ina260PowerLSB))
}
