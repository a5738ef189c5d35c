package peripherals

import (
	"fmt"
	"math"

	"tinygo.org/x/drivers"
)

// Config selects the peripherals to register and their limits.
type Config struct {
	IMU     bool
	IMUAddr uint16

	Battery     bool
	BatteryAddr uint16

	Display       bool
	DisplayAddr   uint16
	DisplayWidth  uint8
	DisplayHeight uint8

	MaxSpeed int16

	Limits  [3]int32
	MaxFeed int16
}

// DefaultConfig matches the Romi robot board.
func DefaultConfig() Config {
	return Config{
		IMU:           true,
		IMUAddr:       0x53,
		Battery:       true,
		BatteryAddr:   0x40,
		Display:       true,
		DisplayAddr:   0x27,
		DisplayWidth:  16,
		DisplayHeight: 2,
		MaxSpeed:      1000,
		Limits:        [3]int32{20000, 20000, 10000},
		MaxFeed:       3000,
	}
}

// New registers the motors, the stepper axes and the enabled I2C
// peripherals. bus may be nil when no I2C peripheral is enabled.
func New(cfg Config, bus drivers.I2C, motors MotorDriver, axes Axes) (*Registry, error) {
	if motors == nil || axes == nil {
		return nil, fmt.Errorf("motors and axes are required")
	}
	if bus == nil && (cfg.IMU || cfg.Battery || cfg.Display) {
		return nil, fmt.Errorf("i2c peripherals enabled without a bus")
	}

	devices := []Device{
		NewMotors(motors, cfg.MaxSpeed),
		NewStepper(axes, cfg.Limits, cfg.MaxFeed),
	}
	if cfg.Display {
		display, err := NewDisplay(bus, cfg.DisplayAddr, cfg.DisplayWidth, cfg.DisplayHeight)
		if err != nil {
			return nil, err
		}
		devices = append(devices, display)
	}
	if cfg.Battery {
		devices = append(devices, NewBattery(bus, cfg.BatteryAddr))
	}
	if cfg.IMU {
		devices = append(devices, NewIMU(bus, cfg.IMUAddr))
	}

	r := NewRegistry()
	for _, d := range devices {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func saturate(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
