//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"romiserial/peripherals"
	"romiserial/protocol"
)

// Board wiring
const (
	i2cFrequency = 400000

	leftPWMPin  = machine.GPIO8
	leftDirPin  = machine.GPIO10
	rightPWMPin = machine.GPIO9
	rightDirPin = machine.GPIO11
)

var axisPins = [3]axisPin{
	{step: machine.GPIO2, dir: machine.GPIO3},
	{step: machine.GPIO6, dir: machine.GPIO7},
	{step: machine.GPIO12, dir: machine.GPIO13},
}

const enablePin = machine.GPIO14

var (
	transport *usbTransport
	engine    *protocol.Engine

	// Debug counters
	pollErrors uint32
	panics     uint32
)

func main() {
	// Disable the watchdog left running by a previous reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	transport = newUSBTransport()

	// I2C0 default pins: SDA=GP4, SCL=GP5
	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{Frequency: i2cFrequency}); err != nil {
		return
	}

	motors, err := NewPWMMotors(leftPWMPin, leftDirPin, rightPWMPin, rightDirPin)
	if err != nil {
		return
	}
	axes := NewGPIOAxes(axisPins, enablePin)

	cfg := peripherals.DefaultConfig()
	reg, err := peripherals.New(cfg, bus, motors, axes)
	if err != nil {
		// Boards without the LCD still serve everything else
		cfg.Display = false
		if reg, err = peripherals.New(cfg, bus, motors, axes); err != nil {
			return
		}
	}
	engine = protocol.NewEngine(transport, reg.Table())

	for {
		// Recover from handler panics the engine did not catch
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
					engine.Reset()
				}
			}()

			if transport.reconnected() {
				// A new host session starts with no remembered id
				engine.Reset()
			}
			if err := engine.Poll(); err != nil {
				pollErrors++
			}
		}()

		// Yield to the USB stack
		time.Sleep(10 * time.Microsecond)
	}
}
