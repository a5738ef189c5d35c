//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"
	"time"
)

var errDisabled = errors.New("drivers disabled")

type axisPin struct {
	step, dir machine.Pin
}

// GPIOAxes drives three step/dir stepper drivers by toggling GPIOs. Moves
// are blocking and linear: every axis steps on a common Bresenham schedule
// so the move arrives on all axes at once.
type GPIOAxes struct {
	pins    [3]axisPin
	enable  machine.Pin
	pos     [3]int32
	enabled bool
}

func NewGPIOAxes(pins [3]axisPin, enable machine.Pin) *GPIOAxes {
	a := &GPIOAxes{pins: pins, enable: enable}
	for _, p := range pins {
		p.step.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.dir.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.step.Low()
	}
	// Enable is active low on common drivers
	enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	enable.High()
	return a
}

// Move steps by delta at feed steps per second along the longest axis.
func (a *GPIOAxes) Move(dx, dy, dz int32, feed int16) error {
	if !a.enabled {
		return errDisabled
	}
	delta := [3]int32{dx, dy, dz}
	var count [3]int32
	var longest int32
	for i, d := range delta {
		a.pins[i].dir.Set(d < 0)
		if d < 0 {
			d = -d
		}
		count[i] = d
		if d > longest {
			longest = d
		}
	}
	if longest == 0 {
		return nil
	}

	interval := time.Second / time.Duration(feed)
	var acc [3]int32
	for n := int32(0); n < longest; n++ {
		for i := range count {
			acc[i] += count[i]
			if acc[i] >= longest {
				acc[i] -= longest
				a.pulse(a.pins[i].step)
				if delta[i] < 0 {
					a.pos[i]--
				} else {
					a.pos[i]++
				}
			}
		}
		time.Sleep(interval)
	}
	return nil
}

// pulse holds the step line high for a few microseconds.
func (a *GPIOAxes) pulse(pin machine.Pin) {
	pin.High()
	for i := 0; i < 300; i++ {
	}
	pin.Low()
}

func (a *GPIOAxes) Home() error {
	a.pos = [3]int32{}
	return nil
}

func (a *GPIOAxes) Enable(on bool) error {
	a.enabled = on
	a.enable.Set(!on)
	return nil
}

func (a *GPIOAxes) Enabled() bool { return a.enabled }

func (a *GPIOAxes) Position() [3]int32 { return a.pos }
