//go:build rp2040 || rp2350

package main

import (
	"machine"
)

// motorPeriod is the PWM period in nanoseconds (20kHz, above hearing)
const motorPeriod = 50000

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type motorChannel struct {
	pwm     pwmPeripheral
	channel uint8
	dir     machine.Pin
}

// PWMMotors drives two brushed motors through H-bridges: one PWM pin for
// the duty cycle and one direction pin each. Speeds are scaled so that the
// peripheral maximum gives full duty.
type PWMMotors struct {
	left, right motorChannel
	speeds      [2]int16
	fullScale   int16
}

func NewPWMMotors(leftPWM, leftDir, rightPWM, rightDir machine.Pin) (*PWMMotors, error) {
	m := &PWMMotors{fullScale: 1000}
	var err error
	if m.left, err = newMotorChannel(leftPWM, leftDir); err != nil {
		return nil, err
	}
	if m.right, err = newMotorChannel(rightPWM, rightDir); err != nil {
		return nil, err
	}
	return m, nil
}

func newMotorChannel(pwmPin, dirPin machine.Pin) (motorChannel, error) {
	pwm := slicePeripheral(pwmPin)
	if err := pwm.Configure(machine.PWMConfig{Period: motorPeriod}); err != nil {
		return motorChannel{}, err
	}
	channel, err := pwm.Channel(pwmPin)
	if err != nil {
		return motorChannel{}, err
	}
	dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return motorChannel{pwm: pwm, channel: channel, dir: dirPin}, nil
}

func (m *PWMMotors) SetSpeeds(left, right int16) error {
	m.set(&m.left, left)
	m.set(&m.right, right)
	m.speeds = [2]int16{left, right}
	return nil
}

func (m *PWMMotors) Speeds() (int16, int16) {
	return m.speeds[0], m.speeds[1]
}

func (m *PWMMotors) set(c *motorChannel, speed int16) {
	c.dir.Set(speed < 0)
	magnitude := uint32(speed)
	if speed < 0 {
		magnitude = uint32(-int32(speed))
	}
	if magnitude > uint32(m.fullScale) {
		magnitude = uint32(m.fullScale)
	}
	c.pwm.Set(c.channel, magnitude*c.pwm.Top()/uint32(m.fullScale))
}

// slicePeripheral returns the PWM slice driving pin: GPIO N belongs to
// slice (N>>1)&7.
func slicePeripheral(pin machine.Pin) pwmPeripheral {
	switch (uint8(pin) >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
