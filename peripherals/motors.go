package peripherals

import (
	"sync"

	"romiserial/protocol"
)

// MotorDriver sets the speed of the two drive motors. Speeds are signed,
// positive forward.
type MotorDriver interface {
	SetSpeeds(left, right int16) error
	Speeds() (left, right int16)
}

// MemoryMotors is a MotorDriver that only records the last speeds.
type MemoryMotors struct {
	mu          sync.Mutex
	left, right int16
}

func (m *MemoryMotors) SetSpeeds(left, right int16) error {
	m.mu.Lock()
	m.left, m.right = left, right
	m.mu.Unlock()
	return nil
}

func (m *MemoryMotors) Speeds() (int16, int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.left, m.right
}

// Motors serves the brush motor requests:
//
//	V[left,right]  set speeds, clamped to the maximum
//	X              stop
//	v              read speeds as [0,left,right]
type Motors struct {
	driver   MotorDriver
	maxSpeed int16
}

func NewMotors(driver MotorDriver, maxSpeed int16) *Motors {
	if maxSpeed <= 0 {
		maxSpeed = 1
	}
	return &Motors{driver: driver, maxSpeed: maxSpeed}
}

func (m *Motors) Name() string { return "motors" }

func (m *Motors) Handlers() []protocol.Handler {
	return []protocol.Handler{
		{Opcode: 'V', Name: "set speeds", Args: 2, Func: m.setSpeeds},
		{Opcode: 'X', Name: "stop", Func: m.stop},
		{Opcode: 'v', Name: "read speeds", Func: m.readSpeeds},
	}
}

func (m *Motors) setSpeeds(w *protocol.Responder, req *protocol.Request) {
	left := clamp(req.Args[0], m.maxSpeed)
	right := clamp(req.Args[1], m.maxSpeed)
	if err := m.driver.SetSpeeds(left, right); err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	w.OK()
}

func (m *Motors) stop(w *protocol.Responder, req *protocol.Request) {
	if err := m.driver.SetSpeeds(0, 0); err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	w.OK()
}

func (m *Motors) readSpeeds(w *protocol.Responder, req *protocol.Request) {
	left, right := m.driver.Speeds()
	w.Send(left, right)
}

// Close stops the motors.
func (m *Motors) Close() error {
	return m.driver.SetSpeeds(0, 0)
}

func clamp(v, limit int16) int16 {
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return v
}
