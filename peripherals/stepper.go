package peripherals

import (
	"errors"
	"sync"

	"romiserial/protocol"
)

// ErrAxesDisabled is returned by MemoryAxes when asked to move while the
// drivers are off.
var ErrAxesDisabled = errors.New("axes disabled")

// Axes drives three stepper axes. Positions are absolute, in steps.
type Axes interface {
	Move(dx, dy, dz int32, feed int16) error
	Home() error
	Enable(on bool) error
	Enabled() bool
	Position() [3]int32
}

// MemoryAxes is an Axes that completes every move immediately.
type MemoryAxes struct {
	mu      sync.Mutex
	pos     [3]int32
	enabled bool
	moves   int
}

func (a *MemoryAxes) Move(dx, dy, dz int32, feed int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return ErrAxesDisabled
	}
	a.pos[0] += dx
	a.pos[1] += dy
	a.pos[2] += dz
	a.moves++
	return nil
}

func (a *MemoryAxes) Home() error {
	a.mu.Lock()
	a.pos = [3]int32{}
	a.mu.Unlock()
	return nil
}

func (a *MemoryAxes) Enable(on bool) error {
	a.mu.Lock()
	a.enabled = on
	a.mu.Unlock()
	return nil
}

func (a *MemoryAxes) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *MemoryAxes) Position() [3]int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

// Moves returns the number of moves executed.
func (a *MemoryAxes) Moves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moves
}

// Stepper serves the CNC requests:
//
//	M[dx,dy,dz,feed]  relative move
//	H                 home
//	E[on]             enable (1) or disable (0) the drivers
//	P                 position as [0,x,y,z]
//
// A move whose target leaves [-limit, limit] on any axis is rejected
// before anything moves.
type Stepper struct {
	axes    Axes
	limits  [3]int32
	maxFeed int16
}

func NewStepper(axes Axes, limits [3]int32, maxFeed int16) *Stepper {
	return &Stepper{axes: axes, limits: limits, maxFeed: maxFeed}
}

func (s *Stepper) Name() string { return "stepper" }

func (s *Stepper) Handlers() []protocol.Handler {
	return []protocol.Handler{
		{Opcode: 'M', Name: "move", Args: 4, Func: s.move},
		{Opcode: 'H', Name: "home", Func: s.home},
		{Opcode: 'E', Name: "enable", Args: 1, Func: s.enable},
		{Opcode: 'P', Name: "position", Func: s.position},
	}
}

func (s *Stepper) move(w *protocol.Responder, req *protocol.Request) {
	feed := req.Args[3]
	if feed <= 0 || feed > s.maxFeed {
		w.Error(CodeOutOfLimits, "feed")
		return
	}
	if !s.axes.Enabled() {
		w.Error(CodeNotEnabled, "axes disabled")
		return
	}

	pos := s.axes.Position()
	delta := [3]int32{int32(req.Args[0]), int32(req.Args[1]), int32(req.Args[2])}
	for i := range delta {
		target := pos[i] + delta[i]
		if target > s.limits[i] || target < -s.limits[i] {
			w.Error(CodeOutOfLimits, "axis "+string("xyz"[i]))
			return
		}
	}

	if err := s.axes.Move(delta[0], delta[1], delta[2], feed); err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	w.OK()
}

func (s *Stepper) home(w *protocol.Responder, req *protocol.Request) {
	if err := s.axes.Home(); err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	w.OK()
}

func (s *Stepper) enable(w *protocol.Responder, req *protocol.Request) {
	on := req.Args[0]
	if on != 0 && on != 1 {
		w.Error(protocol.ValueOutOfRange, "")
		return
	}
	if err := s.axes.Enable(on == 1); err != nil {
		w.Error(CodeDeviceError, err.Error())
		return
	}
	w.OK()
}

func (s *Stepper) position(w *protocol.Responder, req *protocol.Request) {
	pos := s.axes.Position()
	w.Send(saturate(pos[0]), saturate(pos[1]), saturate(pos[2]))
}

// Close disables the drivers.
func (s *Stepper) Close() error {
	return s.axes.Enable(false)
}
