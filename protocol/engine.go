package protocol

import "io"

// legacyNoID is the last-id value firmware used to mean "nothing handled
// yet". With WithLegacyIDSentinel a first request carrying this id is
// reported as a duplicate.
const legacyNoID = 255

// Observer receives engine events. Implementations must not block; they run
// inside Poll.
type Observer interface {
	// FrameError is called for every frame rejected by the extractor.
	FrameError(code Code)
	// Duplicate is called when a request repeats the last handled id.
	Duplicate(id uint8)
	// Dispatch is called right before a handler runs.
	Dispatch(opcode byte)
	// Response is called for every response frame written. opcode is the
	// request opcode, or 0 when the request could not be decoded.
	Response(opcode byte, code Code)
	// Log is called for every diagnostic frame written.
	Log(message string)
}

type nopObserver struct{}

func (nopObserver) FrameError(Code) {}
func (nopObserver) Duplicate(uint8) {}
func (nopObserver) Dispatch(byte) {}
func (nopObserver) Response(byte, Code) {}
func (nopObserver) Log(string) {}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver routes engine events to o.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLegacyIDSentinel makes the engine start with 255 as its last handled
// id, as older firmware did.
func WithLegacyIDSentinel() EngineOption {
	return func(e *Engine) {
		e.legacyID = true
	}
}

// Engine is the device side of the protocol: it reads frames from a
// Transport, dispatches them to handlers and writes exactly one response per
// frame. It is driven by Poll and is not safe for concurrent use.
type Engine struct {
	transport Transport
	handlers  HandlerTable
	observer  Observer

	envelope  EnvelopeParser
	decoder   MessageParser
	request   Request
	responder Responder

	lastID    uint8
	hasLastID bool
	legacyID  bool

	scratch [128]byte
	out     [2 * MaxFrameLen]byte
}

// NewEngine creates an engine reading from t and dispatching to handlers.
func NewEngine(t Transport, handlers HandlerTable, opts ...EngineOption) *Engine {
	e := &Engine{
		transport: t,
		handlers:  handlers,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// RegisterHandlers replaces the handler table.
func (e *Engine) RegisterHandlers(handlers HandlerTable) {
	e.handlers = handlers
}

// Handlers returns the current handler table.
func (e *Engine) Handlers() HandlerTable {
	return e.handlers
}

// Reset drops any partial frame and forgets the last handled id, as for a
// new connection.
func (e *Engine) Reset() {
	e.envelope.Reset()
	e.decoder.Reset()
	e.lastID = 0
	e.hasLastID = false
	if e.legacyID {
		e.lastID = legacyNoID
		e.hasLastID = true
	}
}

// Poll consumes every byte the transport has available. Complete frames are
// handled before Poll returns. The first transport error stops the loop and
// is returned.
func (e *Engine) Poll() error {
	if e.transport == nil {
		return ErrNoTransport
	}
	for e.transport.Available() {
		c, err := e.transport.ReadByte()
		if err != nil {
			if err == ErrNoData {
				return nil
			}
			return err
		}
		switch e.envelope.Process(c) {
		case StatusComplete:
			if err := e.handleMessage(e.envelope.Frame()); err != nil {
				return err
			}
		case StatusError:
			code := e.envelope.Err()
			e.observer.FrameError(code)
			if err := e.sendError(nil, 0, code, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) handleMessage(f *Frame) error {
	if f.HasID && e.hasLastID && f.ID == e.lastID {
		e.observer.Duplicate(f.ID)
		return e.sendError(f, 0, DuplicateMessage, "")
	}

	msg, err := e.decoder.Parse(f.Terminated())
	if err != nil {
		return e.sendError(f, 0, CodeOf(err), "")
	}

	h, ok := e.handlers.Lookup(msg.Opcode)
	if !ok {
		return e.sendError(f, msg.Opcode, UnknownOpcode, "")
	}
	switch {
	case msg.Len() != h.Args:
		return e.sendError(f, msg.Opcode, WrongArgumentCount, "")
	case h.RequiresString && !msg.HasString:
		return e.sendError(f, msg.Opcode, MissingStringArgument, "")
	case !h.RequiresString && msg.HasString:
		return e.sendError(f, msg.Opcode, UnexpectedStringArgument, "")
	}

	e.request = Request{
		Opcode:    msg.Opcode,
		Args:      msg.Args(),
		HasString: msg.HasString,
		ID:        f.ID,
		HasID:     f.HasID,
	}
	if msg.HasString {
		e.request.Str = msg.Str()
	}
	e.responder.reset(e, f, msg.Opcode)
	e.observer.Dispatch(msg.Opcode)
	e.invoke(h)

	if !e.responder.used {
		return e.sendError(f, msg.Opcode, HandlerDidNotRespond, "")
	}
	return e.responder.err
}

// invoke runs the handler, converting a panic into a missing response.
func (e *Engine) invoke(h *Handler) {
	defer func() {
		if r := recover(); r != nil {
			_ = e.Log("handler " + string(h.Opcode) + " panicked")
		}
	}()
	h.Func(&e.responder, &e.request)
}

// Log writes an out-of-band diagnostic frame. It never carries an id and
// the host never answers it.
func (e *Engine) Log(message string) error {
	if e.transport == nil {
		return ErrNoTransport
	}
	payload := appendLogPayload(e.scratch[:0], message)
	e.observer.Log(message)
	return e.write(AppendFrame(e.out[:0], payload, 0, false))
}

func (e *Engine) sendSuccess(f *Frame, opcode byte, payload []byte) error {
	if err := e.write(AppendFrame(e.out[:0], payload, f.ID, f.HasID)); err != nil {
		return err
	}
	if f.HasID {
		e.lastID = f.ID
		e.hasLastID = true
	}
	e.observer.Response(opcode, OK)
	return nil
}

// sendError answers f with an error. A nil frame stands for a frame that
// was rejected before its metadata could be trusted.
func (e *Engine) sendError(f *Frame, opcode byte, code Code, message string) error {
	var id uint8
	hasID := false
	if f != nil {
		id, hasID = f.ID, f.HasID
	}
	payload := appendErrorPayload(e.scratch[:0], code, message)
	if err := e.write(AppendFrame(e.out[:0], payload, id, hasID)); err != nil {
		return err
	}
	e.observer.Response(opcode, code)
	return nil
}

func (e *Engine) write(frame []byte) error {
	if w, ok := e.transport.(io.Writer); ok {
		_, err := w.Write(frame)
		return err
	}
	for _, c := range frame {
		if err := e.transport.WriteByte(c); err != nil {
			return err
		}
	}
	return nil
}
