package protocol

// Responder answers the request currently being dispatched. The first call
// to OK, Send, SendString or Error consumes it; later calls return
// ErrAlreadyResponded and write nothing.
type Responder struct {
	engine *Engine
	frame  *Frame
	opcode byte
	used   bool
	err    error
}

func (w *Responder) reset(e *Engine, f *Frame, opcode byte) {
	w.engine = e
	w.frame = f
	w.opcode = opcode
	w.used = false
	w.err = nil
}

// OK sends a success response without data.
func (w *Responder) OK() error {
	if w.used {
		return ErrAlreadyResponded
	}
	payload := appendOKPayload(w.engine.scratch[:0], w.opcode)
	return w.success(payload)
}

// Send sends a success response carrying values.
func (w *Responder) Send(values ...int16) error {
	return w.send(values, "", false)
}

// SendString sends a success response carrying values and a string.
func (w *Responder) SendString(s string, values ...int16) error {
	if !ValidString(s) {
		return ErrInvalidString
	}
	return w.send(values, s, true)
}

func (w *Responder) send(values []int16, s string, hasStr bool) error {
	if w.used {
		return ErrAlreadyResponded
	}
	if len(values) == 0 && !hasStr {
		return w.OK()
	}
	// The leading status value takes one slot
	if len(values) > MaxArguments-1 {
		return ErrTooManyValues
	}
	payload := appendDataPayload(w.engine.scratch[:0], w.opcode, values, s, hasStr)
	if len(payload) > MaxPayloadLen {
		return ErrPayloadTooLong
	}
	return w.success(payload)
}

// Error sends an error response. It does not record the request id, so the
// same request may be retried and evaluated again.
func (w *Responder) Error(code Code, message string) error {
	if w.used {
		return ErrAlreadyResponded
	}
	w.used = true
	w.err = w.engine.sendError(w.frame, w.opcode, code, message)
	return w.err
}

// Responded reports whether a response has been sent.
func (w *Responder) Responded() bool {
	return w.used
}

func (w *Responder) success(payload []byte) error {
	w.used = true
	w.err = w.engine.sendSuccess(w.frame, w.opcode, payload)
	return w.err
}
