package protocol

import (
	"fmt"
	"strconv"
)

// HandlerFunc processes one request. It must answer through w exactly once
// before returning. Neither w nor req may be retained after the call.
type HandlerFunc func(w *Responder, req *Request)

// Handler binds an opcode to its signature and callback. The engine rejects
// requests whose argument count or string presence does not match before
// the callback runs.
type Handler struct {
	Opcode         byte
	Name           string
	Args           int
	RequiresString bool
	Func           HandlerFunc
}

// HandlerTable is an ordered list of handlers. Lookup returns the first
// entry with a matching opcode.
type HandlerTable []Handler

// Lookup returns the first handler registered for opcode.
func (t HandlerTable) Lookup(opcode byte) (*Handler, bool) {
	for i := range t {
		if t[i].Opcode == opcode {
			return &t[i], true
		}
	}
	return nil, false
}

// Validate reports the first entry that could never be dispatched correctly:
// an invalid opcode, a shadowed duplicate, an impossible argument count, or
// a missing callback.
func (t HandlerTable) Validate() error {
	seen := make(map[byte]int, len(t))
	for i, h := range t {
		if !IsOpcode(h.Opcode) {
			return fmt.Errorf("handler %d: invalid opcode %q", i, h.Opcode)
		}
		if prev, dup := seen[h.Opcode]; dup {
			return fmt.Errorf("handler %d: opcode %q shadowed by handler %d", i, h.Opcode, prev)
		}
		seen[h.Opcode] = i
		if h.Args < 0 || h.Args > MaxArguments {
			return fmt.Errorf("handler %q: argument count %d out of range", h.Opcode, h.Args)
		}
		if h.Func == nil {
			return fmt.Errorf("handler %q: nil callback", h.Opcode)
		}
	}
	return nil
}

// Describe returns one line per handler: opcode, name and signature.
func (t HandlerTable) Describe() []string {
	lines := make([]string, 0, len(t))
	for _, h := range t {
		line := string(h.Opcode) + " args=" + strconv.Itoa(h.Args) +
			" string=" + strconv.FormatBool(h.RequiresString)
		if h.Name != "" {
			line += " " + h.Name
		}
		lines = append(lines, line)
	}
	return lines
}
