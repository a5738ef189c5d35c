package protocol

import "math"

// Message limits
const (
	MaxArguments = 12
	MaxStringLen = 32

	// ErrorOpcode marks an error response. It is only accepted by a
	// response parser.
	ErrorOpcode = '_'
	// LogOpcode marks an out-of-band diagnostic frame.
	LogOpcode = '!'
)

// Message is a decoded payload: an opcode, up to MaxArguments integers, and
// at most one string.
type Message struct {
	Opcode    byte
	args      [MaxArguments]int16
	count     int
	str       [MaxStringLen]byte
	strLen    int
	HasString bool
}

// Args returns the integer arguments in order. The slice aliases the
// message.
func (m *Message) Args() []int16 {
	return m.args[:m.count]
}

// Len returns the number of integer arguments.
func (m *Message) Len() int {
	return m.count
}

// Str returns the string argument, or "" if the message has none.
func (m *Message) Str() string {
	return string(m.str[:m.strLen])
}

func (m *Message) reset() {
	m.Opcode = 0
	m.count = 0
	m.strLen = 0
	m.HasString = false
}

type messageState uint8

const (
	waitOpcode messageState = iota
	waitBracketOrEnd
	waitValue
	waitDigit
	waitDigitsOrCommaOrBracket
	waitString
	waitCommaOrBracket
	waitEnd
)

// MessageParser decodes a terminated payload one character at a time. It
// resets to waiting for an opcode after every complete message and after
// every error.
type MessageParser struct {
	state     messageState
	msg       Message
	value     int32
	sign      int32
	err       Code
	responses bool
}

// NewMessageParser returns a parser for requests.
func NewMessageParser() *MessageParser {
	return &MessageParser{}
}

// NewResponseParser returns a parser that also accepts the error opcode.
func NewResponseParser() *MessageParser {
	return &MessageParser{responses: true}
}

// Process feeds one character. The payload terminator is 0.
func (p *MessageParser) Process(c byte) Status {
	switch p.state {
	case waitOpcode:
		if !IsOpcode(c) && !(p.responses && c == ErrorOpcode) {
			return p.fail(InvalidOpcode)
		}
		p.msg.reset()
		p.err = OK
		p.msg.Opcode = c
		p.state = waitBracketOrEnd
		return StatusPending

	case waitBracketOrEnd:
		switch c {
		case '[':
			p.state = waitValue
			return StatusPending
		case 0:
			return p.complete()
		}
		return p.fail(UnexpectedChar)

	case waitValue:
		switch {
		case c == '-':
			if p.msg.count >= MaxArguments {
				return p.fail(TooManyArguments)
			}
			p.value, p.sign = 0, -1
			p.state = waitDigit
		case isDigit(c):
			if p.msg.count >= MaxArguments {
				return p.fail(TooManyArguments)
			}
			p.value, p.sign = 0, 1
			if !p.accumulate(c) {
				return p.fail(ValueOutOfRange)
			}
			p.state = waitDigitsOrCommaOrBracket
		case c == '"':
			if p.msg.HasString {
				return p.fail(TooManyStrings)
			}
			p.msg.strLen = 0
			p.state = waitString
		default:
			return p.fail(UnexpectedChar)
		}
		return StatusPending

	case waitDigit:
		if !isDigit(c) {
			return p.fail(UnexpectedChar)
		}
		if !p.accumulate(c) {
			return p.fail(ValueOutOfRange)
		}
		p.state = waitDigitsOrCommaOrBracket
		return StatusPending

	case waitDigitsOrCommaOrBracket:
		switch {
		case isDigit(c):
			if !p.accumulate(c) {
				return p.fail(ValueOutOfRange)
			}
		case c == ',':
			p.pushValue()
			p.state = waitValue
		case c == ']':
			p.pushValue()
			p.state = waitEnd
		default:
			return p.fail(UnexpectedChar)
		}
		return StatusPending

	case waitString:
		if c == '"' {
			p.msg.HasString = true
			p.state = waitCommaOrBracket
			return StatusPending
		}
		if !IsStringChar(c) {
			return p.fail(InvalidStringChar)
		}
		if p.msg.strLen >= MaxStringLen {
			return p.fail(StringTooLong)
		}
		p.msg.str[p.msg.strLen] = c
		p.msg.strLen++
		return StatusPending

	case waitCommaOrBracket:
		switch c {
		case ',':
			p.state = waitValue
			return StatusPending
		case ']':
			p.state = waitEnd
			return StatusPending
		}
		return p.fail(UnexpectedChar)

	case waitEnd:
		if c != 0 {
			return p.fail(UnexpectedChar)
		}
		return p.complete()
	}

	return p.fail(UnexpectedChar)
}

// accumulate folds one digit into the current value and reports whether it
// still fits in an int16.
func (p *MessageParser) accumulate(c byte) bool {
	p.value = 10*p.value + p.sign*int32(c-'0')
	return p.value >= math.MinInt16 && p.value <= math.MaxInt16
}

func (p *MessageParser) pushValue() {
	p.msg.args[p.msg.count] = int16(p.value)
	p.msg.count++
}

func (p *MessageParser) complete() Status {
	p.state = waitOpcode
	return StatusComplete
}

func (p *MessageParser) fail(code Code) Status {
	p.err = code
	p.state = waitOpcode
	return StatusError
}

// Parse runs the state machine over a terminated payload and returns the
// decoded message. The message aliases the parser and is only valid until
// the next call. A payload that ends before its terminator is reported as
// UnexpectedChar.
func (p *MessageParser) Parse(payload []byte) (*Message, error) {
	p.Reset()
	for _, c := range payload {
		switch p.Process(c) {
		case StatusComplete:
			return &p.msg, nil
		case StatusError:
			return nil, &Error{Code: p.err}
		}
	}
	p.Reset()
	return nil, &Error{Code: UnexpectedChar}
}

// Message returns the last decoded message.
func (p *MessageParser) Message() *Message {
	return &p.msg
}

// Err returns the code of the last error, or OK.
func (p *MessageParser) Err() Code {
	return p.err
}

// Reset drops any partially decoded message.
func (p *MessageParser) Reset() {
	p.state = waitOpcode
	p.err = OK
	p.msg.reset()
}

// IsOpcode reports whether c may be used as a request opcode.
func IsOpcode(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '?'
}

// IsStringChar reports whether c may appear inside a string argument.
func IsStringChar(c byte) bool {
	if isLetter(c) || isDigit(c) || c == ' ' {
		return true
	}
	switch c {
	case '-', '_', '!', '?', '%', '(', ')', '[', ']', '{', '}',
		'&', '=', '+', '*', '/', '.', ',', ';', ':', '\'':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
