package protocol

import (
	"errors"
	"strconv"
)

// Code is a protocol error code. Codes are negative and identical on the
// host and on the firmware; zero means success.
type Code int16

// Error codes, in wire order
const (
	OK Code = 0

	// Framing
	FrameTooLong          Code = -1
	InvalidID             Code = -2
	InvalidChecksumDigits Code = -3
	ChecksumMismatch      Code = -4
	ExpectedFrameEnd      Code = -5
	MissingMetadata       Code = -6
	InvalidDummyMetadata  Code = -7

	// Payload grammar
	UnexpectedChar    Code = -8
	TooManyArguments  Code = -9
	ValueOutOfRange   Code = -10
	StringTooLong     Code = -11
	InvalidStringChar Code = -12
	TooManyStrings    Code = -13
	InvalidOpcode     Code = -14

	// Dispatch
	DuplicateMessage         Code = -15
	UnknownOpcode            Code = -16
	WrongArgumentCount       Code = -17
	MissingStringArgument    Code = -18
	UnexpectedStringArgument Code = -19
	HandlerDidNotRespond     Code = -20
)

var codeNames = map[Code]string{
	OK:                       "ok",
	FrameTooLong:             "frame too long",
	InvalidID:                "invalid id",
	InvalidChecksumDigits:    "invalid checksum digits",
	ChecksumMismatch:         "checksum mismatch",
	ExpectedFrameEnd:         "expected frame end",
	MissingMetadata:          "missing metadata",
	InvalidDummyMetadata:     "invalid dummy metadata",
	UnexpectedChar:           "unexpected char",
	TooManyArguments:         "too many arguments",
	ValueOutOfRange:          "value out of range",
	StringTooLong:            "string too long",
	InvalidStringChar:        "invalid string char",
	TooManyStrings:           "too many strings",
	InvalidOpcode:            "invalid opcode",
	DuplicateMessage:         "duplicate message",
	UnknownOpcode:            "unknown opcode",
	WrongArgumentCount:       "wrong argument count",
	MissingStringArgument:    "missing string argument",
	UnexpectedStringArgument: "unexpected string argument",
	HandlerDidNotRespond:     "handler did not respond",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}

// IsFraming reports whether the code was raised by the frame extractor.
func (c Code) IsFraming() bool {
	return c <= FrameTooLong && c >= InvalidDummyMetadata
}

// IsGrammar reports whether the code was raised by the payload decoder.
func (c Code) IsGrammar() bool {
	return c <= UnexpectedChar && c >= InvalidOpcode
}

// Error is an error response, either produced locally or received from the
// peer. Message is optional.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return "protocol: " + e.Code.String() + ": " + e.Message
	}
	return "protocol: " + e.Code.String()
}

// Is matches any *Error carrying the same code, so callers can write
// errors.Is(err, &protocol.Error{Code: protocol.DuplicateMessage}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the protocol code from err, or OK if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return OK
}

var (
	ErrAlreadyResponded = errors.New("protocol: handler already responded")
	ErrPayloadTooLong   = errors.New("protocol: payload does not fit in a frame")
	ErrInvalidString    = errors.New("protocol: invalid string argument")
	ErrInvalidOpcode    = errors.New("protocol: invalid opcode")
	ErrTooManyValues    = errors.New("protocol: too many values")
	ErrBufferFull       = errors.New("protocol: buffer full")
	ErrNoData           = errors.New("protocol: no data available")
	ErrNoTransport      = errors.New("protocol: no transport")
)
