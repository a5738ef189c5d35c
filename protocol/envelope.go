package protocol

// Frame delimiters and limits
const (
	FrameStart    = '#'
	MetadataStart = ':'
	DummyMarker   = 'x'

	// MaxPayloadLen is the largest payload a frame may carry, excluding
	// the terminator appended by the extractor.
	MaxPayloadLen = 58
)

// Status is the result of feeding one character to a parser.
type Status uint8

const (
	StatusPending Status = iota
	StatusComplete
	StatusError
)

// Frame is a complete, checksum-verified frame. The payload is stored in a
// fixed array so its capacity cannot be exceeded.
type Frame struct {
	payload [MaxPayloadLen + 1]byte
	length  int
	HasID   bool
	ID      uint8
}

// Payload returns the frame payload without the terminator. The slice
// aliases the frame and is only valid until the next frame starts.
func (f *Frame) Payload() []byte {
	return f.payload[:f.length]
}

// Terminated returns the payload followed by its 0 terminator.
func (f *Frame) Terminated() []byte {
	return f.payload[:f.length+1]
}

func (f *Frame) reset() {
	f.length = 0
	f.payload[0] = 0
	f.HasID = false
	f.ID = 0
}

// append adds c to the payload and reports false if it is already full.
func (f *Frame) append(c byte) bool {
	if f.length >= MaxPayloadLen {
		return false
	}
	f.payload[f.length] = c
	f.length++
	return true
}

func (f *Frame) terminate() {
	f.payload[f.length] = 0
}

type envelopeState uint8

const (
	awaitStart envelopeState = iota
	awaitPayloadOrMetadata
	awaitIDChar1
	awaitIDChar2
	awaitChecksum1
	awaitChecksum2
	awaitDummy2
	awaitDummy3
	awaitDummy4
	awaitCR
	awaitLF
)

// EnvelopeParser extracts frames from a character stream. It is cyclic:
// after a complete frame or an error it waits for the next start marker.
// The zero value is ready to use.
type EnvelopeParser struct {
	state   envelopeState
	frame   Frame
	crc     Checksum
	claimed uint8
	err     Code
}

// Process feeds one character to the parser. On StatusComplete the frame is
// available from Frame; on StatusError the cause is available from Err and
// the parser is already waiting for the next start marker.
func (p *EnvelopeParser) Process(c byte) Status {
	switch p.state {
	case awaitStart:
		if c == FrameStart {
			p.frame.reset()
			p.err = OK
			p.crc.Start(0)
			p.crc.Update(c)
			p.state = awaitPayloadOrMetadata
		}
		return StatusPending

	case awaitPayloadOrMetadata:
		switch c {
		case MetadataStart:
			p.crc.Update(c)
			p.state = awaitIDChar1
		case '\r', '\n':
			return p.fail(MissingMetadata)
		default:
			if !p.frame.append(c) {
				return p.fail(FrameTooLong)
			}
			p.crc.Update(c)
		}
		return StatusPending

	case awaitIDChar1:
		if c == DummyMarker {
			p.frame.HasID = false
			p.state = awaitDummy2
			return StatusPending
		}
		v, ok := hexValue(c)
		if !ok {
			return p.fail(InvalidID)
		}
		p.frame.HasID = true
		p.frame.ID = v
		p.crc.Update(c)
		p.state = awaitIDChar2
		return StatusPending

	case awaitIDChar2:
		v, ok := hexValue(c)
		if !ok {
			return p.fail(InvalidID)
		}
		p.frame.ID = p.frame.ID<<4 | v
		p.crc.Update(c)
		p.state = awaitChecksum1
		return StatusPending

	case awaitChecksum1:
		v, ok := hexValue(c)
		if !ok {
			return p.fail(InvalidChecksumDigits)
		}
		p.claimed = v
		p.state = awaitChecksum2
		return StatusPending

	case awaitChecksum2:
		v, ok := hexValue(c)
		if !ok {
			return p.fail(InvalidChecksumDigits)
		}
		p.claimed = p.claimed<<4 | v
		if p.claimed != p.crc.Finalize() {
			return p.fail(ChecksumMismatch)
		}
		p.state = awaitCR
		return StatusPending

	case awaitDummy2, awaitDummy3, awaitDummy4:
		if c != DummyMarker {
			return p.fail(InvalidDummyMetadata)
		}
		if p.state == awaitDummy4 {
			p.state = awaitCR
		} else {
			p.state++
		}
		return StatusPending

	case awaitCR:
		if c != '\r' {
			return p.fail(ExpectedFrameEnd)
		}
		p.frame.terminate()
		p.state = awaitLF
		return StatusPending

	case awaitLF:
		if c != '\n' {
			return p.fail(ExpectedFrameEnd)
		}
		p.state = awaitStart
		return StatusComplete
	}

	// Unreachable unless the state was corrupted
	return p.fail(UnexpectedChar)
}

func (p *EnvelopeParser) fail(code Code) Status {
	p.err = code
	p.state = awaitStart
	return StatusError
}

// Frame returns the last completed frame.
func (p *EnvelopeParser) Frame() *Frame {
	return &p.frame
}

// Err returns the code of the last error, or OK.
func (p *EnvelopeParser) Err() Code {
	return p.err
}

// Reset drops any partial frame.
func (p *EnvelopeParser) Reset() {
	p.state = awaitStart
	p.err = OK
	p.frame.reset()
}

// hexValue decodes a lowercase hex digit.
func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
