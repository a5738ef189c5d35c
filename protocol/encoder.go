package protocol

import "strconv"

const hexDigits = "0123456789abcdef"

// MaxFrameLen bounds an encoded frame: start marker, payload, metadata and
// CR LF.
const MaxFrameLen = 1 + MaxPayloadLen + 5 + 2

// Request is a decoded request as handed to a handler. The host builds the
// same structure to encode a request.
type Request struct {
	Opcode    byte
	Args      []int16
	Str       string
	HasString bool
	ID        uint8
	HasID     bool
}

// AppendFrame appends a complete frame carrying payload to dst. Payload
// bytes equal to ':' are written as '-'. Without an id the frame carries
// the unchecked dummy metadata.
func AppendFrame(dst []byte, payload []byte, id uint8, hasID bool) []byte {
	var crc Checksum
	crc.Start(0)

	dst = append(dst, FrameStart)
	crc.Update(FrameStart)
	for _, c := range payload {
		if c == MetadataStart {
			c = '-'
		}
		dst = append(dst, c)
		crc.Update(c)
	}

	dst = append(dst, MetadataStart)
	if !hasID {
		dst = append(dst, DummyMarker, DummyMarker, DummyMarker, DummyMarker)
		return append(dst, '\r', '\n')
	}

	crc.Update(MetadataStart)
	hi, lo := hexDigits[id>>4], hexDigits[id&0x0f]
	crc.Update(hi)
	crc.Update(lo)
	sum := crc.Finalize()
	dst = append(dst, hi, lo, hexDigits[sum>>4], hexDigits[sum&0x0f])
	return append(dst, '\r', '\n')
}

// AppendRequest validates r and appends its frame to dst.
func AppendRequest(dst []byte, r *Request) ([]byte, error) {
	if !IsOpcode(r.Opcode) {
		return dst, ErrInvalidOpcode
	}
	if len(r.Args) > MaxArguments {
		return dst, ErrTooManyValues
	}
	if r.HasString && !ValidString(r.Str) {
		return dst, ErrInvalidString
	}

	var scratch [2 * MaxFrameLen]byte
	payload := append(scratch[:0], r.Opcode)
	payload = appendArgs(payload, r.Args, r.Str, r.HasString)
	if len(payload) > MaxPayloadLen {
		return dst, ErrPayloadTooLong
	}
	return AppendFrame(dst, payload, r.ID, r.HasID), nil
}

// EncodeRequest returns the frame for r.
func EncodeRequest(r *Request) ([]byte, error) {
	return AppendRequest(make([]byte, 0, MaxFrameLen), r)
}

// appendOKPayload encodes a success without data: the bare opcode.
func appendOKPayload(dst []byte, opcode byte) []byte {
	return append(dst, opcode)
}

// appendDataPayload encodes a success with data: opcode[0,v1,...,vn].
func appendDataPayload(dst []byte, opcode byte, values []int16, str string, hasStr bool) []byte {
	dst = append(dst, opcode, '[', '0')
	for _, v := range values {
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	if hasStr {
		dst = append(dst, ',', '"')
		dst = append(dst, str...)
		dst = append(dst, '"')
	}
	return append(dst, ']')
}

// appendErrorPayload encodes a failure: _[code] or _[code,"message"]. The
// message is reduced to the string charset and truncated.
func appendErrorPayload(dst []byte, code Code, message string) []byte {
	dst = append(dst, ErrorOpcode, '[')
	dst = strconv.AppendInt(dst, int64(code), 10)
	if message != "" {
		dst = append(dst, ',', '"')
		n := 0
		for i := 0; i < len(message) && n < MaxStringLen; i++ {
			if IsStringChar(message[i]) {
				dst = append(dst, message[i])
				n++
			}
		}
		dst = append(dst, '"')
	}
	return append(dst, ']')
}

// appendLogPayload encodes a diagnostic: '!' followed by the text with line
// breaks flattened, truncated to fit a frame.
func appendLogPayload(dst []byte, message string) []byte {
	dst = append(dst, LogOpcode)
	for i := 0; i < len(message) && i < MaxPayloadLen-1; i++ {
		c := message[i]
		if c == '\r' || c == '\n' {
			c = ' '
		}
		dst = append(dst, c)
	}
	return dst
}

func appendArgs(dst []byte, values []int16, str string, hasStr bool) []byte {
	if len(values) == 0 && !hasStr {
		return dst
	}
	dst = append(dst, '[')
	for i, v := range values {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	if hasStr {
		if len(values) > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '"')
		dst = append(dst, str...)
		dst = append(dst, '"')
	}
	return append(dst, ']')
}

// ValidString reports whether s can be sent as a string argument.
func ValidString(s string) bool {
	if len(s) > MaxStringLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsStringChar(s[i]) {
			return false
		}
	}
	return true
}
