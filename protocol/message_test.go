package protocol

import (
	"reflect"
	"strings"
	"testing"
)

func terminated(s string) []byte {
	return append([]byte(s), 0)
}

func TestMessageParse(t *testing.T) {
	twelve := "a[" + strings.TrimSuffix(strings.Repeat("1,", MaxArguments), ",") + "]"

	tests := []struct {
		payload   string
		opcode    byte
		args      []int16
		str       string
		hasString bool
	}{
		{"V", 'V', nil, "", false},
		{"?", '?', nil, "", false},
		{"V[100,-200]", 'V', []int16{100, -200}, "", false},
		{"a[32767,-32768]", 'a', []int16{32767, -32768}, "", false},
		{"b[-0,007]", 'b', []int16{0, 7}, "", false},
		{`D[1,2,"hi there"]`, 'D', []int16{1, 2}, "hi there", true},
		{`D["x",1]`, 'D', []int16{1}, "x", true},
		{`s[""]`, 's', nil, "", true},
		{`s["a:b;c'd[e]"]`, 's', nil, "a:b;c'd[e]", true},
		{twelve, 'a', []int16{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, "", false},
		{twelve[:len(twelve)-1] + `,"s"]`, 'a', []int16{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, "s", true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			msg, err := NewMessageParser().Parse(terminated(tt.payload))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if msg.Opcode != tt.opcode {
				t.Errorf("Expected opcode %q, got %q", tt.opcode, msg.Opcode)
			}
			if len(tt.args) == 0 {
				if msg.Len() != 0 {
					t.Errorf("Expected no args, got %v", msg.Args())
				}
			} else if !reflect.DeepEqual(msg.Args(), tt.args) {
				t.Errorf("Expected args %v, got %v", tt.args, msg.Args())
			}
			if msg.HasString != tt.hasString || msg.Str() != tt.str {
				t.Errorf("Expected string %q (%v), got %q (%v)", tt.str, tt.hasString, msg.Str(), msg.HasString)
			}
		})
	}
}

func TestMessageParseErrors(t *testing.T) {
	thirteen := "a[" + strings.TrimSuffix(strings.Repeat("1,", MaxArguments+1), ",") + "]"

	tests := []struct {
		payload string
		code    Code
	}{
		{"#", InvalidOpcode},
		{"_[1]", InvalidOpcode},
		{"[1]", InvalidOpcode},
		{"V[]", UnexpectedChar},
		{"V[1,]", UnexpectedChar},
		{"V[-]", UnexpectedChar},
		{"V[--1]", UnexpectedChar},
		{"V1", UnexpectedChar},
		{"V[1]x", UnexpectedChar},
		{"V[1 ]", UnexpectedChar},
		{`V["a"1]`, UnexpectedChar},
		{"V[1,2", UnexpectedChar},
		{"V[32768]", ValueOutOfRange},
		{"V[-32769]", ValueOutOfRange},
		{"V[100000]", ValueOutOfRange},
		{thirteen, TooManyArguments},
		{`D["` + strings.Repeat("x", MaxStringLen+1) + `"]`, StringTooLong},
		{`D["a#"]`, InvalidStringChar},
		{`D["a"b"]`, UnexpectedChar},
		{`D["a","b"]`, TooManyStrings},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			_, err := NewMessageParser().Parse(terminated(tt.payload))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if CodeOf(err) != tt.code {
				t.Errorf("Expected %v, got %v", tt.code, CodeOf(err))
			}
		})
	}
}

func TestMessageMaxString(t *testing.T) {
	s := strings.Repeat("x", MaxStringLen)
	msg, err := NewMessageParser().Parse(terminated(`D["` + s + `"]`))
	if err != nil {
		t.Fatalf("Expected a %d char string to fit: %v", MaxStringLen, err)
	}
	if msg.Str() != s {
		t.Errorf("Expected %q, got %q", s, msg.Str())
	}
}

func TestMessageParseUnterminated(t *testing.T) {
	_, err := NewMessageParser().Parse([]byte("V"))
	if CodeOf(err) != UnexpectedChar {
		t.Errorf("Expected UnexpectedChar for a missing terminator, got %v", err)
	}
}

func TestResponseParserAcceptsErrorOpcode(t *testing.T) {
	msg, err := NewResponseParser().Parse(terminated(`_[-15,"dup"]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Opcode != ErrorOpcode {
		t.Errorf("Expected opcode _, got %q", msg.Opcode)
	}
	if msg.Len() != 1 || msg.Args()[0] != int16(DuplicateMessage) {
		t.Errorf("Expected code %d, got %v", DuplicateMessage, msg.Args())
	}
	if msg.Str() != "dup" {
		t.Errorf("Expected message dup, got %q", msg.Str())
	}
}

func TestMessageParserResetsAfterError(t *testing.T) {
	p := NewMessageParser()
	for _, c := range []byte("V[x") {
		if p.Process(c) == StatusError {
			break
		}
	}
	if p.Err() != UnexpectedChar {
		t.Fatalf("Expected UnexpectedChar, got %v", p.Err())
	}

	var status Status
	for _, c := range terminated("P[5]") {
		status = p.Process(c)
	}
	if status != StatusComplete {
		t.Fatalf("Expected the next message to decode, got err %v", p.Err())
	}
	if m := p.Message(); m.Opcode != 'P' || m.Len() != 1 || m.Args()[0] != 5 {
		t.Errorf("Unexpected message %q %v", m.Opcode, m.Args())
	}
}

func TestIsStringChar(t *testing.T) {
	for _, c := range []byte("azAZ09 -_!?%()[]{}&=+*/.,;:'") {
		if !IsStringChar(c) {
			t.Errorf("Expected %q to be allowed", c)
		}
	}
	for _, c := range []byte("\"#\\<>@$^|~`\r\n\x00\x7f") {
		if IsStringChar(c) {
			t.Errorf("Expected %q to be rejected", c)
		}
	}
}
