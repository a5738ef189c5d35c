package protocol

import (
	"strings"
	"testing"
)

// feed runs input through p and returns the first non-pending status with
// the index of the character that produced it.
func feed(p *EnvelopeParser, input string) (Status, int) {
	for i := 0; i < len(input); i++ {
		if s := p.Process(input[i]); s != StatusPending {
			return s, i
		}
	}
	return StatusPending, len(input)
}

func TestEnvelopeValidFrame(t *testing.T) {
	frame := string(AppendFrame(nil, []byte("V[100,-200]"), 0x0a, true))

	var p EnvelopeParser
	status, at := feed(&p, frame)
	if status != StatusComplete {
		t.Fatalf("Expected complete frame, got status %d (err %v)", status, p.Err())
	}
	if at != len(frame)-1 {
		t.Errorf("Expected completion on the final LF, got index %d", at)
	}

	f := p.Frame()
	if string(f.Payload()) != "V[100,-200]" {
		t.Errorf("Expected payload V[100,-200], got %q", f.Payload())
	}
	if !f.HasID || f.ID != 0x0a {
		t.Errorf("Expected id 0x0a, got %#x (hasID=%v)", f.ID, f.HasID)
	}
	term := f.Terminated()
	if len(term) != len("V[100,-200]")+1 || term[len(term)-1] != 0 {
		t.Errorf("Expected payload terminated by 0, got %v", term)
	}
}

func TestEnvelopeDummyMetadata(t *testing.T) {
	var p EnvelopeParser
	status, _ := feed(&p, "#?:xxxx\r\n")
	if status != StatusComplete {
		t.Fatalf("Expected complete frame, got status %d (err %v)", status, p.Err())
	}
	if p.Frame().HasID {
		t.Error("Dummy frame should not carry an id")
	}
	if string(p.Frame().Payload()) != "?" {
		t.Errorf("Expected payload ?, got %q", p.Frame().Payload())
	}
}

func TestEnvelopeIgnoresNoiseBeforeStart(t *testing.T) {
	var p EnvelopeParser
	status, _ := feed(&p, "garbage\r\n\x00\xff#X:xxxx\r\n")
	if status != StatusComplete {
		t.Fatalf("Expected complete frame, got status %d (err %v)", status, p.Err())
	}
	if string(p.Frame().Payload()) != "X" {
		t.Errorf("Expected payload X, got %q", p.Frame().Payload())
	}
}

func TestEnvelopeMaxPayload(t *testing.T) {
	payload := strings.Repeat("a", MaxPayloadLen)
	var p EnvelopeParser
	status, _ := feed(&p, string(AppendFrame(nil, []byte(payload), 1, true)))
	if status != StatusComplete {
		t.Fatalf("Expected a %d byte payload to fit, got err %v", MaxPayloadLen, p.Err())
	}
	if len(p.Frame().Payload()) != MaxPayloadLen {
		t.Errorf("Expected %d payload bytes, got %d", MaxPayloadLen, len(p.Frame().Payload()))
	}
}

func TestEnvelopeErrors(t *testing.T) {
	valid := string(AppendFrame(nil, []byte("V"), 0x0a, true))
	// valid is "#V:0aYY\r\n"; flip the last checksum digit
	last := valid[6]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	badSum := valid[:6] + string(flipped) + "\r\n"

	tests := []struct {
		name  string
		input string
		code  Code
	}{
		{"too long", "#" + strings.Repeat("a", MaxPayloadLen+1), FrameTooLong},
		{"uppercase id", "#V:0A00\r\n", InvalidID},
		{"non hex id", "#V:g0", InvalidID},
		{"second id char", "#V:0z", InvalidID},
		{"checksum digits", "#V:0azz", InvalidChecksumDigits},
		{"uppercase checksum", "#V:0aF0", InvalidChecksumDigits},
		{"checksum mismatch", badSum, ChecksumMismatch},
		{"missing metadata CR", "#V[1]\r", MissingMetadata},
		{"missing metadata LF", "#V\n", MissingMetadata},
		{"bad dummy", "#V:xxyx\r\n", InvalidDummyMetadata},
		{"no CR", valid[:7] + "x", ExpectedFrameEnd},
		{"no LF", valid[:8] + "x", ExpectedFrameEnd},
		{"dummy without CR", "#V:xxxx\n", ExpectedFrameEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p EnvelopeParser
			status, _ := feed(&p, tt.input)
			if status != StatusError {
				t.Fatalf("Expected error, got status %d", status)
			}
			if p.Err() != tt.code {
				t.Errorf("Expected %v, got %v", tt.code, p.Err())
			}
		})
	}
}

func TestEnvelopeRecoversAfterError(t *testing.T) {
	var p EnvelopeParser
	if status, _ := feed(&p, "#V:zz"); status != StatusError {
		t.Fatalf("Expected error, got status %d", status)
	}
	// The rest of the broken frame is noise until the next start marker
	status, _ := feed(&p, "zz\r\n"+string(AppendFrame(nil, []byte("P"), 3, true)))
	if status != StatusComplete {
		t.Fatalf("Expected the following frame to complete, got err %v", p.Err())
	}
	if p.Err() != OK {
		t.Errorf("Expected error cleared, got %v", p.Err())
	}
	if p.Frame().ID != 3 {
		t.Errorf("Expected id 3, got %d", p.Frame().ID)
	}
}

func TestEnvelopeRestartsOnNewStart(t *testing.T) {
	var p EnvelopeParser
	feed(&p, "#abc")
	p.Reset()
	status, _ := feed(&p, "#?:xxxx\r\n")
	if status != StatusComplete || string(p.Frame().Payload()) != "?" {
		t.Errorf("Expected fresh frame after Reset, got status %d payload %q", status, p.Frame().Payload())
	}
}
