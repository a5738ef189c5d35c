package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"romiserial/protocol"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordClientRequest('V', "ok", 3*time.Millisecond)
	RecordClientRetry('V')
	RecordLogFrame()
}

func TestRecorderCountsEngineEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRecorder(zap.New(core))

	dispatched := testutil.ToFloat64(engineFrames.WithLabelValues(FrameDispatched))
	duplicates := testutil.ToFloat64(engineFrames.WithLabelValues(FrameDuplicate))
	rejected := testutil.ToFloat64(engineFrames.WithLabelValues(FrameRejected))
	framing := testutil.ToFloat64(engineFrames.WithLabelValues(FrameFramingError))
	okV := testutil.ToFloat64(engineResponses.WithLabelValues("V", "ok"))
	dupErrors := testutil.ToFloat64(engineErrors.WithLabelValues("-15"))

	r.Dispatch('V')
	r.Response('V', protocol.OK)
	r.Duplicate(7)
	r.Response(0, protocol.DuplicateMessage)
	r.Response('Q', protocol.UnknownOpcode)
	r.FrameError(protocol.ChecksumMismatch)
	r.Log("boot")

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"dispatched", testutil.ToFloat64(engineFrames.WithLabelValues(FrameDispatched)), dispatched + 1},
		{"duplicates", testutil.ToFloat64(engineFrames.WithLabelValues(FrameDuplicate)), duplicates + 1},
		{"rejected", testutil.ToFloat64(engineFrames.WithLabelValues(FrameRejected)), rejected + 1},
		{"framing", testutil.ToFloat64(engineFrames.WithLabelValues(FrameFramingError)), framing + 1},
		{"ok responses", testutil.ToFloat64(engineResponses.WithLabelValues("V", "ok")), okV + 1},
		{"duplicate errors", testutil.ToFloat64(engineErrors.WithLabelValues("-15")), dupErrors + 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}

	if logs.FilterMessage("device log").Len() != 1 {
		t.Error("Expected the device log to be logged")
	}
	if logs.FilterMessage("duplicate request").Len() != 1 {
		t.Error("Expected the duplicate to be logged")
	}
}

func TestOpcodeLabel(t *testing.T) {
	if opcodeLabel(0) != "none" || opcodeLabel('?') != "?" {
		t.Errorf("Unexpected labels %q %q", opcodeLabel(0), opcodeLabel('?'))
	}
}
