// Package observability exports engine and client activity as Prometheus
// metrics and zap log entries.
package observability

import (
	"go.uber.org/zap"

	"romiserial/protocol"
)

// Frame outcomes for romiserial_engine_frames_total
const (
	FrameDispatched   = "dispatched"
	FrameDuplicate    = "duplicate"
	FrameRejected     = "rejected"
	FrameFramingError = "framing_error"
)

// Recorder is a protocol.Observer that counts engine events and logs the
// unusual ones.
type Recorder struct {
	log *zap.Logger
}

var _ protocol.Observer = (*Recorder)(nil)

// NewRecorder returns a Recorder logging through log. A nil logger is
// replaced by a no-op one.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	RegisterMetrics()
	return &Recorder{log: log}
}

func (r *Recorder) FrameError(code protocol.Code) {
	RecordFrame(FrameFramingError)
	r.log.Debug("frame rejected", zap.Stringer("code", code))
}

func (r *Recorder) Duplicate(id uint8) {
	RecordFrame(FrameDuplicate)
	r.log.Info("duplicate request", zap.Uint8("id", id))
}

func (r *Recorder) Dispatch(opcode byte) {
	RecordFrame(FrameDispatched)
	RecordDispatch(opcode)
	r.log.Debug("dispatch", zap.String("opcode", string(opcode)))
}

func (r *Recorder) Response(opcode byte, code protocol.Code) {
	RecordResponse(opcode, int(code))
	if code == protocol.OK {
		return
	}
	if code.IsGrammar() || isSignatureError(code) {
		RecordFrame(FrameRejected)
	}
	r.log.Debug("error response",
		zap.String("opcode", opcodeLabel(opcode)),
		zap.Int16("code", int16(code)),
		zap.Stringer("reason", code),
	)
}

func (r *Recorder) Log(message string) {
	RecordLogFrame()
	r.log.Info("device log", zap.String("message", message))
}

func isSignatureError(code protocol.Code) bool {
	switch code {
	case protocol.UnknownOpcode, protocol.WrongArgumentCount,
		protocol.MissingStringArgument, protocol.UnexpectedStringArgument:
		return true
	}
	return false
}
