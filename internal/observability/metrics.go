package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	engineFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "engine",
			Name:      "frames_total",
			Help:      "Frames received by the engine, by outcome.",
		},
		[]string{"result"},
	)
	engineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Error responses sent by the engine, by code.",
		},
		[]string{"code"},
	)
	engineDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "engine",
			Name:      "dispatch_total",
			Help:      "Handler invocations, by opcode.",
		},
		[]string{"opcode"},
	)
	engineResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "engine",
			Name:      "responses_total",
			Help:      "Responses sent by the engine.",
		},
		[]string{"opcode", "status"},
	)
	engineLogs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "engine",
			Name:      "log_frames_total",
			Help:      "Diagnostic frames sent by the engine.",
		},
	)
	clientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent by the host client, by result.",
		},
		[]string{"opcode", "result"},
	)
	clientDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "romiserial",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Host client request duration in seconds, retries included.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"opcode", "result"},
	)
	clientRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romiserial",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Request frames re-sent after a timeout.",
		},
		[]string{"opcode"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			engineFrames, engineErrors, engineDispatch, engineResponses, engineLogs,
			clientRequests, clientDuration, clientRetries,
		)
	})
}

func opcodeLabel(op byte) string {
	if op == 0 {
		return "none"
	}
	return string(op)
}

func RecordFrame(result string) {
	RegisterMetrics()
	engineFrames.WithLabelValues(result).Inc()
}

func RecordDispatch(op byte) {
	RegisterMetrics()
	engineDispatch.WithLabelValues(opcodeLabel(op)).Inc()
}

func RecordResponse(op byte, code int) {
	RegisterMetrics()
	status := "ok"
	if code != 0 {
		status = "error"
		engineErrors.WithLabelValues(strconv.Itoa(code)).Inc()
	}
	engineResponses.WithLabelValues(opcodeLabel(op), status).Inc()
}

func RecordLogFrame() {
	RegisterMetrics()
	engineLogs.Inc()
}

func RecordClientRequest(op byte, result string, duration time.Duration) {
	RegisterMetrics()
	label := opcodeLabel(op)
	clientRequests.WithLabelValues(label, result).Inc()
	clientDuration.WithLabelValues(label, result).Observe(duration.Seconds())
}

func RecordClientRetry(op byte) {
	RegisterMetrics()
	clientRetries.WithLabelValues(opcodeLabel(op)).Inc()
}
