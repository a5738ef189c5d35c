package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected a silent logger when no level is set")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv failed: %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("Expected warn level from environment")
	}
	SetLogger(nil)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("tx", []byte("#V:xxxx\r\n\x01"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["direction"] != "tx" {
		t.Errorf("Expected direction tx, got %v", fields["direction"])
	}
	if fields["ascii"] != `#V:xxxx\r\n.` {
		t.Errorf("Unexpected ascii rendering %v", fields["ascii"])
	}
}

func TestLogFrameSkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("rx", []byte("#X:xxxx\r\n"))
	if logs.Len() != 0 {
		t.Errorf("Expected no entries at info level, got %d", logs.Len())
	}
}
