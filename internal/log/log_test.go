package log

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerbosityLevel(t *testing.T) {
	tests := []struct {
		verbose int
		want    zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{10, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := VerbosityLevel(tt.verbose); got != tt.want {
			t.Errorf("VerbosityLevel(%d) = %v, want %v", tt.verbose, got, tt.want)
		}
	}
}

func TestForVerbosity(t *testing.T) {
	prev := _globalL.Load().(*zap.Logger)
	defer ReplaceGlobals(prev)

	core, logs := observer.New(zapcore.DebugLevel)
	ReplaceGlobals(zap.New(core))

	ForVerbosity(0).Info("hidden")
	ForVerbosity(0).Warn("shown")
	ForVerbosity(2, FieldModule("test")).Debug("debug shown")

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	entries := logs.All()
	if entries[0].Message != "shown" {
		t.Errorf("first entry = %q, want %q", entries[0].Message, "shown")
	}
	if entries[1].ContextMap()[FieldNameModule] != "test" {
		t.Errorf("module field missing: %v", entries[1].ContextMap())
	}
}

func TestGlobalLevel(t *testing.T) {
	prev := _globalL.Load().(*zap.Logger)
	defer ReplaceGlobals(prev)
	defer SetLevel(zapcore.WarnLevel)

	core, logs := observer.New(zapcore.DebugLevel)
	ReplaceGlobals(zap.New(core))

	L().Info("dropped")
	SetLevel(zapcore.InfoLevel)
	With(FieldComponent("c")).Info("kept")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()[FieldNameComponent]; got != "c" {
		t.Errorf("component field = %v, want c", got)
	}
}
