package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
		wantLevel  zapcore.Level
	}{
		{env: "prod", wantLevel: zapcore.InfoLevel},
		{env: "local", wantLevel: zapcore.DebugLevel},
		{env: "dev", level: "warn", wantLevel: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := NewLogger(tc.env, tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tc.wantLevel) {
				t.Errorf("level %s should be enabled", tc.wantLevel)
			}
			if tc.wantLevel > zapcore.DebugLevel && l.Core().Enabled(tc.wantLevel-1) {
				t.Errorf("level %s should be disabled", tc.wantLevel-1)
			}
		})
	}
}

func TestNewLogger_Test(t *testing.T) {
	l, err := NewLogger("test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("test logger should discard everything")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core)

	FromContext(context.Background(), fallback).Info("fallback")
	FromContext(context.Background(), nil).Info("dropped")

	ctx := With(context.Background(), fallback, zap.String("request_id", "r-1"))
	FromContext(ctx, nil).Info("scoped")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["request_id"]; got != "r-1" {
		t.Errorf("request_id = %v", got)
	}
}
