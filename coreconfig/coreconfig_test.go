package coreconfig_test

import (
	"strings"
	"testing"

	"github.com/segacore/m68k/coreconfig"
	"github.com/segacore/m68k/logger"
)

func TestBoolDefaultsToFalse(t *testing.T) {
	var b coreconfig.Bool
	if b.Get() {
		t.Fatalf("expected zero-value Bool to be false")
	}
}

func TestBoolSetAndReset(t *testing.T) {
	var b coreconfig.Bool
	b.Set(true)
	if !b.Get() {
		t.Fatalf("expected Get to reflect Set(true)")
	}
	b.Reset()
	if b.Get() {
		t.Fatalf("expected Reset to clear the value")
	}
}

func TestSetTraceLogEnablesEcho(t *testing.T) {
	defer coreconfig.SetTraceLog(nil)

	var out strings.Builder
	coreconfig.SetTraceLog(&out)
	if !coreconfig.TraceLog.Get() {
		t.Fatalf("expected TraceLog to be true after SetTraceLog(writer)")
	}

	logger.Clear()
	logger.Log(logger.Allow, "EXC", "illegal instruction")
	if !strings.Contains(out.String(), "illegal instruction") {
		t.Fatalf("expected trace writer to receive the log entry")
	}

	coreconfig.SetTraceLog(nil)
	if coreconfig.TraceLog.Get() {
		t.Fatalf("expected TraceLog to be false after SetTraceLog(nil)")
	}
}
