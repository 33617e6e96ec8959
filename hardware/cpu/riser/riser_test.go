package riser_test

import (
	"testing"

	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/riser"
)

type fixedIPL uint8

func (f fixedIPL) IPL() uint8 { return uint8(f) }

func newRF() *registers.RegisterFile {
	rf := registers.NewRegisterFile()
	rf.Reset(0, 0)
	return rf
}

func TestTraceRiserRaisesWhenTraceBitSet(t *testing.T) {
	rf := newRF()
	rf.SR.Trace = true
	man := exception.NewManager()
	r := riser.New(rf, man, nil)

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if !man.Pending(exception.Trace) {
		t.Fatalf("expected Trace to be pending")
	}
}

func TestTraceRiserDoesNotRaiseWhenClear(t *testing.T) {
	rf := newRF()
	man := exception.NewManager()
	r := riser.New(rf, man, nil)

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if man.Pending(exception.Trace) {
		t.Fatalf("did not expect Trace to be pending")
	}
}

func TestInterruptRiserIgnoresLevelAtOrBelowMask(t *testing.T) {
	rf := newRF()
	rf.SR.InterruptMask = 3
	man := exception.NewManager()
	r := riser.New(rf, man, fixedIPL(3))

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if man.Pending(exception.Interrupt) {
		t.Fatalf("did not expect an interrupt at or below the current mask")
	}
}

func TestInterruptRiserRaisesWhenAboveMask(t *testing.T) {
	rf := newRF()
	rf.SR.InterruptMask = 3
	man := exception.NewManager()
	r := riser.New(rf, man, fixedIPL(4))

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if !man.Pending(exception.Interrupt) {
		t.Fatalf("expected level 4 to raise over a mask of 3")
	}
	if got := man.InterruptIPL(); got != 4 {
		t.Fatalf("expected InterruptIPL 4, got %d", got)
	}
}

func TestInterruptRiserAlwaysRaisesLevelSeven(t *testing.T) {
	rf := newRF()
	rf.SR.InterruptMask = 7
	man := exception.NewManager()
	r := riser.New(rf, man, fixedIPL(7))

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if !man.Pending(exception.Interrupt) {
		t.Fatalf("expected level 7 (NMI) to raise regardless of mask")
	}
}

func TestInterruptRiserNoopWithoutSource(t *testing.T) {
	rf := newRF()
	man := exception.NewManager()
	r := riser.New(rf, man, nil)

	if err := r.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if man.Pending(exception.Interrupt) {
		t.Fatalf("did not expect an interrupt with no IPL source wired up")
	}
}
