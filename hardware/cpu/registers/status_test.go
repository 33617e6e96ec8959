package registers_test

import (
	"testing"

	"github.com/segacore/m68k/hardware/cpu/registers"
)

func TestStatusRegisterValueMasksUnimplementedBits(t *testing.T) {
	var sr registers.StatusRegister
	sr.FromValue(0xFFFF)
	if sr.Value() != registers.ImplementedMask {
		t.Fatalf("expected all implemented bits set, got %#04x", sr.Value())
	}
}

func TestStatusRegisterRoundTrip(t *testing.T) {
	var sr registers.StatusRegister
	sr.Trace = true
	sr.Supervisor = true
	sr.InterruptMask = 5
	sr.Extend = true
	sr.Negative = false
	sr.Zero = true
	sr.Overflow = false
	sr.Carry = true

	var sr2 registers.StatusRegister
	sr2.FromValue(sr.Value())
	if sr2 != sr {
		t.Fatalf("round trip mismatch: %+v != %+v", sr2, sr)
	}
}

func TestSetCCRLeavesSystemByteAlone(t *testing.T) {
	var sr registers.StatusRegister
	sr.Supervisor = true
	sr.Trace = true
	sr.InterruptMask = 3

	sr.SetCCR(0x1F)

	if !sr.Supervisor || !sr.Trace || sr.InterruptMask != 3 {
		t.Fatalf("SetCCR must not touch the system byte: %+v", sr)
	}
	if !(sr.Extend && sr.Negative && sr.Zero && sr.Overflow && sr.Carry) {
		t.Fatalf("SetCCR should have set every CCR flag")
	}
}

func TestConditionCodes(t *testing.T) {
	var sr registers.StatusRegister
	sr.Zero = true
	if !sr.Condition(0x7) { // EQ
		t.Fatalf("EQ should be true when Z is set")
	}
	if sr.Condition(0x6) { // NE
		t.Fatalf("NE should be false when Z is set")
	}

	sr = registers.StatusRegister{}
	sr.Negative = true
	sr.Overflow = false
	if sr.Condition(0xC) { // GE: N==V
		t.Fatalf("GE should be false when N != V")
	}
	if !sr.Condition(0xD) { // LT: N!=V
		t.Fatalf("LT should be true when N != V")
	}
}

func TestResetEntersSupervisorWithMaskedInterrupts(t *testing.T) {
	sr := registers.NewStatusRegister()
	sr.Trace = true
	sr.Reset()
	if sr.Trace {
		t.Fatalf("Reset should clear Trace")
	}
	if !sr.Supervisor {
		t.Fatalf("Reset should enter supervisor mode")
	}
	if sr.InterruptMask != 7 {
		t.Fatalf("Reset should set interrupt mask to 7, got %d", sr.InterruptMask)
	}
}
