package exceptionunit_test

import (
	"testing"

	"github.com/segacore/m68k/hardware/cpu/busmanager"
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/exceptionunit"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
	"github.com/segacore/m68k/hardware/memory/cpubus"
)

type addressedMemory struct {
	data     [0x10000]uint8
	lastAddr uint32
	ready    bool
}

func (m *addressedMemory) InitReadByte(addr uint32) { m.lastAddr = addr; m.ready = true }
func (m *addressedMemory) InitReadWord(addr uint32) { m.lastAddr = addr; m.ready = true }
func (m *addressedMemory) InitWrite(addr uint32, value uint16, size registers.Size) {
	if size == registers.Byte {
		m.data[addr&0xFFFF] = uint8(value)
	} else {
		m.data[addr&0xFFFF] = uint8(value >> 8)
		m.data[(addr+1)&0xFFFF] = uint8(value)
	}
	m.ready = true
}
func (m *addressedMemory) IsIdle() bool { return m.ready }
func (m *addressedMemory) LatchedByte() uint8 {
	return m.data[m.lastAddr&0xFFFF]
}
func (m *addressedMemory) LatchedWord() uint16 {
	return uint16(m.data[m.lastAddr&0xFFFF])<<8 | uint16(m.data[(m.lastAddr+1)&0xFFFF])
}
func (m *addressedMemory) MaxAddress() uint32 { return 0xFFFF }

func (m *addressedMemory) setLong(addr uint32, v uint32) {
	m.data[addr] = uint8(v >> 24)
	m.data[addr+1] = uint8(v >> 16)
	m.data[addr+2] = uint8(v >> 8)
	m.data[addr+3] = uint8(v)
}

type noInterrupt struct{}

func (noInterrupt) InitInterruptAck(uint8)     {}
func (noInterrupt) IsIdle() bool               { return true }
func (noInterrupt) VectorNumber() uint8        { return 0 }
func (noInterrupt) Type() cpubus.InterruptType { return cpubus.Autovectored }

type harness struct {
	rf    *registers.RegisterFile
	mem   *addressedMemory
	bus   *busmanager.Manager
	sched *scheduler.Scheduler
	man   *exception.Manager
	unit  *exceptionunit.Unit

	aborted int
}

func newHarness() *harness {
	mem := &addressedMemory{}
	man := exception.NewManager()
	bm := busmanager.New(mem, noInterrupt{}, man)
	rf := registers.NewRegisterFile()
	sched := scheduler.New(bm, rf)

	h := &harness{rf: rf, mem: mem, bus: bm, sched: sched, man: man}
	h.unit = exceptionunit.New(rf, sched, man, func() { h.aborted++ })
	return h
}

func (h *harness) driveToIdle(t *testing.T, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		if err := h.unit.Cycle(); err != nil {
			t.Fatalf("exception unit cycle error: %v", err)
		}
		if err := h.sched.Cycle(); err != nil {
			t.Fatalf("scheduler cycle error: %v", err)
		}
		if err := h.bus.Cycle(); err != nil {
			t.Fatalf("bus manager cycle error: %v", err)
		}
		if h.unit.IsIdle() && h.sched.IsIdle() {
			return
		}
	}
	t.Fatalf("did not reach idle within %d ticks", max)
}

func TestTrapBuildsThreeWordFrameAndJumps(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x2000)
	h.rf.SR.Supervisor = false
	h.rf.SetSSP(0x8000)
	h.rf.SetUSP(0x100) // unused here, just to prove USP is untouched
	h.man.RaiseTrap(32) // TRAP #0

	h.mem.setLong(32*4, 0x00123456)

	h.driveToIdle(t, 40)

	if h.man.Pending(exception.Trap) {
		t.Fatalf("expected Trap drained")
	}
	if !h.rf.SR.Supervisor {
		t.Fatalf("expected supervisor mode entered")
	}
	if h.rf.PC.Address() != 0x00123456 {
		t.Fatalf("got PC %#x, want 0x123456", h.rf.PC.Address())
	}
	if h.aborted != 1 {
		t.Fatalf("expected abort hook called exactly once, got %d", h.aborted)
	}

	ssp := h.rf.SSP()
	if ssp != 0x8000-6 {
		t.Fatalf("expected SSP decremented by 6 (3 words), got %#x", ssp)
	}
	// Frame layout from SSP upward: SR, then PC as one big-endian long
	// (PC high at SSP+2, PC low at SSP+4) - the order RTE expects to pop.
	gotPC := uint32(h.mem.data[ssp+2])<<24 | uint32(h.mem.data[ssp+3])<<16 | uint32(h.mem.data[ssp+4])<<8 | uint32(h.mem.data[ssp+5])
	if gotPC != 0x00002000 {
		t.Fatalf("got stacked PC %#x, want 0x2000", gotPC)
	}
}

func TestInterruptSetsMaskToServicedLevel(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x4000)
	h.rf.SetSSP(0x8000)
	h.rf.SR.InterruptMask = 0
	h.man.RaiseInterrupt(3)

	h.mem.setLong(0x60+3*4, 0x00005000)

	h.driveToIdle(t, 40)

	if h.rf.SR.InterruptMask != 3 {
		t.Fatalf("expected interrupt mask raised to 3, got %d", h.rf.SR.InterruptMask)
	}
	if h.rf.PC.Address() != 0x5000 {
		t.Fatalf("got PC %#x, want 0x5000", h.rf.PC.Address())
	}
}

func TestAddressErrorBuildsSevenWordFrame(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x1000)
	h.rf.SIRD = 0xABCD
	h.rf.SetSSP(0x8000)
	h.man.RaiseAddressError(exception.AddressErrorRecord{
		Address:      0x12345,
		FunctionCode: buspins.FCUserData,
		Read:         true,
		In:           false,
		PC:           0x1000,
	})

	h.mem.setLong(0x0C, 0x00006000)

	h.driveToIdle(t, 60)

	if h.man.Pending(exception.AddressError) {
		t.Fatalf("expected AddressError drained")
	}
	if h.rf.SSP() != 0x8000-14 {
		t.Fatalf("expected SSP decremented by 14 (7 words), got %#x", h.rf.SSP())
	}
	if h.rf.PC.Address() != 0x6000 {
		t.Fatalf("got PC %#x, want 0x6000", h.rf.PC.Address())
	}
}

func TestResetOutranksTrap(t *testing.T) {
	h := newHarness()
	h.man.Raise(exception.Reset)
	h.man.RaiseTrap(32)

	kind, ok := h.man.Highest()
	if !ok || kind != exception.Reset {
		t.Fatalf("expected Reset to be highest priority, got %v ok=%v", kind, ok)
	}
}

func TestHasWorkAndIsIdleTrackIndependently(t *testing.T) {
	h := newHarness()
	if h.unit.HasWork() {
		t.Fatalf("expected no work initially")
	}
	if !h.unit.IsIdle() {
		t.Fatalf("expected idle initially")
	}

	h.rf.SetSSP(0x8000)
	h.man.RaiseTrap(32)
	if !h.unit.HasWork() {
		t.Fatalf("expected work once a trap is raised")
	}
}
