package scheduler_test

import (
	"testing"

	"github.com/segacore/m68k/hardware/cpu/busmanager"
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/exception"
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

type noInterrupt struct{}

func (noInterrupt) InitInterruptAck(uint8)     {}
func (noInterrupt) IsIdle() bool               { return true }
func (noInterrupt) VectorNumber() uint8        { return 0 }
func (noInterrupt) Type() cpubus.InterruptType { return cpubus.Autovectored }

type harness struct {
	sched *scheduler.Scheduler
	bus   *busmanager.Manager
	mem   *addressedMemory
	rf    *registers.RegisterFile
}

func newHarness() *harness {
	mem := &addressedMemory{}
	excep := exception.NewManager()
	bm := busmanager.New(mem, noInterrupt{}, excep)
	rf := registers.NewRegisterFile()
	return &harness{sched: scheduler.New(bm, rf), bus: bm, mem: mem, rf: rf}
}

// driveToIdle steps the scheduler and the bus manager it drives together
// each tick, mirroring the CPU top's per-tick ordering (scheduler then
// bus manager, spec §2).
func (h *harness) driveToIdle(t *testing.T, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		if h.sched.IsIdle() {
			return
		}
		if err := h.sched.Cycle(); err != nil {
			t.Fatalf("scheduler cycle error: %v", err)
		}
		if err := h.bus.Cycle(); err != nil {
			t.Fatalf("bus manager cycle error: %v", err)
		}
	}
	t.Fatalf("scheduler did not reach idle within %d ticks", max)
}

func TestEnqueueReadByteCompletes(t *testing.T) {
	h := newHarness()
	h.mem.data[0x2000] = 0x5A

	var got uint32
	h.sched.EnqueueRead(0x2000, registers.Byte, buspins.FCUserData, func(v uint32) { got = v })

	h.driveToIdle(t, 20)
	if got != 0x5A {
		t.Fatalf("expected 0x5a, got %#x", got)
	}
}

func TestEnqueueLongReadAssemblesHighWordFirst(t *testing.T) {
	h := newHarness()
	h.mem.data[0x3000] = 0x12
	h.mem.data[0x3001] = 0x34
	h.mem.data[0x3002] = 0x56
	h.mem.data[0x3003] = 0x78

	var got uint32
	h.sched.EnqueueRead(0x3000, registers.Long, buspins.FCUserData, func(v uint32) { got = v })

	h.driveToIdle(t, 20)
	if got != 0x12345678 {
		t.Fatalf("expected 0x12345678, got %#x", got)
	}
}

func TestCallDrainsWithoutConsumingATick(t *testing.T) {
	h := newHarness()
	called := false
	h.sched.EnqueueCall(func() { called = true })
	h.driveToIdle(t, 5)
	if !called {
		t.Fatalf("expected Call thunk to run")
	}
}

func TestWaitBlocksForExactCycleCount(t *testing.T) {
	h := newHarness()
	h.sched.EnqueueWait(3)
	ticks := 0
	for !h.sched.IsIdle() {
		if err := h.sched.Cycle(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ticks++
		if ticks > 10 {
			t.Fatalf("wait did not complete")
		}
	}
	if ticks != 3 {
		t.Fatalf("expected exactly 3 ticks of wait, got %d", ticks)
	}
}

func TestIncAndDecAddrRegAdjustBySize(t *testing.T) {
	h := newHarness()
	h.rf.A(2).SetLong(0x1000)

	h.sched.EnqueueIncAddrReg(2, registers.Word)
	h.driveToIdle(t, 5)
	if h.rf.A(2).Long() != 0x1002 {
		t.Fatalf("expected A2 incremented by 2, got %#x", h.rf.A(2).Long())
	}

	h.sched.EnqueueDecAddrReg(2, registers.Long)
	h.driveToIdle(t, 5)
	if h.rf.A(2).Long() != 0x0FFE {
		t.Fatalf("expected A2 decremented by 4, got %#x", h.rf.A(2).Long())
	}
}

func TestPushDecrementsA7AndWrites(t *testing.T) {
	h := newHarness()
	h.rf.SetSSP(0x2000)
	h.rf.SR.Supervisor = true

	h.sched.EnqueuePush(0xBEEF, registers.Word, 0, buspins.FCSupervisorData)
	h.driveToIdle(t, 10)

	if h.rf.GetA7() != 0x1FFE {
		t.Fatalf("expected A7 decremented by 2, got %#x", h.rf.GetA7())
	}
	if h.mem.data[0x1FFE] != 0xBE || h.mem.data[0x1FFF] != 0xEF {
		t.Fatalf("expected pushed word at 0x1ffe, got %02x %02x", h.mem.data[0x1FFE], h.mem.data[0x1FFF])
	}
}

func TestPrefetchIrdShiftsWithoutBusAccess(t *testing.T) {
	h := newHarness()
	h.rf.IR, h.rf.IRD, h.rf.IRC = 0x1111, 0x2222, 0x3333

	h.sched.EnqueuePrefetchIrd()
	h.driveToIdle(t, 5)

	if h.rf.IR != 0x2222 || h.rf.IRD != 0x3333 || h.rf.IRC != 0x3333 {
		t.Fatalf("unexpected prefetch state: IR=%#x IRD=%#x IRC=%#x", h.rf.IR, h.rf.IRD, h.rf.IRC)
	}
}

func TestPrefetchOneShiftsAndFetchesNewIRC(t *testing.T) {
	h := newHarness()
	h.rf.IR, h.rf.IRD, h.rf.IRC = 0x1111, 0x2222, 0x3333
	h.mem.data[0x4000] = 0x44
	h.mem.data[0x4001] = 0x55

	h.sched.EnqueuePrefetchOne(0x4000, buspins.FCUserProgram)
	h.driveToIdle(t, 10)

	if h.rf.IR != 0x2222 || h.rf.IRD != 0x3333 || h.rf.IRC != 0x4455 {
		t.Fatalf("unexpected prefetch state: IR=%#x IRD=%#x IRC=%#x", h.rf.IR, h.rf.IRD, h.rf.IRC)
	}
}

func TestReadImmNoPrefetchByteIsCycleFree(t *testing.T) {
	h := newHarness()
	h.rf.IRC = 0x00AB

	var got uint32
	h.sched.EnqueueReadImm(registers.Byte, scheduler.NoPrefetch, buspins.FCUserProgram, func(v uint32) { got = v })

	if err := h.sched.Cycle(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xAB {
		t.Fatalf("expected immediate 0xab, got %#x", got)
	}
	if !h.sched.IsIdle() {
		t.Fatalf("expected scheduler idle immediately, no bus cycle required")
	}
}

func TestReadImmDoPrefetchWordAdvancesPCAndIRC(t *testing.T) {
	h := newHarness()
	h.rf.IRC = 0x1234
	h.rf.PC.Load(0x1000)
	h.mem.data[0x1002] = 0x56
	h.mem.data[0x1003] = 0x78

	var got uint32
	h.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, buspins.FCUserProgram, func(v uint32) { got = v })

	h.driveToIdle(t, 10)

	if got != 0x1234 {
		t.Fatalf("expected consumed IRC 0x1234, got %#x", got)
	}
	if h.rf.PC.Address() != 0x1002 {
		t.Fatalf("expected PC advanced by 2, got %#x", h.rf.PC.Address())
	}
	if h.rf.IRC != 0x5678 {
		t.Fatalf("expected new IRC 0x5678, got %#x", h.rf.IRC)
	}
}
