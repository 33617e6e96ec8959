// This file is part of m68k.
//
// m68k is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// m68k is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with m68k.  If not, see <https://www.gnu.org/licenses/>.

package instruction_test

import (
	"testing"

	"github.com/segacore/m68k/hardware/cpu/busmanager"
	"github.com/segacore/m68k/hardware/cpu/ea"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/instruction"
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

func (m *addressedMemory) setWord(addr uint32, v uint16) {
	m.data[addr] = uint8(v >> 8)
	m.data[addr+1] = uint8(v)
}

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
	dec   *ea.Decoder
	unit  *instruction.Unit
}

func newHarness() *harness {
	mem := &addressedMemory{}
	man := exception.NewManager()
	bm := busmanager.New(mem, noInterrupt{}, man)
	rf := registers.NewRegisterFile()
	sched := scheduler.New(bm, rf)
	dec := ea.New(rf, sched)

	h := &harness{rf: rf, mem: mem, bus: bm, sched: sched, man: man, dec: dec}
	h.unit = instruction.New(rf, sched, dec, man)
	return h
}

// runOpcode loads opcode into IRD and IR (as if it had already been
// prefetched) and drives the unit until it returns to Idle, up to max
// ticks. The trailing prefetch every instruction issues on the way out
// reads whatever is at rf.PC, which tests leave pointed at harmless
// memory.
func (h *harness) runOpcode(t *testing.T, opcode uint16, max int) {
	t.Helper()
	h.rf.IR = opcode
	h.rf.IRD = opcode
	// IRC holds the word after the opcode, as if it had already been
	// prefetched.
	pc := h.rf.PC.Address()
	h.rf.IRC = uint16(h.mem.data[pc+2])<<8 | uint16(h.mem.data[pc+3])
	for i := 0; i < max; i++ {
		if err := h.unit.Cycle(); err != nil {
			t.Fatalf("instruction unit cycle error: %v", err)
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

func TestMoveqLoadsSignExtendedByteAndSetsFlags(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x2000)
	h.rf.SR.Negative = true
	h.rf.SR.Carry = true

	// MOVEQ #-1,D3
	h.runOpcode(t, 0b0111_011_0_11111111, 10)

	if got := h.rf.D[3].Long(); got != 0xFFFFFFFF {
		t.Fatalf("got D3=%#x, want 0xffffffff", got)
	}
	if !h.rf.SR.Negative {
		t.Fatalf("expected N set")
	}
	if h.rf.SR.Carry {
		t.Fatalf("expected C cleared")
	}
	if h.rf.PC.Address() != 0x2002 {
		t.Fatalf("got PC %#x, want 0x2002", h.rf.PC.Address())
	}
}

func TestAddDnToDnSetsZero(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x3000)
	h.rf.D[0].SetLong(0)
	h.rf.D[1].SetLong(0)

	// ADD.W D0,D1  (opmode 001 = word, dest Dn)
	h.runOpcode(t, 0b1101_001_001_000_000, 10)

	if h.rf.D[1].Long() != 0 {
		t.Fatalf("got D1=%#x, want 0", h.rf.D[1].Long())
	}
	if !h.rf.SR.Zero {
		t.Fatalf("expected Z set")
	}
}

func TestAddImmediateToAbsoluteMemory(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x4000)
	h.mem.setWord(0x4002, 5)      // immediate operand
	h.mem.setWord(0x4004, 0x8000) // absolute-short EA extension word
	h.mem.setWord(0x8000, 10)

	// ADDI.W #5,($8000).W : 0000 0110 01 111000
	h.runOpcode(t, 0b0000_0110_01_111000, 30)

	got := uint16(h.mem.data[0x8000])<<8 | uint16(h.mem.data[0x8001])
	if got != 15 {
		t.Fatalf("got %#x at $8000, want 15", got)
	}
}

func TestDivuByZeroRaisesDivideByZeroWithoutFinishing(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x5000)
	h.rf.D[2].SetLong(100)
	h.rf.D[0].SetLong(0)

	// DIVU D0,D2
	h.rf.IR = 0b1000_010_011_000_000
	h.rf.IRD = h.rf.IR

	for i := 0; i < 5; i++ {
		if err := h.unit.Cycle(); err != nil {
			t.Fatalf("cycle error: %v", err)
		}
		if err := h.sched.Cycle(); err != nil {
			t.Fatalf("scheduler cycle error: %v", err)
		}
		if err := h.bus.Cycle(); err != nil {
			t.Fatalf("bus cycle error: %v", err)
		}
	}

	if !h.man.Pending(exception.DivideByZero) {
		t.Fatalf("expected DivideByZero pending")
	}
	if h.unit.IsIdle() {
		t.Fatalf("expected unit to stay parked mid-instruction until the abort hook resets it")
	}
}

func TestBraTakesRelativeBranch(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x6000)

	// BRA $10 (8-bit displacement, base is the opcode word's own address)
	h.runOpcode(t, 0b0110_0000_00010000, 10)

	if h.rf.PC.Address() != 0x6010 {
		t.Fatalf("got PC %#x, want 0x6010", h.rf.PC.Address())
	}
}

func TestDbccFallsThroughOnWrap(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x7000)
	h.rf.D[4].Set(registers.Word, 0)
	h.mem.setWord(0x7002, 0xFFF0) // branch displacement extension word, unused once wrapped

	// DBEQ D4,<disp> with SR.Zero clear so the condition is false
	h.rf.SR.Zero = false
	h.runOpcode(t, 0b0101_0111_11001_100, 20)

	if h.rf.D[4].Get(registers.Word) != 0xFFFF {
		t.Fatalf("got D4=%#x, want 0xffff (wrapped)", h.rf.D[4].Get(registers.Word))
	}
	if h.rf.PC.Address() != 0x7004 {
		t.Fatalf("got PC %#x, want fallthrough to 0x7004", h.rf.PC.Address())
	}
}

func TestSccSetsAllOnesWhenTrue(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x8000)
	h.rf.SR.Zero = true

	// SEQ D5
	h.runOpcode(t, 0b0101_0111_11_000_101, 10)

	if h.rf.D[5].Get(registers.Byte) != 0xFF {
		t.Fatalf("got D5 byte %#x, want 0xff", h.rf.D[5].Get(registers.Byte))
	}
}

func TestMoveUsesOwnSizeAndDestFields(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0x9000)
	h.rf.D[0].SetLong(0x1234)

	// MOVE.W D0,D2 : 00 11 010 000 000000 (00 11 is MOVE's own word-size prefix)
	h.runOpcode(t, 0b00_11_010_000_000000, 10)

	if got := h.rf.D[2].Get(registers.Word); got != 0x1234 {
		t.Fatalf("got D2 word %#x, want 0x1234", got)
	}
}

func TestMovemPredecReversesRegisterOrderAndUpdatesAn(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0xA000)
	h.rf.A(5).SetLong(0x9000)
	h.rf.D[0].SetLong(0x11111111)
	h.rf.D[1].SetLong(0x22222222)
	h.mem.setWord(0xA002, 0xC000) // mask: D0 and D1 (bit 15 = D0 in predecrement mode)

	// MOVEM.L D0-D1,-(A5) : dr=0 (to memory), sz=1 (long)
	h.runOpcode(t, 0b0100_1_0_0_0_1_1_100_101, 30)

	if got := h.rf.A(5).Long(); got != 0x9000-8 {
		t.Fatalf("got A5=%#x, want %#x", got, 0x9000-8)
	}
	// predecrement order: D1 stored first (at the higher address),
	// D0 stored last (at the lower address).
	d1 := uint32(h.mem.data[0x9000-4])<<24 | uint32(h.mem.data[0x9000-3])<<16 | uint32(h.mem.data[0x9000-2])<<8 | uint32(h.mem.data[0x9000-1])
	d0 := uint32(h.mem.data[0x9000-8])<<24 | uint32(h.mem.data[0x9000-7])<<16 | uint32(h.mem.data[0x9000-6])<<8 | uint32(h.mem.data[0x9000-5])
	if d0 != 0x11111111 {
		t.Fatalf("got D0 stored=%#x, want 0x11111111", d0)
	}
	if d1 != 0x22222222 {
		t.Fatalf("got D1 stored=%#x, want 0x22222222", d1)
	}
}

func TestLeaComputesAddressWithoutReading(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0xB000)
	h.rf.A(1).SetLong(0x1000)
	h.mem.setWord(0xB002, 0x0020) // displacement extension word

	// LEA $20(A1),A2 : 0100 010 111 101 001
	h.runOpcode(t, 0b0100_010_111_101_001, 20)

	if got := h.rf.A(2).Long(); got != 0x1020 {
		t.Fatalf("got A2=%#x, want 0x1020", got)
	}
}

func TestJsrAndRtsRoundTrip(t *testing.T) {
	h := newHarness()
	h.rf.PC.Load(0xC000)
	h.rf.SetSSP(0xD000)
	h.rf.SR.Supervisor = true
	h.mem.setWord(0xC002, 0x0000) // absolute-long high word
	h.mem.setWord(0xC004, 0xE000) // absolute-long low word
	h.mem.setWord(0xE000, 0b0100_1110_01110101) // RTS sitting at the call target

	// JSR ($E000).L : 0100 111 010 111 001
	h.rf.IR = 0b0100_111_010_111_001
	h.rf.IRD = h.rf.IR
	h.rf.IRC = 0x0000 // absolute-long high word, already prefetched
	for i := 0; i < 30; i++ {
		if err := h.unit.Cycle(); err != nil {
			t.Fatalf("cycle error: %v", err)
		}
		if err := h.sched.Cycle(); err != nil {
			t.Fatalf("scheduler cycle error: %v", err)
		}
		if err := h.bus.Cycle(); err != nil {
			t.Fatalf("bus cycle error: %v", err)
		}
		if h.unit.IsIdle() && h.sched.IsIdle() {
			break
		}
	}

	if h.rf.PC.Address() != 0xE000 {
		t.Fatalf("got PC %#x after JSR, want 0xe000", h.rf.PC.Address())
	}
	if h.rf.SSP() != 0xD000-4 {
		t.Fatalf("got SSP %#x after JSR, want %#x", h.rf.SSP(), 0xD000-4)
	}

	h.runOpcode(t, 0b0100_1110_01110101, 20)

	if h.rf.PC.Address() != 0xC006 {
		t.Fatalf("got PC %#x after RTS, want 0xc006 (return address)", h.rf.PC.Address())
	}
	if h.rf.SSP() != 0xD000 {
		t.Fatalf("got SSP %#x after RTS, want restored to 0xd000", h.rf.SSP())
	}
}
