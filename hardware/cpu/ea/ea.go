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

// Package ea implements the effective-address decoder (spec §4.3): it
// turns a 6-bit EA field plus a size into a sequence of scheduler ops
// (waits, prefetches, reads) and a resulting Operand, exactly as the
// bus scheduler itself turns instruction semantics into bus cycles.
package ea

import (
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
	"github.com/segacore/m68k/internalerr"
)

// Mode identifies one of the twelve addressing modes spec §4.3 names.
type Mode int

const (
	DataReg Mode = iota
	AddrReg
	Indir
	PostInc
	PreDec
	DispIndir
	IndexIndir
	AbsShort
	AbsLong
	DispPC
	IndexPC
	Immediate
	unknownMode
)

func (m Mode) String() string {
	switch m {
	case DataReg:
		return "Dn"
	case AddrReg:
		return "An"
	case Indir:
		return "(An)"
	case PostInc:
		return "(An)+"
	case PreDec:
		return "-(An)"
	case DispIndir:
		return "(d16,An)"
	case IndexIndir:
		return "(d8,An,Xn)"
	case AbsShort:
		return "(xxx).W"
	case AbsLong:
		return "(xxx).L"
	case DispPC:
		return "(d16,PC)"
	case IndexPC:
		return "(d8,PC,Xn)"
	case Immediate:
		return "#imm"
	default:
		return "?"
	}
}

// DecodeMode splits a 6-bit EA field (mode in bits 5..3, register in
// bits 2..0) into a Mode, resolving the mode-7 sub-field.
func DecodeMode(eaField uint8) Mode {
	mode := (eaField >> 3) & 0x7
	reg := eaField & 0x7

	switch mode {
	case 0b000:
		return DataReg
	case 0b001:
		return AddrReg
	case 0b010:
		return Indir
	case 0b011:
		return PostInc
	case 0b100:
		return PreDec
	case 0b101:
		return DispIndir
	case 0b110:
		return IndexIndir
	case 0b111:
		switch reg {
		case 0b000:
			return AbsShort
		case 0b001:
			return AbsLong
		case 0b010:
			return DispPC
		case 0b011:
			return IndexPC
		case 0b100:
			return Immediate
		default:
			return unknownMode
		}
	default:
		return unknownMode
	}
}

// Flags modify decoding, per spec §4.3's `{none, no_read, no_prefetch}`.
type Flags uint8

const (
	None       Flags = 0
	NoRead     Flags = 1 << 0
	NoPrefetch Flags = 1 << 1
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Kind distinguishes the four Operand shapes spec §4.3 names.
type Kind int

const (
	KindDataReg Kind = iota
	KindAddrReg
	KindImmediate
	KindPointer
)

// Operand is the result of a completed decode: a register reference, an
// immediate value, or a memory pointer (with its fetched value, unless
// NoRead suppressed the read).
type Operand struct {
	Kind Kind
	Reg  int
	Size registers.Size
	Mode Mode

	Value    uint32
	HasValue bool

	Addr uint32
}

// Decoder holds the state of a single in-flight (or completed) decode.
// A Decoder is reused across instructions; call Reset between them.
type Decoder struct {
	rf    *registers.RegisterFile
	sched *scheduler.Scheduler

	mode  Mode
	reg   uint8
	size  registers.Size
	flags Flags

	ptr uint32

	result *Operand
}

// New builds a decoder driving sched and reading/writing rf.
func New(rf *registers.RegisterFile, sched *scheduler.Scheduler) *Decoder {
	return &Decoder{rf: rf, sched: sched}
}

// Ready reports whether a previously scheduled decode has produced a
// result.
func (d *Decoder) Ready() bool {
	return d.result != nil
}

// Result returns the decoded operand. Callers must check Ready first;
// calling this before the scheduled ops drain is a host-protocol
// violation.
func (d *Decoder) Result() (Operand, error) {
	if d.result == nil {
		return Operand{}, internalerr.InternalError(internalerr.EADecoderNotReady)
	}
	return *d.result, nil
}

// Reset discards any in-flight or completed decode, used when an
// exception aborts the instruction mid-decode (spec §4.2
// "Cancellation" applies here too, since the EA decoder only ever
// drives the same scheduler).
func (d *Decoder) Reset() {
	d.result = nil
}

// Schedule decodes ea's mode/register field and enqueues whatever
// scheduler ops that mode requires. It fails with InternalError if the
// scheduler is not idle, since a previously scheduled op could still
// mutate the registers this decode is about to read (spec §4.3).
func (d *Decoder) Schedule(eaField uint8, size registers.Size, flags Flags) error {
	if !d.sched.IsIdle() {
		return internalerr.InternalError(internalerr.EADecoderBusy)
	}

	d.result = nil
	d.flags = flags
	d.size = size
	d.reg = eaField & 0x7
	d.mode = DecodeMode(eaField)

	switch d.mode {
	case DataReg:
		d.decodeDataReg()
	case AddrReg:
		d.decodeAddrReg()
	case Indir:
		d.decodeIndir()
	case PostInc:
		d.decodePostInc()
	case PreDec:
		d.decodePreDec()
	case DispIndir:
		d.decodeDispIndir()
	case IndexIndir:
		d.decodeIndexIndir()
	case AbsShort:
		d.decodeAbsShort()
	case AbsLong:
		d.decodeAbsLong()
	case DispPC:
		d.decodeDispPC()
	case IndexPC:
		d.decodeIndexPC()
	case Immediate:
		d.decodeImm()
	default:
		return internalerr.InternalError(internalerr.InvalidAddressingMode, int(d.mode), d.reg)
	}
	return nil
}

func (d *Decoder) noRead() bool     { return d.flags.has(NoRead) }
func (d *Decoder) noPrefetch() bool { return d.flags.has(NoPrefetch) }

func (d *Decoder) dataSpace() buspins.FunctionCode {
	if d.rf.SR.Supervisor {
		return buspins.FCSupervisorData
	}
	return buspins.FCUserData
}

func (d *Decoder) progSpace() buspins.FunctionCode {
	if d.rf.SR.Supervisor {
		return buspins.FCSupervisorProgram
	}
	return buspins.FCUserProgram
}

func (d *Decoder) addrRegValue(reg uint8) uint32 {
	if reg == 7 {
		return d.rf.GetA7()
	}
	return d.rf.A(int(reg)).Long()
}

func (d *Decoder) addrRegAdd(reg uint8, delta int32) {
	if reg == 7 {
		d.rf.SetA7(uint32(int32(d.rf.GetA7()) + delta))
		return
	}
	d.rf.A(int(reg)).Add(delta)
}

// --- immediately-resolved modes ---

func (d *Decoder) decodeDataReg() {
	d.result = &Operand{Kind: KindDataReg, Reg: int(d.reg), Size: d.size, Mode: d.mode}
}

func (d *Decoder) decodeAddrReg() {
	d.result = &Operand{Kind: KindAddrReg, Reg: int(d.reg), Size: d.size, Mode: d.mode}
}

// --- memory-referencing modes ---

// decodeIndir reads the operand at the address already held in An.
func (d *Decoder) decodeIndir() {
	addr := d.addrRegValue(d.reg)
	d.scheduleReadAndSave(addr, d.dataSpace())
}

// decodePostInc captures the address before enqueueing the increment:
// the read op already carries a concrete address, so it does not
// matter that the increment (a zero-cycle op) drains first.
func (d *Decoder) decodePostInc() {
	addr := d.addrRegValue(d.reg)
	if d.flags == None {
		d.sched.EnqueueIncAddrReg(int(d.reg), d.size)
	}
	d.scheduleReadAndSave(addr, d.dataSpace())
}

// decodePreDec applies the decrement immediately (decoding itself is
// not tick-driven) while still charging the 2-cycle wait spec §4.3
// describes before the read begins.
func (d *Decoder) decodePreDec() {
	if d.flags == None {
		d.sched.EnqueueWait(2)
		d.addrRegAdd(d.reg, -int32(d.size.Bytes()))
	}
	addr := d.addrRegValue(d.reg)
	d.scheduleReadAndSave(addr, d.dataSpace())
}

func (d *Decoder) decodeDispIndir() {
	d.schedulePrefetchIrc()
	ptr := uint32(int32(d.addrRegValue(d.reg)) + int32(int16(d.rf.IRC)))
	d.scheduleReadAndSave(ptr, d.dataSpace())
}

func (d *Decoder) decodeIndexIndir() {
	if d.noPrefetch() {
		d.sched.EnqueueWait(6) // decoding takes 6 cycles with no extension fetch
	} else {
		d.sched.EnqueueWait(2)
		d.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, d.progSpace(), nil)
	}
	ptr := d.decBriefReg(d.addrRegValue(d.reg))
	d.scheduleReadAndSave(ptr, d.dataSpace())
}

func (d *Decoder) decodeAbsShort() {
	d.schedulePrefetchIrc()
	ptr := uint32(int32(int16(d.rf.IRC)))
	d.scheduleReadAndSave(ptr, d.dataSpace())
}

// decodeAbsLong cannot compute the operand address until the 32-bit
// immediate itself has been fetched, so the read is scheduled from
// inside the read_imm completion rather than up front.
func (d *Decoder) decodeAbsLong() {
	size := d.size
	space := d.dataSpace()
	mode := scheduler.DoPrefetch
	if d.noPrefetch() {
		mode = scheduler.NoPrefetch
	}
	d.sched.EnqueueReadImm(registers.Long, mode, d.progSpace(), func(imm uint32) {
		d.size = size
		d.scheduleReadAndSave(imm, space)
	})
}

func (d *Decoder) decodeDispPC() {
	base := d.rf.PC.Address()
	d.schedulePrefetchIrc()
	ptr := uint32(int32(base) + int32(int16(d.rf.IRC)))
	d.scheduleReadAndSave(ptr, d.progSpace())
}

func (d *Decoder) decodeIndexPC() {
	base := d.rf.PC.Address()
	if d.noPrefetch() {
		d.sched.EnqueueWait(6)
	} else {
		d.sched.EnqueueWait(2)
		d.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, d.progSpace(), nil)
	}
	ptr := d.decBriefReg(base)
	d.scheduleReadAndSave(ptr, d.progSpace())
}

func (d *Decoder) decodeImm() {
	size := d.size
	mode := scheduler.DoPrefetch
	if d.noPrefetch() {
		mode = scheduler.NoPrefetch
	}
	d.sched.EnqueueReadImm(size, mode, d.progSpace(), func(v uint32) {
		d.result = &Operand{Kind: KindImmediate, Size: size, Mode: Immediate, Value: v, HasValue: true}
	})
}

// --- helpers ---

// schedulePrefetchIrc is the 2-cycle address calculation every
// displacement/absolute-short mode pays: either a bare wait (no
// extension word needed again) or a real IRC refetch.
func (d *Decoder) schedulePrefetchIrc() {
	if d.noPrefetch() {
		d.sched.EnqueueWait(2)
	} else {
		d.sched.EnqueueReadImm(registers.Word, scheduler.DoPrefetch, d.progSpace(), nil)
	}
}

// scheduleReadAndSave either stores a bare pointer (NoRead, used by
// instructions like LEA/PEA that never touch the addressed value) or
// enqueues the read and stores the fetched value once it lands.
func (d *Decoder) scheduleReadAndSave(addr uint32, space buspins.FunctionCode) {
	if d.noRead() {
		d.result = &Operand{Kind: KindPointer, Addr: addr, Size: d.size, Mode: d.mode}
		return
	}
	d.ptr = addr
	mode, size := d.mode, d.size
	d.sched.EnqueueRead(addr, size, space, func(v uint32) {
		d.result = &Operand{Kind: KindPointer, Addr: d.ptr, Value: v, HasValue: true, Size: size, Mode: mode}
	})
}

// decBriefReg implements the brief extension word format shared by
// (d8,An,Xn) and (d8,PC,Xn): an 8-bit signed displacement plus an
// index register (word or long, data or address) selected by the
// extension word's D/A and W/L bits.
func (d *Decoder) decBriefReg(base uint32) uint32 {
	raw := d.rf.IRC
	disp := uint8(raw)
	msb := uint8(raw >> 8)

	wl := (msb >> 3) & 1
	reg := (msb >> 4) & 0x7
	da := (msb >> 7) & 1

	base = uint32(int32(base) + int32(int8(disp)))

	if wl == 1 {
		var idx uint32
		if da == 1 {
			idx = d.addrRegValue(reg)
		} else {
			idx = d.rf.D[reg].Long()
		}
		return uint32(int32(base) + int32(idx))
	}

	var idx uint16
	if da == 1 {
		idx = uint16(d.addrRegValue(reg))
	} else {
		idx = d.rf.D[reg].Word()
	}
	return uint32(int32(base) + int32(int16(idx)))
}
