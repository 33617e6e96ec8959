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

// Package scheduler implements the bus scheduler (spec §4.2): a FIFO
// queue of typed micro-ops that decomposes instruction semantics into
// bus operations, prefetches, register side effects and timed waits,
// and is the sole producer of bus-manager cycles during normal
// operation.
package scheduler

import (
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/busmanager"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/internalerr"
)

// OnComplete receives the result of a Read, ReadImm or IntAck op: the
// latched byte/word/long value, or the fetched vector number.
type OnComplete func(value uint32)

// PrefetchMode selects how ReadImm interacts with the IRC prefetch
// shadow, per spec §4.2.
type PrefetchMode int

const (
	DoPrefetch PrefetchMode = iota
	NoPrefetch
)

// WriteOrder controls which half of a long write lands first, needed by
// exception-frame pushes whose word order does not follow normal
// big-endian memory layout.
type WriteOrder int

const (
	MSWFirst WriteOrder = iota
	LSWFirst
)

type opKind int

const (
	opRead opKind = iota
	opReadImm
	opWrite
	opRmw
	opIntAck
	opPrefetchIrd
	opPrefetchIrc
	opPrefetchOne
	opWait
	opCall
	opIncAddrReg
	opDecAddrReg
	opPush
)

type op struct {
	kind opKind

	addr  uint32
	size  registers.Size
	space buspins.FunctionCode
	data  uint32
	order WriteOrder

	modifyFn func(uint16) uint16

	ipl uint8

	mode PrefetchMode

	cycles int

	thunk func()

	reg int

	offset int32

	onComplete OnComplete
}

func isZeroCycle(k opKind) bool {
	switch k {
	case opCall, opIncAddrReg, opDecAddrReg, opPrefetchIrd:
		return true
	}
	return false
}

func isBusProducing(k opKind) bool {
	switch k {
	case opRead, opReadImm, opWrite, opRmw, opIntAck, opPrefetchOne, opPrefetchIrc, opPush:
		return true
	}
	return false
}

// Scheduler is the micro-op queue described by spec §4.2. It is the only
// producer of bus-manager cycles in normal CPU operation; the bus
// manager remains directly callable for exception-frame writes and
// manual test-harness use.
type Scheduler struct {
	bus *busmanager.Manager
	rf  *registers.RegisterFile

	queue []op

	waiting       bool
	waitRemaining int

	busBusy bool
}

// New builds a scheduler driving bus through the given register file for
// prefetch bookkeeping.
func New(bus *busmanager.Manager, rf *registers.RegisterFile) *Scheduler {
	return &Scheduler{bus: bus, rf: rf}
}

// IsIdle reports whether the queue is empty and no op is currently in
// flight, per spec §3's scheduler-idle invariant.
func (s *Scheduler) IsIdle() bool {
	return len(s.queue) == 0 && !s.waiting && !s.busBusy
}

// Reset clears the current op, drains the queue and resets the prefetch
// queue, used by the exception unit's abort hook (spec §4.2
// "Cancellation").
func (s *Scheduler) Reset() {
	s.queue = nil
	s.waiting = false
	s.waitRemaining = 0
	s.busBusy = false
	s.rf.IR, s.rf.IRD, s.rf.IRC = 0, 0, 0
}

// EnqueueRead schedules a Read of addr at size, landing the masked
// result (byte/word zero-extended, long assembled high-word-first) in
// onComplete once the cycle (or pair of cycles, for Long) completes.
func (s *Scheduler) EnqueueRead(addr uint32, size registers.Size, space buspins.FunctionCode, onComplete OnComplete) {
	s.queue = append(s.queue, op{kind: opRead, addr: addr, size: size, space: space, onComplete: onComplete})
}

// EnqueueReadImm schedules a read of the immediate operand following the
// current opcode, per spec §4.2's ReadImm semantics.
func (s *Scheduler) EnqueueReadImm(size registers.Size, mode PrefetchMode, space buspins.FunctionCode, onComplete OnComplete) {
	s.queue = append(s.queue, op{kind: opReadImm, size: size, space: space, mode: mode, onComplete: onComplete})
}

// EnqueueWrite schedules a Write of data (masked to size) to addr. order
// only matters for Long; it is ignored for Byte/Word.
func (s *Scheduler) EnqueueWrite(addr uint32, data uint32, size registers.Size, space buspins.FunctionCode, order WriteOrder) {
	s.queue = append(s.queue, op{kind: opWrite, addr: addr, data: data, size: size, space: space, order: order})
}

// EnqueueRmw schedules the uninterruptible read-modify-write cycle TAS
// uses.
func (s *Scheduler) EnqueueRmw(addr uint32, space buspins.FunctionCode, modify func(uint16) uint16) {
	s.queue = append(s.queue, op{kind: opRmw, addr: addr, space: space, modifyFn: modify})
}

// EnqueueIntAck schedules an interrupt-acknowledge cycle at the given
// priority level; onComplete receives the fetched vector number.
func (s *Scheduler) EnqueueIntAck(ipl uint8, onComplete OnComplete) {
	s.queue = append(s.queue, op{kind: opIntAck, ipl: ipl, onComplete: onComplete})
}

// EnqueuePrefetchIrd performs IR <- IRD <- IRC with no bus activity.
func (s *Scheduler) EnqueuePrefetchIrd() {
	s.queue = append(s.queue, op{kind: opPrefetchIrd})
}

// EnqueuePrefetchIrc fetches the word at addr and stores it directly
// into IRC, without shifting IR/IRD.
func (s *Scheduler) EnqueuePrefetchIrc(addr uint32, space buspins.FunctionCode) {
	s.queue = append(s.queue, op{kind: opPrefetchIrc, addr: addr, space: space})
}

// EnqueuePrefetchOne performs IR <- IRD <- IRC, then fetches the word at
// addr into the new IRC.
func (s *Scheduler) EnqueuePrefetchOne(addr uint32, space buspins.FunctionCode) {
	s.queue = append(s.queue, op{kind: opPrefetchOne, addr: addr, space: space})
}

// EnqueueWait schedules a pure tick delay that never touches the bus.
func (s *Scheduler) EnqueueWait(cycles int) {
	s.queue = append(s.queue, op{kind: opWait, cycles: cycles})
}

// EnqueueCall schedules a zero-cycle callback, run as soon as it reaches
// the head of the queue.
func (s *Scheduler) EnqueueCall(thunk func()) {
	s.queue = append(s.queue, op{kind: opCall, thunk: thunk})
}

// EnqueueIncAddrReg increments address register reg (0-7) by size's byte
// count, zero cycles.
func (s *Scheduler) EnqueueIncAddrReg(reg int, size registers.Size) {
	s.queue = append(s.queue, op{kind: opIncAddrReg, reg: reg, size: size})
}

// EnqueueDecAddrReg decrements address register reg (0-7) by size's byte
// count, zero cycles.
func (s *Scheduler) EnqueueDecAddrReg(reg int, size registers.Size) {
	s.queue = append(s.queue, op{kind: opDecAddrReg, reg: reg, size: size})
}

// EnqueuePush decrements A7 by size's byte count, then writes data to
// A7+offset; offset permits the out-of-order double-word pushes specific
// exception frames require.
func (s *Scheduler) EnqueuePush(data uint32, size registers.Size, offset int32, space buspins.FunctionCode) {
	s.queue = append(s.queue, op{kind: opPush, data: data, size: size, offset: offset, space: space})
}

func (s *Scheduler) addrRegValue(reg int) uint32 {
	if reg == 7 {
		return s.rf.GetA7()
	}
	return s.rf.A(reg).Long()
}

func (s *Scheduler) addrRegAdd(reg int, delta int32) {
	if reg == 7 {
		s.rf.SetA7(uint32(int32(s.rf.GetA7()) + delta))
		return
	}
	s.rf.A(reg).Add(delta)
}

// Cycle advances the scheduler by one tick: decrementing a Wait counter,
// yielding while a bus op is in flight, or otherwise draining zero-cycle
// ops and starting the next bus-producing op, per spec §4.2's execution
// policy.
func (s *Scheduler) Cycle() error {
	if s.waiting {
		s.waitRemaining--
		if s.waitRemaining <= 0 {
			s.waiting = false
			return s.drainAndStart()
		}
		return nil
	}
	if s.busBusy {
		if s.bus.IsIdle() {
			// the cycle faulted without calling back: drop the rest of
			// the sequence so the exception unit can take over.
			s.queue = nil
			s.busBusy = false
		}
		return nil
	}
	return s.drainAndStart()
}

func (s *Scheduler) drainAndStart() error {
	for len(s.queue) > 0 {
		head := s.queue[0]
		if !isZeroCycle(head.kind) {
			break
		}
		s.queue = s.queue[1:]
		if err := s.runZeroCycle(head); err != nil {
			return err
		}
	}
	if len(s.queue) == 0 {
		return nil
	}
	head := s.queue[0]
	if head.kind == opWait {
		s.queue = s.queue[1:]
		if head.cycles <= 0 {
			return s.drainAndStart()
		}
		s.waiting = head.cycles > 1
		s.waitRemaining = head.cycles - 1
		return nil
	}
	if isBusProducing(head.kind) && s.bus.Pins.Granted() {
		// Deferred while the external arbiter holds the bus (spec §4.2).
		return nil
	}
	s.queue = s.queue[1:]
	return s.start(head)
}

func (s *Scheduler) runZeroCycle(o op) error {
	switch o.kind {
	case opCall:
		if o.thunk != nil {
			o.thunk()
		}
	case opIncAddrReg:
		s.addrRegAdd(o.reg, int32(o.size.Bytes()))
	case opDecAddrReg:
		s.addrRegAdd(o.reg, -int32(o.size.Bytes()))
	case opPrefetchIrd:
		s.rf.PrefetchIrd()
	default:
		return internalerr.InternalError(internalerr.SchedulerMalformedOp, "non-zero-cycle op reached zero-cycle drain")
	}
	return nil
}

func (s *Scheduler) start(o op) error {
	switch o.kind {
	case opRead:
		s.busBusy = true
		return s.startRead(o)
	case opReadImm:
		return s.startReadImm(o)
	case opWrite:
		s.busBusy = true
		return s.startWrite(o.addr, o.data, o.size, o.space, o.order, func() {
			s.busBusy = false
		})
	case opPush:
		s.busBusy = true
		s.addrRegAdd(7, -int32(o.size.Bytes()))
		addr := uint32(int32(s.rf.GetA7()) + o.offset)
		return s.startWrite(addr, o.data, o.size, o.space, o.order, func() {
			s.busBusy = false
		})
	case opRmw:
		s.busBusy = true
		return s.bus.InitReadModifyWrite(o.addr, o.space, o.modifyFn, func(uint16) {
			s.busBusy = false
		})
	case opIntAck:
		s.busBusy = true
		return s.bus.InitInterruptAck(o.ipl, func(v uint16) {
			s.busBusy = false
			if o.onComplete != nil {
				o.onComplete(uint32(v))
			}
		})
	case opPrefetchIrc:
		s.busBusy = true
		return s.bus.InitReadWord(o.addr, o.space, func(v uint16) {
			s.busBusy = false
			s.rf.PrefetchIrc(v)
		})
	case opPrefetchOne:
		s.busBusy = true
		return s.bus.InitReadWord(o.addr, o.space, func(v uint16) {
			s.busBusy = false
			s.rf.PrefetchOne(v)
		})
	}
	return internalerr.InternalError(internalerr.SchedulerMalformedOp, "unrecognized op kind in bus dispatch")
}

// startRead issues one bus read cycle for Byte/Word, or two word reads
// (high word at addr, low word at addr+2) for Long, shifting the high
// half in first as spec §4.2's long-word decomposition requires.
func (s *Scheduler) startRead(o op) error {
	switch o.size {
	case registers.Byte:
		return s.bus.InitReadByte(o.addr, o.space, func(v uint16) {
			s.busBusy = false
			if o.onComplete != nil {
				o.onComplete(uint32(v))
			}
		})
	case registers.Word:
		return s.bus.InitReadWord(o.addr, o.space, func(v uint16) {
			s.busBusy = false
			if o.onComplete != nil {
				o.onComplete(uint32(v))
			}
		})
	default: // Long
		return s.bus.InitReadWord(o.addr, o.space, func(hi uint16) {
			err := s.bus.InitReadWord(o.addr+2, o.space, func(lo uint16) {
				s.busBusy = false
				if o.onComplete != nil {
					o.onComplete(uint32(hi)<<16 | uint32(lo))
				}
			})
			_ = err // the bus is idle here (we are inside its own completion); InitReadWord cannot fail
		})
	}
}

// startWrite issues one bus write cycle for Byte/Word, or two word
// writes for Long in the order order specifies, then invokes done once
// both legs complete.
func (s *Scheduler) startWrite(addr uint32, data uint32, size registers.Size, space buspins.FunctionCode, order WriteOrder, done func()) error {
	switch size {
	case registers.Byte:
		return s.bus.InitWrite(addr, uint16(data), registers.Byte, space, func(uint16) { done() })
	case registers.Word:
		return s.bus.InitWrite(addr, uint16(data), registers.Word, space, func(uint16) { done() })
	default: // Long
		hi := uint16(data >> 16)
		lo := uint16(data)
		firstAddr, firstWord := addr, hi
		secondAddr, secondWord := addr+2, lo
		if order == LSWFirst {
			firstAddr, firstWord = addr+2, lo
			secondAddr, secondWord = addr, hi
		}
		return s.bus.InitWrite(firstAddr, firstWord, registers.Word, space, func(uint16) {
			if err := s.bus.InitWrite(secondAddr, secondWord, registers.Word, space, func(uint16) { done() }); err != nil {
				done()
			}
		})
	}
}

// startReadImm implements spec §4.2's ReadImm state machine.
func (s *Scheduler) startReadImm(o op) error {
	switch o.size {
	case registers.Byte, registers.Word:
		value := uint32(s.rf.IRC)
		if o.size == registers.Byte {
			value &= 0xFF
		}
		if o.mode == NoPrefetch {
			// Cycle-free: consumed entirely from the already-fetched IRC, no
			// bus access. Still dispatched through the bus-dispatch path since
			// the Long/do_prefetch variants of this same op kind are genuinely
			// bus-producing; the next op starts on the following tick like any
			// other completion, to keep per-tick bus-op accounting uniform.
			if o.onComplete != nil {
				o.onComplete(value)
			}
			return nil
		}
		s.busBusy = true
		fetchAddr := s.rf.PC.Address() + 2
		s.rf.PC.Add(2)
		return s.bus.InitReadWord(fetchAddr, o.space, func(v uint16) {
			s.rf.PrefetchIrc(v)
			s.busBusy = false
			if o.onComplete != nil {
				o.onComplete(value)
			}
		})
	default: // Long
		msw := uint32(s.rf.IRC)
		lswAddr := s.rf.PC.Address() + 2
		s.busBusy = true
		return s.bus.InitReadWord(lswAddr, o.space, func(lswWord uint16) {
			value := msw<<16 | uint32(lswWord)
			if o.mode == NoPrefetch {
				s.rf.PC.Add(4)
				s.busBusy = false
				if o.onComplete != nil {
					o.onComplete(value)
				}
				return
			}
			newIrcAddr := lswAddr + 2
			s.rf.PC.Add(4)
			if err := s.bus.InitReadWord(newIrcAddr, o.space, func(v uint16) {
				s.rf.PrefetchIrc(v)
				s.busBusy = false
				if o.onComplete != nil {
					o.onComplete(value)
				}
			}); err != nil {
				s.busBusy = false
			}
		})
	}
}
