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

// Package cpu assembles the register file, bus manager, scheduler,
// effective-address decoder, exception manager, risers, exception unit
// and instruction unit (spec §2's "CPU top") into the single Cycle()
// entry point a host drives. It owns no emulation logic of its own
// beyond the fixed per-tick ordering and the reset sequence, which spec
// §4.6 says bypasses the exception unit entirely.
package cpu

import (
	"github.com/segacore/m68k/hardware/cpu/busmanager"
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/ea"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/exceptionunit"
	"github.com/segacore/m68k/hardware/cpu/instruction"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/cpu/riser"
	"github.com/segacore/m68k/hardware/cpu/scheduler"
	"github.com/segacore/m68k/hardware/memory/cpubus"
)

// CPU is the complete execution core described by spec §2.
type CPU struct {
	rf *registers.RegisterFile

	bus   *busmanager.Manager
	sched *scheduler.Scheduler
	dec   *ea.Decoder
	man   *exception.Manager

	riser     *riser.Riser
	excUnit   *exceptionunit.Unit
	instrUnit *instruction.Unit

	// resetting is true from Reset() until the reset vector reads and
	// the post-reset two-word prefetch have both landed. While true,
	// Cycle only drives the scheduler and bus manager - the reset
	// sequence talks to the bus manager directly for the SSP/PC reads,
	// then hands the prefetch off to the scheduler once the register
	// file has a valid PC to prefetch from. resetReadsDone marks the
	// point where the scheduler has been given that prefetch program;
	// resetting only clears once the scheduler has actually drained it,
	// matching the same idle-before-Idle invariant the instruction
	// unit's own finish() relies on.
	resetting      bool
	resetReadsDone bool
}

// NewCPU builds a CPU driving mem for ordinary bus traffic and intr for
// interrupt-acknowledge cycles. ipl may be nil if no device asserts
// external interrupts. The CPU is not runnable until Reset is called.
func NewCPU(mem cpubus.Memory, intr cpubus.InterruptDevice, ipl riser.IPLSource) *CPU {
	rf := registers.NewRegisterFile()
	man := exception.NewManager()
	bus := busmanager.New(mem, intr, man)
	sched := scheduler.New(bus, rf)
	dec := ea.New(rf, sched)
	instrUnit := instruction.New(rf, sched, dec, man)

	c := &CPU{
		rf:        rf,
		bus:       bus,
		sched:     sched,
		dec:       dec,
		man:       man,
		riser:     riser.New(rf, man, ipl),
		instrUnit: instrUnit,
	}
	c.excUnit = exceptionunit.New(rf, sched, man, c.abort)
	return c
}

// abort is the exception unit's abort hook (spec §4.6/§5): it discards
// whatever the instruction unit and scheduler had in flight. It is also
// what resumes a unit left parked by a deferred mid-instruction
// exception (DIVU/DIVS-by-zero, CHK, TRAP/TRAPV) or by STOP, since both
// leave the instruction unit non-idle (or stopped) without calling
// finish, relying on the next accepted exception to clear that state.
func (c *CPU) abort() {
	c.instrUnit.Reset()
	c.sched.Reset()
	c.dec.Reset()
}

// Reset enqueues the Reset exception per spec §3's lifecycle paragraph.
// Unlike every other kind, Reset has no stack frame and is never handed
// to the exception unit: the CPU reads the initial SSP from
// 0x000000-0x000003 and the initial PC from 0x000004-0x000007 directly
// off the bus manager, loads them into the register file, then
// prefetches two words, matching spec §6's "Reset vector" paragraph.
func (c *CPU) Reset() {
	c.man.Clear()
	c.instrUnit.Reset()
	c.excUnit.Reset()
	c.sched.Reset()
	c.resetting = true
	c.resetReadsDone = false

	const space = buspins.FCSupervisorProgram
	err := c.bus.InitReadWord(0, space, func(sspHi uint16) {
		err := c.bus.InitReadWord(2, space, func(sspLo uint16) {
			ssp := uint32(sspHi)<<16 | uint32(sspLo)
			err := c.bus.InitReadWord(4, space, func(pcHi uint16) {
				err := c.bus.InitReadWord(6, space, func(pcLo uint16) {
					pc := uint32(pcHi)<<16 | uint32(pcLo)
					c.rf.Reset(ssp, pc)
					c.sched.EnqueuePrefetchOne(pc, space)
					c.sched.EnqueuePrefetchOne(pc+2, space)
					c.sched.EnqueueCall(func() {
						c.resetReadsDone = true
					})
				})
				_ = err // the bus is idle here (we are inside its own completion); InitReadWord cannot fail
			})
			_ = err // the bus is idle here (we are inside its own completion); InitReadWord cannot fail
		})
		_ = err // the bus is idle here (we are inside its own completion); InitReadWord cannot fail
	})
	_ = err // the bus is idle immediately after Reset's own sched.Reset(); InitReadWord cannot fail
}

// Cycle advances every owned component by exactly one tick, in the
// fixed order spec §5 requires: risers, then the active unit (exception
// or instruction, whichever spec §4.6 says should run), then the
// scheduler, then the bus manager.
func (c *CPU) Cycle() error {
	if c.resetting {
		if err := c.sched.Cycle(); err != nil {
			return err
		}
		if err := c.bus.Cycle(); err != nil {
			return err
		}
		if c.resetReadsDone && c.sched.IsIdle() {
			c.resetting = false
		}
		return nil
	}

	if err := c.riser.Cycle(); err != nil {
		return err
	}

	// Once the exception unit has accepted an exception it owns every
	// following tick until its frame build drains - its own frame-build
	// ops run through this same scheduler, so the scheduler is non-idle
	// for the many ticks in between, and routing on sched.IsIdle() alone
	// would bounce straight back to the instruction unit mid-build.
	// Acceptance itself is gated on sched.IsIdle() rather than
	// instrUnit.IsIdle(): a mid-instruction deferred exception (DIVU/DIVS
	// by zero, CHK, TRAP/TRAPV - see those handlers) raises into the
	// manager and returns without reaching Idle or enqueuing anything
	// further, so the scheduler is genuinely idle at that point even
	// though instrUnit.IsIdle() is still false - gating acceptance on
	// instrUnit.IsIdle() would starve the exception unit forever in that
	// case, since nothing else would ever bring the instruction unit
	// back to Idle. A still-executing instruction (scheduler non-idle,
	// exception unit not yet engaged) is left alone regardless of
	// pending work, matching spec §5's cancellation note that a bus
	// cycle is never aborted mid-flight.
	switch {
	case !c.excUnit.IsIdle():
		if err := c.excUnit.Cycle(); err != nil {
			return err
		}
	case c.man.HasWork() && c.sched.IsIdle():
		if err := c.excUnit.Cycle(); err != nil {
			return err
		}
	default:
		if err := c.instrUnit.Cycle(); err != nil {
			return err
		}
	}

	if err := c.sched.Cycle(); err != nil {
		return err
	}
	return c.bus.Cycle()
}

// IsIdle reports whether every owned component is idle, per spec §8's
// `cpu.is_idle() ↔ bus.is_idle() ∧ scheduler.is_idle() ∧
// instruction.is_idle() ∧ exception.is_idle()` invariant. A CPU still
// running its reset sequence is never idle.
func (c *CPU) IsIdle() bool {
	if c.resetting {
		return false
	}
	return c.bus.IsIdle() && c.sched.IsIdle() && c.instrUnit.IsIdle() && c.excUnit.IsIdle() && c.man.IsIdle()
}

// Registers exposes the live register file for host-side inspection
// (debuggers, test harnesses). The core itself never copies it.
func (c *CPU) Registers() *registers.RegisterFile {
	return c.rf
}

// RequestBus/ReleaseBus forward to the bus manager's own arbitration
// handshake (spec §4.1); the CPU adds no logic of its own beyond
// exposing it at the top level a host actually holds.
func (c *CPU) RequestBus() error {
	return c.bus.RequestBus()
}

func (c *CPU) ReleaseBus() error {
	return c.bus.ReleaseBus()
}
