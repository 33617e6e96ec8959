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

package registers

import (
	"fmt"
	"strings"
)

// RegisterFile is the complete programmer-visible and prefetch-shadow
// state of the 68000, per spec §3. A0-A6 are ordinary AddrRegisters; A7
// is modeled separately as usp/ssp because its value depends on SR.S.
type RegisterFile struct {
	D [8]DataRegister
	a [7]AddrRegister // A0-A6

	usp uint32
	ssp uint32

	PC ProgramCounter
	SR StatusRegister

	// Prefetch pipeline: IR holds the opcode currently executing, IRD is
	// a shadow of IR used for exception-frame reconstruction, IRC is the
	// already-fetched next word.
	IR  uint16
	IRD uint16
	IRC uint16

	// SIRD and SSPSnapshot are captured at instruction decode time (spec
	// §4.5 "snapshot IRD and SSP") so an exception entered partway through
	// the instruction can rebuild an accurate stack frame.
	SIRD        uint16
	SSPSnapshot uint32
}

// NewRegisterFile returns a zeroed register file with labeled D/A
// registers ready for use; Reset still must be called to load the
// reset vector.
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	for i := range rf.D {
		rf.D[i] = *NewDataRegister(0, fmt.Sprintf("D%d", i))
	}
	for i := range rf.a {
		rf.a[i] = *NewAddrRegister(0, fmt.Sprintf("A%d", i))
	}
	return rf
}

// A returns a pointer to address register n (0-7). A7 is synthesized
// from the active stack pointer (USP or SSP, chosen by SR.Supervisor) on
// every call, since it has no single backing AddrRegister of its own.
//
// Callers that need to mutate A7 should use SetA7/GetA7 directly; A
// returns a *AddrRegister for n==7 that is detached from the live usp/ssp
// storage and exists only for callers that want the uniform accessor
// shape (e.g. printing all eight registers). Mutating it has no effect.
func (rf *RegisterFile) A(n int) *AddrRegister {
	if n == 7 {
		shadow := NewAddrRegister(rf.GetA7(), "A7")
		return shadow
	}
	return &rf.a[n]
}

// GetA7 returns the currently active stack pointer.
func (rf *RegisterFile) GetA7() uint32 {
	if rf.SR.Supervisor {
		return rf.ssp
	}
	return rf.usp
}

// SetA7 stores to the currently active stack pointer.
func (rf *RegisterFile) SetA7(val uint32) {
	if rf.SR.Supervisor {
		rf.ssp = val
	} else {
		rf.usp = val
	}
}

// USP returns the shadow user stack pointer regardless of the current
// privilege level (used by MOVE USP).
func (rf *RegisterFile) USP() uint32 {
	return rf.usp
}

// SetUSP loads the shadow user stack pointer directly; only valid from
// supervisor mode (MOVE USP enforces that at the instruction level).
func (rf *RegisterFile) SetUSP(val uint32) {
	rf.usp = val
}

// SSP returns the shadow supervisor stack pointer regardless of the
// current privilege level.
func (rf *RegisterFile) SSP() uint32 {
	return rf.ssp
}

// SetSSP loads the shadow supervisor stack pointer directly - used during
// reset and by the exception unit's frame builder.
func (rf *RegisterFile) SetSSP(val uint32) {
	rf.ssp = val
}

// SetSR replaces SR wholesale (MOVE to SR, RTE). Unlike SetCCR this can
// change Supervisor, which does not itself move any value between usp and
// ssp - each shadow register keeps its own value across the transition,
// per spec's "SSP and USP preserve independent values across privilege
// transitions" invariant; GetA7/SetA7 simply start reading/writing the
// other shadow.
func (rf *RegisterFile) SetSR(val uint16) {
	rf.SR.FromValue(val)
}

// Reset loads the initial SSP and PC from addresses 0 and 4 (supplied by
// the caller, since reading memory is the bus manager's job) and enters
// the reset state: supervisor, trace clear, interrupt mask 7.
func (rf *RegisterFile) Reset(initialSSP, initialPC uint32) {
	for i := range rf.D {
		rf.D[i].SetLong(0)
	}
	for i := range rf.a {
		rf.a[i].SetLong(0)
	}
	rf.usp = 0
	rf.ssp = initialSSP
	rf.SR.Reset()
	rf.PC.Load(initialPC)
	rf.IR, rf.IRD, rf.IRC = 0, 0, 0
	rf.SIRD, rf.SSPSnapshot = 0, initialSSP
}

// SnapshotForException captures IRD and the active stack pointer as they
// stand right now, for use when building an exception stack frame later
// in the same or a following tick.
func (rf *RegisterFile) SnapshotForException() {
	rf.SIRD = rf.IRD
	rf.SSPSnapshot = rf.GetA7()
}

// PrefetchOne performs IR <- IRD <- IRC; IRC <- next, where next is
// supplied by the caller (the bus scheduler, which alone knows how to
// fetch mem[PC+2]).
func (rf *RegisterFile) PrefetchOne(next uint16) {
	rf.IR = rf.IRD
	rf.IRD = rf.IRC
	rf.IRC = next
}

// PrefetchIrd performs IR <- IRD <- IRC without fetching a new IRC.
func (rf *RegisterFile) PrefetchIrd() {
	rf.IR = rf.IRD
	rf.IRD = rf.IRC
}

// PrefetchIrc replaces only IRC.
func (rf *RegisterFile) PrefetchIrc(next uint16) {
	rf.IRC = next
}

func (rf RegisterFile) String() string {
	s := strings.Builder{}
	for i := range rf.D {
		fmt.Fprintf(&s, "%s ", rf.D[i].String())
	}
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&s, "%s ", rf.a[i].String())
	}
	fmt.Fprintf(&s, "A7=%#08x ", rf.GetA7())
	fmt.Fprintf(&s, "%s SR=%s", rf.PC.String(), rf.SR.String())
	return s.String()
}
