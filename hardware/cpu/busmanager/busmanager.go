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

// Package busmanager drives the pin-level bus cycle state machine (spec
// §4.1): exactly one read, write, read-modify-write or
// interrupt-acknowledge cycle at a time against external memory, with
// address/bus-error detection at the start of every new cycle.
package busmanager

import (
	"github.com/segacore/m68k/hardware/cpu/buspins"
	"github.com/segacore/m68k/hardware/cpu/exception"
	"github.com/segacore/m68k/hardware/cpu/registers"
	"github.com/segacore/m68k/hardware/memory/cpubus"
	"github.com/segacore/m68k/internalerr"
	"github.com/segacore/m68k/logger"
)

// State identifies which pin-level cycle, and which phase of it, the bus
// manager is currently driving.
type State int

const (
	Idle State = iota
	ReadAddrSetup
	ReadStrobe
	ReadWaitDTACK
	ReadTeardown
	WriteAddrSetup
	WriteStrobe
	WriteWaitDTACK
	WriteTeardown
	RmwRead
	RmwIdle
	RmwModify
	RmwWrite
	IntAckAddrSetup
	IntAckStrobe
	IntAckWaitDTACK
	IntAckTeardown
)

func (s State) String() string {
	names := [...]string{
		"Idle",
		"ReadAddrSetup", "ReadStrobe", "ReadWaitDTACK", "ReadTeardown",
		"WriteAddrSetup", "WriteStrobe", "WriteWaitDTACK", "WriteTeardown",
		"RmwRead", "RmwIdle", "RmwModify", "RmwWrite",
		"IntAckAddrSetup", "IntAckStrobe", "IntAckWaitDTACK", "IntAckTeardown",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// OnComplete is invoked once a read or interrupt-acknowledge cycle
// latches its result. value holds the latched byte/word for reads, or
// the fetched vector number for interrupt acknowledge.
type OnComplete func(value uint16)

type cycleKind int

const (
	kindReadByte cycleKind = iota
	kindReadWord
	kindWrite
	kindRmw
	kindIntAck
)

// Manager is the bus manager described by spec §4.1.
type Manager struct {
	Pins buspins.Pins

	mem   cpubus.Memory
	intr  cpubus.InterruptDevice
	excep *exception.Manager

	state State
	kind  cycleKind

	addr       uint32
	size       registers.Size
	space      buspins.FunctionCode
	writeData  uint16
	ipl        uint8
	modifyFn   func(uint16) uint16
	onComplete OnComplete

	vector uint8
	pc     uint32 // PC to attribute a detected fault to
}

// New builds a bus manager driving mem for ordinary accesses and intr for
// interrupt-acknowledge cycles, raising exceptions into excep.
func New(mem cpubus.Memory, intr cpubus.InterruptDevice, excep *exception.Manager) *Manager {
	m := &Manager{mem: mem, intr: intr, excep: excep}
	m.Pins.RW = true
	return m
}

// IsIdle reports whether the bus manager is between cycles. Per spec
// §3's invariant, latched data/vector are meaningful only while idle.
func (m *Manager) IsIdle() bool {
	return m.state == Idle
}

// SetPC tells the bus manager which PC value to attribute to a fault
// detected on the next cycle it starts, for the address-error record.
func (m *Manager) SetPC(pc uint32) {
	m.pc = pc
}

func (m *Manager) requireIdle(op string) error {
	if m.state != Idle {
		return internalerr.InternalError(internalerr.BusCycleAlreadyActive, op)
	}
	return nil
}

// InitReadByte starts a byte read cycle.
func (m *Manager) InitReadByte(addr uint32, space buspins.FunctionCode, onComplete OnComplete) error {
	if err := m.requireIdle("read byte"); err != nil {
		return err
	}
	m.kind = kindReadByte
	m.addr, m.size, m.space, m.onComplete = addr, registers.Byte, space, onComplete
	m.state = ReadAddrSetup
	return nil
}

// InitReadWord starts a word read cycle.
func (m *Manager) InitReadWord(addr uint32, space buspins.FunctionCode, onComplete OnComplete) error {
	if err := m.requireIdle("read word"); err != nil {
		return err
	}
	m.kind = kindReadWord
	m.addr, m.size, m.space, m.onComplete = addr, registers.Word, space, onComplete
	m.state = ReadAddrSetup
	return nil
}

// InitWrite starts a write cycle of the given size (Byte or Word; the
// scheduler decomposes long writes into two word writes before calling
// this). onComplete, if non-nil, is invoked once DTACK is latched; its
// value argument is always the written data.
func (m *Manager) InitWrite(addr uint32, data uint16, size registers.Size, space buspins.FunctionCode, onComplete OnComplete) error {
	if err := m.requireIdle("write"); err != nil {
		return err
	}
	m.kind = kindWrite
	m.addr, m.size, m.space, m.writeData = addr, size, space, data
	m.onComplete = onComplete
	m.state = WriteAddrSetup
	return nil
}

// InitReadModifyWrite starts the uninterruptible read-modify-write cycle
// TAS uses: a read, one idle tick, a caller-supplied modify function, and
// a write, all without releasing AS. onComplete, if non-nil, receives the
// byte written back.
func (m *Manager) InitReadModifyWrite(addr uint32, space buspins.FunctionCode, modify func(uint16) uint16, onComplete OnComplete) error {
	if err := m.requireIdle("read-modify-write"); err != nil {
		return err
	}
	m.kind = kindRmw
	m.addr, m.size, m.space, m.modifyFn = addr, registers.Byte, space, modify
	m.onComplete = onComplete
	m.state = RmwRead
	return nil
}

// InitInterruptAck starts an interrupt-acknowledge cycle at the given
// priority level.
func (m *Manager) InitInterruptAck(ipl uint8, onComplete OnComplete) error {
	if err := m.requireIdle("interrupt acknowledge"); err != nil {
		return err
	}
	m.kind = kindIntAck
	m.ipl = ipl
	m.onComplete = onComplete
	m.state = IntAckAddrSetup
	return nil
}

// LatchedByte returns the most recently latched byte. Valid only while idle.
func (m *Manager) LatchedByte() uint8 {
	return uint8(m.Pins.Data)
}

// LatchedWord returns the most recently latched word. Valid only while idle.
func (m *Manager) LatchedWord() uint16 {
	return m.Pins.Data
}

// GetVectorNumber returns the vector fetched by the most recent
// interrupt-acknowledge cycle.
func (m *Manager) GetVectorNumber() uint8 {
	return m.vector
}

// RequestBus asserts BR; the bus manager grants it on the next idle
// transition rather than starting a new CPU-initiated cycle.
func (m *Manager) RequestBus() error {
	if m.Pins.BR {
		return internalerr.InternalError(internalerr.BusAlreadyRequested, "external party")
	}
	m.Pins.RequestBus()
	return nil
}

// ReleaseBus clears BR/BG.
func (m *Manager) ReleaseBus() error {
	if !m.Pins.BR {
		return internalerr.InternalError(internalerr.BusNotRequested)
	}
	m.Pins.ReleaseBus()
	return nil
}

// checkFaults runs the start-of-cycle exception checks spec §4.1
// describes: BERR without HALT is a bus error; a word access to an odd
// address is an address error. Returns true if a fault was raised (the
// caller must abandon the cycle it was about to start).
func (m *Manager) checkFaults(addr uint32, size registers.Size, readFlag, inFlag bool, space buspins.FunctionCode) bool {
	if m.Pins.BERR && !m.Pins.HALT {
		logger.Logf(logger.Allow, "BUS", "bus error detected at %#08x", addr)
		m.excep.Raise(exception.BusError)
		m.reset()
		return true
	}
	if size != registers.Byte && addr&1 != 0 {
		logger.Logf(logger.Allow, "BUS", "address error: odd address %#08x", addr)
		m.excep.RaiseAddressError(exception.AddressErrorRecord{
			Address:      addr,
			FunctionCode: space,
			Read:         readFlag,
			In:           inFlag,
			PC:           m.pc,
		})
		m.reset()
		return true
	}
	return false
}

func (m *Manager) reset() {
	m.state = Idle
	m.Pins.Clear()
}

// Cycle advances the bus manager by exactly one tick, per spec §4.1's
// "each CPU tick, advance the current state by exactly one step."
func (m *Manager) Cycle() error {
	switch m.state {
	case Idle:
		if m.Pins.BR && !m.Pins.BG {
			m.Pins.BG = true
		}
		return nil

	// --- Read cycle ---
	case ReadAddrSetup:
		if m.checkFaults(m.addr, m.size, true, false, m.space) {
			return nil
		}
		m.Pins.FC = m.space
		m.Pins.Address = m.addr
		m.Pins.RW = true
		m.state = ReadStrobe
	case ReadStrobe:
		m.Pins.AS = true
		if m.size == registers.Byte {
			if m.addr&1 == 0 {
				m.Pins.UDS = true
			} else {
				m.Pins.LDS = true
			}
		} else {
			m.Pins.UDS = true
			m.Pins.LDS = true
		}
		m.mem.InitReadByte(m.addr)
		if m.size == registers.Word {
			m.mem.InitReadWord(m.addr)
		}
		m.state = ReadWaitDTACK
	case ReadWaitDTACK:
		if !m.mem.IsIdle() {
			return nil
		}
		if m.size == registers.Byte {
			m.Pins.Data = uint16(m.mem.LatchedByte())
		} else {
			m.Pins.Data = m.mem.LatchedWord()
		}
		m.Pins.DTACK = true
		m.state = ReadTeardown
	case ReadTeardown:
		oc := m.onComplete
		data := m.Pins.Data
		m.reset()
		if oc != nil {
			oc(data)
		}

	// --- Write cycle ---
	case WriteAddrSetup:
		if m.checkFaults(m.addr, m.size, false, false, m.space) {
			return nil
		}
		m.Pins.FC = m.space
		m.Pins.Address = m.addr
		m.Pins.RW = false
		m.Pins.Data = m.writeData
		m.state = WriteStrobe
	case WriteStrobe:
		m.Pins.AS = true
		if m.size == registers.Byte {
			if m.addr&1 == 0 {
				m.Pins.UDS = true
			} else {
				m.Pins.LDS = true
			}
		} else {
			m.Pins.UDS = true
			m.Pins.LDS = true
		}
		m.mem.InitWrite(m.addr, m.writeData, m.size)
		m.state = WriteWaitDTACK
	case WriteWaitDTACK:
		if !m.mem.IsIdle() {
			return nil
		}
		m.Pins.DTACK = true
		m.state = WriteTeardown
	case WriteTeardown:
		oc := m.onComplete
		data := m.Pins.Data
		m.reset()
		if oc != nil {
			oc(data)
		}

	// --- Read-modify-write cycle (TAS) ---
	case RmwRead:
		if m.checkFaults(m.addr, registers.Byte, true, false, m.space) {
			return nil
		}
		m.Pins.FC = m.space
		m.Pins.Address = m.addr
		m.Pins.RW = true
		m.Pins.AS = true
		m.Pins.UDS = true
		m.mem.InitReadByte(m.addr)
		m.state = RmwIdle
	case RmwIdle:
		if !m.mem.IsIdle() {
			return nil
		}
		m.Pins.Data = uint16(m.mem.LatchedByte())
		m.state = RmwModify
	case RmwModify:
		m.Pins.Data = m.modifyFn(m.Pins.Data)
		m.Pins.RW = false
		m.mem.InitWrite(m.addr, m.Pins.Data, registers.Byte)
		m.state = RmwWrite
	case RmwWrite:
		if !m.mem.IsIdle() {
			return nil
		}
		m.Pins.DTACK = true
		oc := m.onComplete
		data := m.Pins.Data
		m.reset()
		if oc != nil {
			oc(data)
		}

	// --- Interrupt-acknowledge cycle ---
	case IntAckAddrSetup:
		m.Pins.FC = buspins.FCInterruptAck
		m.Pins.Address = 0xFFFFFFF8 | uint32(m.ipl&0b111)
		m.Pins.RW = true
		m.state = IntAckStrobe
	case IntAckStrobe:
		m.Pins.AS = true
		m.Pins.UDS = true
		m.Pins.LDS = true
		m.intr.InitInterruptAck(m.ipl)
		m.state = IntAckWaitDTACK
	case IntAckWaitDTACK:
		if !m.intr.IsIdle() {
			return nil
		}
		switch m.intr.Type() {
		case cpubus.Spurious:
			m.Pins.BERR = true
		case cpubus.Autovectored:
			m.Pins.VPA = true
			m.vector = 24 + (m.ipl & 0b111)
		default: // Vectored
			m.vector = m.intr.VectorNumber()
			m.Pins.DTACK = true
		}
		m.state = IntAckTeardown
	case IntAckTeardown:
		oc := m.onComplete
		vec := m.vector
		wasBerr := m.Pins.BERR
		m.reset()
		if wasBerr {
			logger.Log(logger.Allow, "BUS", "spurious interrupt acknowledge")
			return nil
		}
		if oc != nil {
			oc(uint16(vec))
		}
	}
	return nil
}
