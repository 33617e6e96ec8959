// Package registers implements the programmer-visible state of the 68000:
// the eight data registers (D0-D7), the eight address registers (A0-A7,
// with A7 aliasing the supervisor or user stack pointer depending on
// SR.S), the program counter, the status register, and the IR/IRD/IRC
// prefetch shadow registers.
//
// Field access goes through explicit size-tagged accessors (Get/Set take
// a Size) rather than separate byte/word/long methods scattered across
// callers, since almost every instruction handler in hardware/cpu/instruction
// needs to pick its width at runtime from the decoded opcode.
package registers
