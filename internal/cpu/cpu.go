// Package cpu implements an instruction-accurate interpreter for the
// Intel 8080 instruction set used by the Space Invaders cabinet.
//
// The CPU is stateless with respect to time: Step decodes and
// executes exactly one instruction and returns the number of clock
// cycles the reference hardware would have spent on it. It knows
// nothing about I/O ports or interrupts; those are the Machine
// Driver's job (see the machine package), which intercepts IN/OUT
// before calling Step and calls Interrupt directly between
// instructions.
package cpu

import "math/bits"

// Memory is the interface the CPU needs from its backing store.
// internal/memory.Memory satisfies it.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, val byte)
}

// Flags holds the four status bits the cabinet ROM relies on. The
// auxiliary-carry flag exists on real 8080 silicon but is not
// maintained here; see spec Non-goals.
type Flags struct {
	Z  bool // Zero
	S  bool // Sign (bit 7 of result)
	P  bool // Parity (even number of set bits)
	CY bool // Carry
}

// pack encodes the flags into the byte layout PUSH PSW uses: bit 0
// CY, bit 2 P, bit 4 AC (always 0), bit 6 Z, bit 7 S; reserved bits
// 1, 3, 5 read back as 1, 0, 0.
func (f Flags) pack() byte {
	var b byte
	if f.CY {
		b |= 1 << 0
	}
	b |= 1 << 1
	if f.P {
		b |= 1 << 2
	}
	if f.Z {
		b |= 1 << 6
	}
	if f.S {
		b |= 1 << 7
	}
	return b
}

// unpack reinterprets a PUSH-PSW-style byte back into the four
// maintained flag bits, ignoring the reserved bits.
func unpackFlags(b byte) Flags {
	return Flags{
		CY: b&(1<<0) != 0,
		P:  b&(1<<2) != 0,
		Z:  b&(1<<6) != 0,
		S:  b&(1<<7) != 0,
	}
}

// CPU is the Intel 8080 register file plus the memory it executes
// against. The register, flag, latch, and memory fields are exported
// so tests and the Machine Driver can set and inspect them directly;
// the opcode table is unexported and filled in only by New.
type CPU struct {
	A, B, C, D, E, H, L byte
	SP, PC              uint16
	Flags               Flags
	IFF                 bool // interrupt-enable latch

	Mem Memory

	table [256]instruction
}

type instruction struct {
	name string
	exec func(c *CPU)
}

// cycles is the published 8080 cycle count for every opcode byte,
// indexed by opcode. Conditional CALL/RET entries use the single
// table value regardless of whether the branch is taken; the
// original hardware's extra 6 cycles on a taken conditional are
// omitted as part of this core's timing approximation (spec
// Non-goals).
var cycles = [256]byte{
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4, // 0x00-0x0f
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4, // 0x10-0x1f
	4, 10, 16, 5, 5, 5, 7, 4, 4, 10, 16, 5, 5, 5, 7, 4, // 0x20-0x2f
	4, 10, 13, 5, 10, 10, 10, 4, 4, 10, 13, 5, 5, 5, 7, 4, // 0x30-0x3f
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 0x40-0x4f
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 0x50-0x5f
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 0x60-0x6f
	7, 7, 7, 7, 7, 7, 7, 7, 5, 5, 5, 5, 5, 5, 7, 5, // 0x70-0x7f
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 0x80-0x8f
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 0x90-0x9f
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 0xa0-0xaf
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 0xb0-0xbf
	11, 10, 10, 10, 17, 11, 7, 11, 11, 10, 10, 10, 17, 17, 7, 11, // 0xc0-0xcf
	11, 10, 10, 10, 17, 11, 7, 11, 11, 10, 10, 10, 17, 17, 7, 11, // 0xd0-0xdf
	11, 10, 10, 18, 17, 11, 7, 11, 11, 5, 10, 5, 17, 17, 7, 11, // 0xe0-0xef
	11, 10, 10, 4, 17, 11, 7, 11, 11, 5, 10, 4, 17, 17, 7, 11, // 0xf0-0xff
}

// undocumented lists the opcode bytes with no defined 8080 behavior;
// they execute as NOP.
var undocumented = [...]byte{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38, 0xCB, 0xD9, 0xDD, 0xED, 0xFD}

// New returns a CPU wired to mem with all registers zeroed.
func New(mem Memory) *CPU {
	c := &CPU{Mem: mem}
	c.buildTable()
	return c
}

// Step fetches and executes exactly one instruction, advancing PC
// past the opcode before the handler runs, and returns the number of
// cycles the reference hardware spends on it.
func (c *CPU) Step() int {
	opcode := c.read(c.PC)
	c.PC++
	c.table[opcode].exec(c)
	return int(cycles[opcode])
}

// Interrupt pushes PC, clears the interrupt-enable latch, and jumps
// to 8*n — equivalent to executing RST n with interrupts left
// disabled until the program re-enables them with EI. The caller
// (the Machine Driver) is responsible for only invoking this while
// IFF is set.
func (c *CPU) Interrupt(n int) {
	c.push(c.PC)
	c.IFF = false
	c.PC = uint16(n) * 8
}

////////////////////////////////////////////////////////////////
// Memory and stack helpers

func (c *CPU) read(addr uint16) byte       { return c.Mem.Read(addr) }
func (c *CPU) write(addr uint16, v byte)   { c.Mem.Write(addr, v) }

func (c *CPU) imm8() byte {
	v := c.read(c.PC)
	c.PC++
	return v
}

func (c *CPU) imm16() uint16 {
	lo := c.imm8()
	hi := c.imm8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) push(v uint16) {
	c.SP--
	c.write(c.SP, byte(v>>8))
	c.SP--
	c.write(c.SP, byte(v))
}

func (c *CPU) pop() uint16 {
	lo := c.read(c.SP)
	c.SP++
	hi := c.read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

////////////////////////////////////////////////////////////////
// Register pairs and the 3-bit register encoding shared by MOV,
// arithmetic, INR/DCR, and MVI: 0=B 1=C 2=D 3=E 4=H 5=L 6=M 7=A.

func (c *CPU) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) SetBC(v uint16) { c.B, c.C = byte(v>>8), byte(v) }
func (c *CPU) SetDE(v uint16) { c.D, c.E = byte(v>>8), byte(v) }
func (c *CPU) SetHL(v uint16) { c.H, c.L = byte(v>>8), byte(v) }

func (c *CPU) getReg(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read(c.HL())
	default:
		return c.A
	}
}

func (c *CPU) setReg(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write(c.HL(), v)
	default:
		c.A = v
	}
}

// getRP/setRP cover the LXI/INX/DCX/DAD register-pair encoding, where
// rp==3 names SP (distinct from the PUSH/POP encoding, where 3 names
// PSW).
func (c *CPU) getRP(rp byte) uint16 {
	switch rp {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *CPU) setRP(rp byte, v uint16) {
	switch rp {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

////////////////////////////////////////////////////////////////
// Flag helpers

func parityEven(b byte) bool { return bits.OnesCount8(b)%2 == 0 }

func (c *CPU) setZSP(result byte) {
	c.Flags.Z = result == 0
	c.Flags.S = result&0x80 != 0
	c.Flags.P = parityEven(result)
}

////////////////////////////////////////////////////////////////
// Arithmetic/logical primitives shared across the opcode table.

func (c *CPU) add(val byte, withCarry bool) {
	var carryIn uint16
	if withCarry && c.Flags.CY {
		carryIn = 1
	}
	sum := uint16(c.A) + uint16(val) + carryIn
	c.Flags.CY = sum > 0xFF
	result := byte(sum)
	c.setZSP(result)
	c.A = result
}

// sub computes A - val - borrowIn. When store is false (CMP/CPI), the
// result is discarded and only the flags are updated.
func (c *CPU) sub(val byte, withBorrow bool, store bool) {
	var borrowIn uint16
	if withBorrow && c.Flags.CY {
		borrowIn = 1
	}
	c.Flags.CY = uint16(c.A) < uint16(val)+borrowIn
	result := byte(uint16(c.A) - uint16(val) - borrowIn)
	c.setZSP(result)
	if store {
		c.A = result
	}
}

func (c *CPU) ana(val byte) {
	c.A &= val
	c.Flags.CY = false
	c.setZSP(c.A)
}

func (c *CPU) xra(val byte) {
	c.A ^= val
	c.Flags.CY = false
	c.setZSP(c.A)
}

func (c *CPU) ora(val byte) {
	c.A |= val
	c.Flags.CY = false
	c.setZSP(c.A)
}

func (c *CPU) inr(idx byte) {
	v := c.getReg(idx) + 1
	c.setReg(idx, v)
	c.setZSP(v)
}

func (c *CPU) dcr(idx byte) {
	v := c.getReg(idx) - 1
	c.setReg(idx, v)
	c.setZSP(v)
}

func (c *CPU) dad(rp byte) {
	sum := uint32(c.HL()) + uint32(c.getRP(rp))
	c.Flags.CY = sum > 0xFFFF
	c.SetHL(uint16(sum))
}

// daa implements the reduced BCD adjustment the stock ROM relies on:
// no auxiliary-carry tracking, no preservation of a high-nibble
// carry-in. See spec Non-goals.
func (c *CPU) daa() {
	if c.A&0x0F > 9 {
		c.A += 6
	}
	if c.A>>4 > 9 {
		sum := uint16(c.A) + 0x60
		c.Flags.CY = sum > 0xFF
		c.A = byte(sum)
	}
}

////////////////////////////////////////////////////////////////
// Condition codes shared by Jcc/Ccc/Rcc, indexed by the opcode's ccc
// field (bits 5-3): NZ Z NC C PO PE P M.

var conditions = [8]func(c *CPU) bool{
	func(c *CPU) bool { return !c.Flags.Z },
	func(c *CPU) bool { return c.Flags.Z },
	func(c *CPU) bool { return !c.Flags.CY },
	func(c *CPU) bool { return c.Flags.CY },
	func(c *CPU) bool { return !c.Flags.P },
	func(c *CPU) bool { return c.Flags.P },
	func(c *CPU) bool { return !c.Flags.S },
	func(c *CPU) bool { return c.Flags.S },
}

////////////////////////////////////////////////////////////////
// Opcode table construction. 8080 encodes most of its instruction
// space as regular bit fields (register index, register-pair index,
// condition code), so families of opcodes are generated with small
// loops rather than spelled out one by one; the genuinely irregular
// opcodes are assigned individually.

func (c *CPU) buildTable() {
	nop := instruction{"NOP", func(c *CPU) {}}
	for i := range c.table {
		c.table[i] = nop
	}
	for _, op := range undocumented {
		c.table[op] = nop
	}

	c.buildDataTransfer()
	c.buildArithmeticLogical()
	c.buildRotates()
	c.buildBranches()
	c.buildStack()
	c.buildControl()
}

func (c *CPU) buildDataTransfer() {
	// MOV r1,r2 and HLT (0x76, the one "hole" in the MOV block).
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			c.table[op] = instruction{"HLT", func(c *CPU) {}}
			continue
		}
		dst, src := byte((op>>3)&7), byte(op&7)
		c.table[op] = instruction{"MOV", func(c *CPU) { c.setReg(dst, c.getReg(src)) }}
	}

	// MVI r,d8
	for r := byte(0); r < 8; r++ {
		op := 0x06 | (r << 3)
		reg := r
		c.table[op] = instruction{"MVI", func(c *CPU) { c.setReg(reg, c.imm8()) }}
	}

	// LXI rp,d16
	for rp := byte(0); rp < 4; rp++ {
		op := 0x01 | (rp << 4)
		pair := rp
		c.table[op] = instruction{"LXI", func(c *CPU) { c.setRP(pair, c.imm16()) }}
	}

	// STAX/LDAX rp (B and D pairs only)
	for _, rp := range []byte{0, 1} {
		pair := rp
		c.table[0x02|(rp<<4)] = instruction{"STAX", func(c *CPU) { c.write(c.getRP(pair), c.A) }}
		c.table[0x0A|(rp<<4)] = instruction{"LDAX", func(c *CPU) { c.A = c.read(c.getRP(pair)) }}
	}

	c.table[0x22] = instruction{"SHLD", func(c *CPU) {
		addr := c.imm16()
		c.write(addr, c.L)
		c.write(addr+1, c.H)
	}}
	c.table[0x2A] = instruction{"LHLD", func(c *CPU) {
		addr := c.imm16()
		c.L = c.read(addr)
		c.H = c.read(addr + 1)
	}}
	c.table[0x32] = instruction{"STA", func(c *CPU) { c.write(c.imm16(), c.A) }}
	c.table[0x3A] = instruction{"LDA", func(c *CPU) { c.A = c.read(c.imm16()) }}

	c.table[0xEB] = instruction{"XCHG", func(c *CPU) {
		c.D, c.E, c.H, c.L = c.H, c.L, c.D, c.E
	}}
	c.table[0xE3] = instruction{"XTHL", func(c *CPU) {
		l, h := c.L, c.H
		c.L = c.read(c.SP)
		c.H = c.read(c.SP + 1)
		c.write(c.SP, l)
		c.write(c.SP+1, h)
	}}
	c.table[0xF9] = instruction{"SPHL", func(c *CPU) { c.SP = c.HL() }}
	c.table[0xE9] = instruction{"PCHL", func(c *CPU) { c.PC = c.HL() }}
}

func (c *CPU) buildArithmeticLogical() {
	// INR/DCR r (and M)
	for r := byte(0); r < 8; r++ {
		reg := r
		c.table[0x04|(r<<3)] = instruction{"INR", func(c *CPU) { c.inr(reg) }}
		c.table[0x05|(r<<3)] = instruction{"DCR", func(c *CPU) { c.dcr(reg) }}
	}

	// INX/DCX/DAD rp
	for rp := byte(0); rp < 4; rp++ {
		pair := rp
		c.table[0x03|(rp<<4)] = instruction{"INX", func(c *CPU) { c.setRP(pair, c.getRP(pair)+1) }}
		c.table[0x0B|(rp<<4)] = instruction{"DCX", func(c *CPU) { c.setRP(pair, c.getRP(pair)-1) }}
		c.table[0x09|(rp<<4)] = instruction{"DAD", func(c *CPU) { c.dad(pair) }}
	}

	// ADD/ADC/SUB/SBB/ANA/XRA/ORA/CMP r
	type group struct {
		name string
		op   func(c *CPU, val byte)
	}
	groups := [8]group{
		{"ADD", func(c *CPU, v byte) { c.add(v, false) }},
		{"ADC", func(c *CPU, v byte) { c.add(v, true) }},
		{"SUB", func(c *CPU, v byte) { c.sub(v, false, true) }},
		{"SBB", func(c *CPU, v byte) { c.sub(v, true, true) }},
		{"ANA", func(c *CPU, v byte) { c.ana(v) }},
		{"XRA", func(c *CPU, v byte) { c.xra(v) }},
		{"ORA", func(c *CPU, v byte) { c.ora(v) }},
		{"CMP", func(c *CPU, v byte) { c.sub(v, false, false) }},
	}
	for g := byte(0); g < 8; g++ {
		for src := byte(0); src < 8; src++ {
			op := 0x80 | (g << 3) | src
			fn, s := groups[g].op, src
			c.table[op] = instruction{groups[g].name, func(c *CPU) { fn(c, c.getReg(s)) }}
		}
	}

	// Immediate forms
	c.table[0xC6] = instruction{"ADI", func(c *CPU) { c.add(c.imm8(), false) }}
	c.table[0xCE] = instruction{"ACI", func(c *CPU) { c.add(c.imm8(), true) }}
	c.table[0xD6] = instruction{"SUI", func(c *CPU) { c.sub(c.imm8(), false, true) }}
	c.table[0xDE] = instruction{"SBI", func(c *CPU) { c.sub(c.imm8(), true, true) }}
	c.table[0xE6] = instruction{"ANI", func(c *CPU) { c.ana(c.imm8()) }}
	c.table[0xEE] = instruction{"XRI", func(c *CPU) { c.xra(c.imm8()) }}
	c.table[0xF6] = instruction{"ORI", func(c *CPU) { c.ora(c.imm8()) }}
	c.table[0xFE] = instruction{"CPI", func(c *CPU) { c.sub(c.imm8(), false, false) }}

	c.table[0x27] = instruction{"DAA", func(c *CPU) { c.daa() }}
}

func (c *CPU) buildRotates() {
	c.table[0x07] = instruction{"RLC", func(c *CPU) {
		carry := c.A&0x80 != 0
		c.A = c.A<<1 | boolByte(carry)
		c.Flags.CY = carry
	}}
	c.table[0x0F] = instruction{"RRC", func(c *CPU) {
		carry := c.A&0x01 != 0
		c.A = c.A>>1 | boolByte(carry)<<7
		c.Flags.CY = carry
	}}
	c.table[0x17] = instruction{"RAL", func(c *CPU) {
		oldCY := c.Flags.CY
		c.Flags.CY = c.A&0x80 != 0
		c.A = c.A<<1 | boolByte(oldCY)
	}}
	c.table[0x1F] = instruction{"RAR", func(c *CPU) {
		oldCY := c.Flags.CY
		c.Flags.CY = c.A&0x01 != 0
		c.A = c.A>>1 | boolByte(oldCY)<<7
	}}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) buildBranches() {
	c.table[0xC3] = instruction{"JMP", func(c *CPU) { c.PC = c.imm16() }}
	c.table[0xCD] = instruction{"CALL", func(c *CPU) {
		addr := c.imm16()
		c.push(c.PC)
		c.PC = addr
	}}
	c.table[0xC9] = instruction{"RET", func(c *CPU) { c.PC = c.pop() }}

	for ccc := byte(0); ccc < 8; ccc++ {
		cond := conditions[ccc]

		jop := 0xC2 | (ccc << 3)
		c.table[jop] = instruction{"Jcc", func(c *CPU) {
			addr := c.imm16()
			if cond(c) {
				c.PC = addr
			}
		}}

		cop := 0xC4 | (ccc << 3)
		c.table[cop] = instruction{"Ccc", func(c *CPU) {
			addr := c.imm16()
			if cond(c) {
				c.push(c.PC)
				c.PC = addr
			}
		}}

		rop := 0xC0 | (ccc << 3)
		c.table[rop] = instruction{"Rcc", func(c *CPU) {
			if cond(c) {
				c.PC = c.pop()
			}
		}}
	}

	for n := byte(0); n < 8; n++ {
		addr := uint16(n) * 8
		c.table[0xC7|(n<<3)] = instruction{"RST", func(c *CPU) {
			c.push(c.PC)
			c.PC = addr
		}}
	}
}

func (c *CPU) buildStack() {
	for rp := byte(0); rp < 3; rp++ {
		pair := rp
		c.table[0xC1|(rp<<4)] = instruction{"POP", func(c *CPU) { c.setRP(pair, c.pop()) }}
		c.table[0xC5|(rp<<4)] = instruction{"PUSH", func(c *CPU) { c.push(c.getRP(pair)) }}
	}
	c.table[0xF1] = instruction{"POP", func(c *CPU) {
		v := c.pop()
		c.A = byte(v >> 8)
		c.Flags = unpackFlags(byte(v))
	}}
	c.table[0xF5] = instruction{"PUSH", func(c *CPU) {
		c.push(uint16(c.A)<<8 | uint16(c.Flags.pack()))
	}}
}

func (c *CPU) buildControl() {
	c.table[0xF3] = instruction{"DI", func(c *CPU) { c.IFF = false }}
	c.table[0xFB] = instruction{"EI", func(c *CPU) { c.IFF = true }}
	c.table[0x2F] = instruction{"CMA", func(c *CPU) { c.A = ^c.A }}
	c.table[0x37] = instruction{"STC", func(c *CPU) { c.Flags.CY = true }}
	c.table[0x3F] = instruction{"CMC", func(c *CPU) { c.Flags.CY = !c.Flags.CY }}

	// IN/OUT are intercepted by the Machine Driver before Step is
	// called (spec Open Questions); these stubs only advance PC so
	// Step stays well-defined when the CPU is exercised standalone.
	c.table[0xDB] = instruction{"IN", func(c *CPU) { c.imm8() }}
	c.table[0xD3] = instruction{"OUT", func(c *CPU) { c.imm8() }}
}
