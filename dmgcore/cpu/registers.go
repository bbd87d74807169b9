package cpu

import "github.com/arata-dev/dmgcore/dmgcore/bit"

// Flag is one of the four condition flags packed into the high nibble of F.
// The low nibble of F always reads as zero.
type Flag uint8

const (
	flagZ Flag = 0x80 // Zero
	flagN Flag = 0x40 // Subtract
	flagH Flag = 0x20 // Half-carry
	flagC Flag = 0x10 // Carry
)

// regs holds the eight 8-bit halves of AF/BC/DE/HL as a flat array, indexed
// by slot. This avoids the union/overlapping-storage trick real hardware
// relies on while keeping pair access a simple combine of two slots.
type regs [8]uint8

const (
	slotA = iota
	slotF
	slotB
	slotC
	slotD
	slotE
	slotH
	slotL
)

// r8slot maps the 3-bit register field used throughout the opcode encoding
// (order B, C, D, E, H, L, (HL), A) to a slot in regs. Index 6, (HL), is not
// a register slot: callers must special-case it to go through memory.
var r8slot = [8]int{slotB, slotC, slotD, slotE, slotH, slotL, -1, slotA}

func (r *regs) af() uint16 { return bit.Combine(r[slotA], r[slotF]) }
func (r *regs) bc() uint16 { return bit.Combine(r[slotB], r[slotC]) }
func (r *regs) de() uint16 { return bit.Combine(r[slotD], r[slotE]) }
func (r *regs) hl() uint16 { return bit.Combine(r[slotH], r[slotL]) }

func (r *regs) setAF(v uint16) {
	r[slotA] = bit.High(v)
	r[slotF] = bit.Low(v) & 0xF0 // low nibble of F is always zero
}
func (r *regs) setBC(v uint16) { r[slotB], r[slotC] = bit.High(v), bit.Low(v) }
func (r *regs) setDE(v uint16) { r[slotD], r[slotE] = bit.High(v), bit.Low(v) }
func (r *regs) setHL(v uint16) { r[slotH], r[slotL] = bit.High(v), bit.Low(v) }

func (r *regs) flag(f Flag) bool { return r[slotF]&uint8(f) != 0 }
func (r *regs) setFlag(f Flag)   { r[slotF] |= uint8(f) }
func (r *regs) clearFlag(f Flag) { r[slotF] &^= uint8(f) }

func (r *regs) putFlag(f Flag, v bool) {
	if v {
		r.setFlag(f)
	} else {
		r.clearFlag(f)
	}
}
