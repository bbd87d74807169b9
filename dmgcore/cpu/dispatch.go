package cpu

import "github.com/arata-dev/dmgcore/dmgcore/addr"

// execute decodes and runs one non-prefixed opcode, returning its T-cycle
// cost. Opcodes in 0x40-0xBF follow the regular register-grid encoding and
// are handled generically; everything else is dispatched by a flat switch
// keyed on the raw byte.
func (c *CPU) execute(op uint8) int {
	if op >= 0x40 && op <= 0xBF && op != 0x76 {
		return c.executeRegular(op)
	}

	y := (op >> 3) & 7
	z := op & 7
	p := y >> 1
	q := y & 1

	switch {
	case op == 0x00:
		return 4
	case op == 0x76:
		return c.halt()
	case op <= 0x3F:
		return c.executeBlockZero(op, y, z, p, q)
	default:
		return c.executeBlockThree(op, y, z, p, q)
	}
}

func (c *CPU) executeRegular(op uint8) int {
	dest := (op >> 3) & 7
	src := op & 7
	cycles := 4
	if dest == 6 || src == 6 {
		cycles = 8
	}

	if op <= 0x7F {
		c.writeR8(dest, c.readR8(src))
		return cycles
	}

	value := c.readR8(src)
	switch dest {
	case 0:
		c.add(value, false)
	case 1:
		c.add(value, true)
	case 2:
		c.sub(value, false, false)
	case 3:
		c.sub(value, true, false)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	case 7:
		c.sub(value, false, true)
	}
	return cycles
}

func (c *CPU) executeBlockZero(op, y, z, p, q uint8) int {
	switch z {
	case 0:
		switch {
		case y == 1:
			addrNN := c.readImmediate16()
			c.bus.Write(addrNN, uint8(c.sp))
			c.bus.Write(addrNN+1, uint8(c.sp>>8))
			return 20
		case y == 2:
			c.readImmediate8() // STOP's padding byte
			c.mode = ModeStopped
			return 4
		case y == 3:
			c.jr()
			return 12
		default:
			if c.jrConditional(y - 4) {
				return 12
			}
			return 8
		}
	case 1:
		if q == 0 {
			c.writeR16SP(p, c.readImmediate16())
			return 12
		}
		c.addHL(c.readR16SP(p))
		return 8
	case 2:
		return c.executeIndirectAccum(p, q)
	case 3:
		if q == 0 {
			c.writeR16SP(p, c.readR16SP(p)+1)
		} else {
			c.writeR16SP(p, c.readR16SP(p)-1)
		}
		return 8
	case 4:
		c.writeR8(y, c.inc8(c.readR8(y)))
		if y == 6 {
			return 12
		}
		return 4
	case 5:
		c.writeR8(y, c.dec8(c.readR8(y)))
		if y == 6 {
			return 12
		}
		return 4
	case 6:
		c.writeR8(y, c.readImmediate8())
		if y == 6 {
			return 12
		}
		return 8
	default: // z == 7
		switch y {
		case 0:
			c.rlca()
		case 1:
			c.rrca()
		case 2:
			c.rla()
		case 3:
			c.rra()
		case 4:
			c.daa()
		case 5:
			c.cpl()
		case 6:
			c.scf()
		case 7:
			c.ccf()
		}
		return 4
	}
}

// executeIndirectAccum handles the four LD (BC/DE/HL+/HL-),A and
// LD A,(BC/DE/HL+/HL-) forms (block 00, z==2).
func (c *CPU) executeIndirectAccum(p, q uint8) int {
	var address uint16
	switch p {
	case 0:
		address = c.r.bc()
	case 1:
		address = c.r.de()
	case 2:
		address = c.r.hl()
	case 3:
		address = c.r.hl()
	}

	if q == 0 {
		c.bus.Write(address, c.r[slotA])
	} else {
		c.r[slotA] = c.bus.Read(address)
	}

	if p == 2 {
		c.r.setHL(address + 1)
	} else if p == 3 {
		c.r.setHL(address - 1)
	}
	return 8
}

func (c *CPU) jr() {
	offset := int8(c.readImmediate8())
	c.pc = uint16(int32(c.pc) + int32(offset))
}

func (c *CPU) jrConditional(cc uint8) bool {
	offset := int8(c.readImmediate8())
	if !c.condition(cc) {
		return false
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	return true
}

func (c *CPU) halt() int {
	ifReg := c.bus.Read(addr.IF)
	ieReg := c.bus.Read(addr.IE)
	pending := ifReg&ieReg&0x1F != 0

	if c.ime == imeEnabled || !pending {
		c.mode = ModeHalted
	} else {
		// HALT bug: IME disabled with a pending interrupt. The CPU does
		// not actually halt; the next fetch repeats the following byte.
		c.haltBugPending = true
	}
	return 4
}

func (c *CPU) executeBlockThree(op, y, z, p, q uint8) int {
	switch z {
	case 0:
		switch {
		case y <= 3:
			if c.condition(y) {
				c.pc = c.popStack()
				return 20
			}
			return 8
		case y == 4:
			offset := uint16(c.readImmediate8())
			c.bus.Write(0xFF00+offset, c.r[slotA])
			return 12
		case y == 5:
			e8 := int8(c.readImmediate8())
			c.sp = c.addSPSigned(e8)
			return 16
		case y == 6:
			offset := uint16(c.readImmediate8())
			c.r[slotA] = c.bus.Read(0xFF00 + offset)
			return 12
		default: // y == 7
			e8 := int8(c.readImmediate8())
			c.r.setHL(c.addSPSigned(e8))
			return 12
		}
	case 1:
		if q == 0 {
			c.writeR16Stack(p, c.popStack())
			return 12
		}
		switch p {
		case 0:
			c.pc = c.popStack()
			return 16
		case 1:
			c.pc = c.popStack()
			c.ime = imeEnabled
			return 16
		case 2:
			c.pc = c.r.hl()
			return 4
		default:
			c.sp = c.r.hl()
			return 8
		}
	case 2:
		switch {
		case y <= 3:
			target := c.readImmediate16()
			if c.condition(y) {
				c.pc = target
				return 16
			}
			return 12
		case y == 4:
			c.bus.Write(0xFF00+uint16(c.r[slotC]), c.r[slotA])
			return 8
		case y == 5:
			c.bus.Write(c.readImmediate16(), c.r[slotA])
			return 16
		case y == 6:
			c.r[slotA] = c.bus.Read(0xFF00 + uint16(c.r[slotC]))
			return 8
		default:
			c.r[slotA] = c.bus.Read(c.readImmediate16())
			return 16
		}
	case 3:
		switch y {
		case 0:
			c.pc = c.readImmediate16()
			return 16
		case 6:
			c.ime = imeDisabled
			return 4
		case 7:
			c.ime = imePending
			return 4
		default:
			return 4 // unreachable: remaining y values are undefined opcodes
		}
	case 4:
		target := c.readImmediate16()
		if y <= 3 && c.condition(y) {
			c.pushStack(c.pc)
			c.pc = target
			return 24
		}
		return 12
	case 5:
		if q == 0 {
			c.pushStack(c.readR16Stack(p))
			return 16
		}
		target := c.readImmediate16()
		c.pushStack(c.pc)
		c.pc = target
		return 24
	case 6:
		value := c.readImmediate8()
		switch y {
		case 0:
			c.add(value, false)
		case 1:
			c.add(value, true)
		case 2:
			c.sub(value, false, false)
		case 3:
			c.sub(value, true, false)
		case 4:
			c.and(value)
		case 5:
			c.xor(value)
		case 6:
			c.or(value)
		case 7:
			c.sub(value, false, true)
		}
		return 8
	default: // z == 7, RST
		c.pushStack(c.pc)
		c.pc = uint16(y) * 8
		return 16
	}
}

// executeCB decodes and runs one 0xCB-prefixed opcode.
func (c *CPU) executeCB(op uint8) int {
	y := (op >> 3) & 7
	z := op & 7
	indirect := z == 6

	switch {
	case op <= 0x3F:
		value := c.applyRotateShift(cbOp(y), c.readR8(z))
		c.writeR8(z, value)
		if indirect {
			return 16
		}
		return 8
	case op <= 0x7F:
		value := c.readR8(z)
		c.r.putFlag(flagZ, value&(1<<y) == 0)
		c.r.clearFlag(flagN)
		c.r.setFlag(flagH)
		if indirect {
			return 12
		}
		return 8
	case op <= 0xBF:
		c.writeR8(z, c.readR8(z)&^(1<<y))
		if indirect {
			return 16
		}
		return 8
	default:
		c.writeR8(z, c.readR8(z)|(1<<y))
		if indirect {
			return 16
		}
		return 8
	}
}
