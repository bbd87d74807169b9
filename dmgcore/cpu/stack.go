package cpu

import "github.com/arata-dev/dmgcore/dmgcore/bit"

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// readImmediate8 reads the byte at pc and advances it, independent of the
// HALT-bug fetch path (used for operand bytes, not opcode bytes).
func (c *CPU) readImmediate8() uint8 {
	value := c.bus.Read(c.pc)
	c.pc++
	return value
}

func (c *CPU) readImmediate16() uint16 {
	low := c.readImmediate8()
	high := c.readImmediate8()
	return bit.Combine(high, low)
}
