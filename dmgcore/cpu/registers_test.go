package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegsPairs(t *testing.T) {
	var r regs
	r.setAF(0xABCD)
	assert.Equal(t, uint16(0xABC0), r.af(), "low nibble of F must always read zero")

	r.setBC(0x1234)
	assert.Equal(t, uint16(0x1234), r.bc())
	assert.Equal(t, uint8(0x12), r[slotB])
	assert.Equal(t, uint8(0x34), r[slotC])

	r.setDE(0xCAFE)
	assert.Equal(t, uint16(0xCAFE), r.de())

	r.setHL(0xBEEF)
	assert.Equal(t, uint16(0xBEEF), r.hl())
}

func TestRegsFlags(t *testing.T) {
	var r regs

	r.putFlag(flagZ, true)
	assert.True(t, r.flag(flagZ))
	assert.Equal(t, uint8(0x80), r[slotF])

	r.putFlag(flagC, true)
	assert.True(t, r.flag(flagC))
	assert.True(t, r.flag(flagZ))

	r.clearFlag(flagZ)
	assert.False(t, r.flag(flagZ))
	assert.True(t, r.flag(flagC))

	r.putFlag(flagC, false)
	assert.Equal(t, uint8(0), r[slotF])
}

func TestR8SlotMapping(t *testing.T) {
	assert.Equal(t, slotB, r8slot[0])
	assert.Equal(t, slotC, r8slot[1])
	assert.Equal(t, slotD, r8slot[2])
	assert.Equal(t, slotE, r8slot[3])
	assert.Equal(t, slotH, r8slot[4])
	assert.Equal(t, slotL, r8slot[5])
	assert.Equal(t, -1, r8slot[6], "index 6 is the (HL) memory operand, not a register slot")
	assert.Equal(t, slotA, r8slot[7])
}
