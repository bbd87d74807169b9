package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arata-dev/dmgcore/dmgcore/addr"
)

func TestRegionDecodingRoundTrips(t *testing.T) {
	m := New()

	m.Write(0x8001, 0x42) // VRAM
	assert.Equal(t, uint8(0x42), m.Read(0x8001))

	m.Write(0xC010, 0x11) // WRAM
	assert.Equal(t, uint8(0x11), m.Read(0xC010))

	m.Write(0xFE10, 0x22) // OAM
	assert.Equal(t, uint8(0x22), m.Read(0xFE10))
}

func TestEchoRAMMirrorsWRAM(t *testing.T) {
	m := New()

	m.Write(0xC123, 0x99)
	assert.Equal(t, uint8(0x99), m.Read(0xE123), "echo RAM must mirror WRAM reads")

	m.Write(0xE456, 0x77)
	assert.Equal(t, uint8(0x77), m.Read(0xC456), "writes through echo RAM must land in WRAM")
}

func TestOAMDMACopiesAndGatesBus(t *testing.T) {
	m := New()

	for i := uint16(0); i < 160; i++ {
		m.Write(0xC000+i, uint8(i))
	}

	m.Write(addr.DMA, 0xC0)

	for i := uint16(0); i < 160; i++ {
		assert.Equal(t, uint8(i), m.memory[0xFE00+i], "DMA must copy source bytes into OAM immediately")
	}

	assert.Equal(t, uint8(0xFF), m.Read(0x8000), "reads below HRAM return 0xFF while DMA holds the bus")
	m.Write(0xC000, 0xAB)
	assert.Equal(t, uint8(0xFF), m.Read(0xC000), "the read gate still applies even though the write underneath it proceeded")

	m.Write(0xFF80, 0x55) // HRAM remains accessible during DMA
	assert.Equal(t, uint8(0x55), m.Read(0xFF80))

	m.Tick(dmaTransferCycles)
	assert.False(t, m.dmaActive())
	assert.Equal(t, uint8(0xAB), m.Read(0xC000), "writes below HRAM proceed during DMA; only reads are gated")
}

func TestJoypadSelectionMasksButtonSets(t *testing.T) {
	m := New()

	m.HandleKeyPress(JoypadA)
	m.HandleKeyPress(JoypadRight)

	m.Write(addr.P1, 0b00010000) // select buttons (bit4 low selects dpad; bit5 low selects buttons)
	p1 := m.Read(addr.P1)
	assert.Equal(t, uint8(0), p1&0x01, "pressed A must read as 0")
	assert.Equal(t, uint8(0x02), p1&0x02, "B is not pressed, must read as 1")

	m.Write(addr.P1, 0b00100000) // select d-pad
	p1 = m.Read(addr.P1)
	assert.Equal(t, uint8(0), p1&0x01, "pressed right must read as 0")

	m.HandleKeyRelease(JoypadA)
	m.HandleKeyRelease(JoypadRight)
}

func TestJoypadInterruptOnPressTransition(t *testing.T) {
	m := New()

	m.Write(addr.IF, 0)
	m.HandleKeyPress(JoypadStart)

	assert.NotEqual(t, uint8(0), m.Read(addr.IF)&uint8(addr.JoypadInterrupt), "pressing a key must raise the joypad interrupt")
}

func TestSaveStateRoundTrip(t *testing.T) {
	m := New()

	m.Write(0xC000, 0xAA)
	m.Write(0xC100, 0xBB)
	m.Write(0xFF80, 0xCC)
	m.Write(addr.NR10, 0x7F)

	cs := CPUState{
		A: 0x11, F: 0x20, B: 0x33, C: 0x44, D: 0x55, E: 0x66, H: 0x77, L: 0x88,
		SP: 0xFFFE, PC: 0x0150, Mode: 0, IME: 2,
	}
	buf := m.SaveState(cs)

	m2 := New()
	got, err := m2.LoadState(buf)
	require.NoError(t, err)

	assert.Equal(t, cs, got)
	assert.Equal(t, uint8(0xAA), m2.Read(0xC000))
	assert.Equal(t, uint8(0xBB), m2.Read(0xC100))
	assert.Equal(t, uint8(0xCC), m2.Read(0xFF80))
}

func TestLoadStateRejectsBadMagicAndVersion(t *testing.T) {
	m := New()

	_, err := m.LoadState([]byte("nope"))
	assert.Error(t, err)

	cs := CPUState{SP: 0xFFFE, PC: 0x0100}
	buf := m.SaveState(cs)
	buf[4] = 99 // corrupt version byte
	_, err = m.LoadState(buf)
	assert.Error(t, err)
}

func TestNewWithCartridgeRejectsBankedROM(t *testing.T) {
	rom := make([]byte, 0x150)
	rom[cartridgeTypeAddress] = 0x01 // MBC1, unsupported

	cart, err := NewCartridgeWithData(rom)
	require.NoError(t, err)
	assert.Equal(t, MBC1Type, cart.mbcType)

	_, err = NewWithCartridge(cart)
	assert.Error(t, err, "only NoMBC cartridges are supported")
}

func TestNewWithCartridgeAcceptsLinearROM(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[cartridgeTypeAddress] = 0x00 // NoMBC
	copy(rom[titleAddress:], []byte("TESTROM"))

	cart, err := NewCartridgeWithData(rom)
	require.NoError(t, err)
	assert.Equal(t, "TESTROM", cart.Title())

	m, err := NewWithCartridge(cart)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x00), m.Read(0x0000))
}
