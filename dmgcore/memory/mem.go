package memory

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/arata-dev/dmgcore/dmgcore/addr"
	"github.com/arata-dev/dmgcore/dmgcore/audio"
	"github.com/arata-dev/dmgcore/dmgcore/bit"
	"github.com/arata-dev/dmgcore/dmgcore/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// JoypadKey represents a key on the Gameboy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// dmaTransferCycles is how long (in T-cycles) OAM DMA holds the bus; the
// 160-byte copy itself happens instantly at the write, but CPU reads
// outside HRAM return 0xFF for this many cycles afterward.
const dmaTransferCycles = 160 * 4

// MMU routes CPU reads/writes to the region responsible for an address,
// and satisfies cpu.Bus.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypadButtons uint8 // state of A/B/Start/Select, mapped to low bits of P1
	joypadDpad    uint8 // state of the 4 d-pad directions, mapped to low bits of P1

	serial SerialPort
	timer  Timer

	dmaCyclesLeft int
}

// New creates a memory unit with no cartridge loaded, equivalent to turning
// on a Game Boy with an empty cartridge slot.
func New() *MMU {
	mmu := &MMU{
		memory:        make([]byte, 0x10000),
		cart:          NewCartridge(),
		mbc:           NewNoMBC(make([]uint8, 0x8000)),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	initRegionMap(mmu)
	return mmu
}

// NewWithCartridge creates a memory unit with cart loaded, wiring up the
// matching MBC. Only NoMBC is implemented; any other cartridge type
// returns an error rather than silently misreading the ROM.
func NewWithCartridge(cart *Cartridge) (*MMU, error) {
	if cart.mbcType != NoMBCType {
		return nil, fmt.Errorf("memory: unsupported MBC type %d for cartridge %q (only NoMBC is implemented)", cart.mbcType, cart.title)
	}

	mmu := New()
	mmu.cart = cart
	mmu.mbc = NewNoMBC(cart.data)
	return mmu, nil
}

// Tick advances any I/O that needs it: the timer, the serial port, and the
// OAM DMA hold-off window.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	if m.dmaCyclesLeft > 0 {
		m.dmaCyclesLeft -= cycles
		if m.dmaCyclesLeft < 0 {
			m.dmaCyclesLeft = 0
		}
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the IF register bit for interrupt.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	interruptFlags := m.readIO(addr.IF) // not gated by OAM DMA

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		slog.Warn("request for unknown interrupt", "value", fmt.Sprintf("0x%02X", uint8(interrupt)))
		return
	}

	m.Write(addr.IF, bit.Set(bitPos, interruptFlags))
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

// dmaActive reports whether an OAM DMA transfer is still holding the bus.
func (m *MMU) dmaActive() bool {
	return m.dmaCyclesLeft > 0
}

func (m *MMU) Read(address uint16) byte {
	if m.dmaActive() && address < 0xFF80 {
		// During OAM DMA the CPU can only see HRAM; everything else reads 0xFF.
		return 0xFF
	}

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		return m.memory[address]
	case regionIO:
		return m.readIO(address)
	default:
		slog.Warn("read from unmapped address", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.APU.ReadRegister(address)
	case address == addr.IF:
		// Upper 3 bits always read as 1; they have no backing storage.
		return m.memory[address] | 0xE0
	case address == addr.IE:
		// Only the low 5 bits are backed; the rest always read as 1.
		return m.memory[address] | 0xE0
	default:
		return m.memory[address]
	}
}

// Write is ungated during OAM DMA: only CPU reads are forced to 0xFF while
// the transfer holds the bus, per spec; writes proceed normally and simply
// race the DMA copy, as on real hardware.
func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM, regionWRAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionOAM:
		m.memory[address] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		slog.Warn("write to unmapped address", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.writeJoypad(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.APU.WriteRegister(address, value)
	case address == addr.IF:
		m.memory[address] = value | 0xE0
	case address == addr.DMA:
		m.startDMA(value)
	default:
		m.memory[address] = value
	}
}

// startDMA copies 160 bytes from value*0x100 into OAM and arms the
// dma_active hold-off window for the duration the real transfer would take.
func (m *MMU) startDMA(value uint8) {
	sourceAddr := uint16(value) << 8
	for i := range uint16(160) {
		m.memory[0xFE00+i] = m.readDMASource(sourceAddr + i)
	}
	m.memory[addr.DMA] = value
	m.dmaCyclesLeft = dmaTransferCycles
}

// readDMASource reads straight from the backing region, bypassing the
// dma_active gate (the transfer itself is exempt from its own hold-off).
func (m *MMU) readDMASource(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionEcho:
		return m.memory[address-0x2000]
	default:
		return m.memory[address]
	}
}

// updateJoypadRegister sets P1 according to the selection bits and the
// hardware button/d-pad state.
//
//   - if bit 4 is clear, bits 0-3 reflect the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 reflect A, B, Start, Select
//   - if both are clear, hardware ANDs both button sets together
//   - if neither is clear, bits 0-3 read high (no selection)
//
// 1 means released, 0 means pressed. Bits 6-7 always read as 1.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000)
	result |= p1 & 0b00110000

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}

// HandleKeyPress marks key as held and fires the joypad interrupt on the
// high-to-low transition, as real hardware does.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons := m.joypadButtons
	oldDpad := m.joypadDpad

	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Reset(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Reset(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Reset(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Reset(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Reset(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Reset(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Reset(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Reset(3, m.joypadButtons)
	}

	buttonTransitions := oldButtons &^ m.joypadButtons
	dpadTransitions := oldDpad &^ m.joypadDpad
	if buttonTransitions|dpadTransitions != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.updateJoypadRegister()
}

// HandleKeyRelease marks key as released.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Set(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Set(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Set(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Set(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Set(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Set(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Set(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Set(3, m.joypadButtons)
	}

	m.updateJoypadRegister()
}

const (
	saveStateMagic   = "DMGC"
	saveStateVersion = 1

	wramSize = 0x2000
	hramSize = 127
)

// CPUState is the narrow view of CPU architectural state a save state
// needs; it decouples memory from importing cpu directly (cpu never
// imports memory).
type CPUState struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	Mode                   uint8
	IME                    uint8
}

// SaveState serializes CPU registers, WRAM, HRAM, and the APU register
// file (which spans wave RAM) into a single flat byte stream, prefixed by
// a 4-byte magic and a 1-byte version number. Cartridge RAM restore is a
// host/MBC concern; NoMBC carries none.
func (m *MMU) SaveState(cpu CPUState) []byte {
	buf := make([]byte, 0, 5+14+wramSize+hramSize+int(addr.AudioEnd-addr.AudioStart+1))
	buf = append(buf, saveStateMagic...)
	buf = append(buf, saveStateVersion)

	buf = append(buf, cpu.A, cpu.F, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L)
	buf = binary.LittleEndian.AppendUint16(buf, cpu.SP)
	buf = binary.LittleEndian.AppendUint16(buf, cpu.PC)
	buf = append(buf, cpu.Mode, cpu.IME)
	buf = append(buf, m.Read(addr.IF), m.Read(addr.IE))

	buf = append(buf, m.memory[0xC000:0xC000+wramSize]...)
	buf = append(buf, m.memory[0xFF80:0xFF80+hramSize]...)
	for a := addr.AudioStart; a <= addr.AudioEnd; a++ {
		buf = append(buf, m.APU.ReadRegister(a))
	}

	return buf
}

// LoadState restores everything SaveState wrote, except cartridge RAM
// (cartridge RAM restore is a host/MBC concern this core's NoMBC has none
// of, per spec). Returns the parsed CPUState for the caller to hand to
// cpu.CPU.Restore, and an error if buf isn't a recognized save state.
func (m *MMU) LoadState(buf []byte) (CPUState, error) {
	var cs CPUState
	if len(buf) < 5+16+wramSize+hramSize {
		return cs, fmt.Errorf("memory: save state too short (%d bytes)", len(buf))
	}
	if string(buf[:4]) != saveStateMagic {
		return cs, fmt.Errorf("memory: bad save state magic %q", buf[:4])
	}
	if buf[4] != saveStateVersion {
		return cs, fmt.Errorf("memory: unsupported save state version %d", buf[4])
	}

	offset := 5
	cs.A, cs.F, cs.B, cs.C, cs.D, cs.E, cs.H, cs.L = buf[offset], buf[offset+1], buf[offset+2], buf[offset+3], buf[offset+4], buf[offset+5], buf[offset+6], buf[offset+7]
	offset += 8
	cs.SP = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	cs.PC = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	cs.Mode, cs.IME = buf[offset], buf[offset+1]
	offset += 2

	ifVal, ieVal := buf[offset], buf[offset+1]
	offset += 2
	m.Write(addr.IF, ifVal)
	m.Write(addr.IE, ieVal)

	copy(m.memory[0xC000:0xC000+wramSize], buf[offset:offset+wramSize])
	offset += wramSize
	copy(m.memory[0xFF80:0xFF80+hramSize], buf[offset:offset+hramSize])
	offset += hramSize

	for a := addr.AudioStart; a <= addr.AudioEnd && offset < len(buf); a++ {
		m.APU.WriteRegister(a, buf[offset])
		offset++
	}

	return cs, nil
}
