package memory

import (
	"fmt"

	"github.com/arata-dev/dmgcore/dmgcore/bit"
)

const titleLength = 11

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
)

// MBCType classifies the banking hardware named by a cartridge header's
// type byte (0x147). Only NoMBCType is implemented by this core; the rest
// are recognized so the bus can report a clear construction error instead
// of silently misreading a banked ROM as linear.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

// Cartridge holds a parsed ROM image and the header fields needed to pick
// an MBC implementation.
type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint8
	globalChecksum uint16
	mbcType        MBCType
	ramBankCount   uint8
	hasBattery     bool
	hasRTC         bool
	hasRumble      bool
}

// NewCartridge creates an empty, titleless cartridge backed by a full
// 64KiB scratch buffer: useful for driving the bus in tests without a ROM.
func NewCartridge() *Cartridge {
	return &Cartridge{data: make([]byte, 0x10000), mbcType: NoMBCType}
}

// NewCartridgeWithData parses a raw ROM image's header and classifies its
// MBC requirements. Returns an error if the image is too small to contain
// a header, matching this core's construction-time error policy.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < 0x150 {
		return nil, fmt.Errorf("memory: ROM image too small (%d bytes) to contain a header", len(data))
	}

	titleBytes := data[titleAddress : titleAddress+titleLength]
	cart := &Cartridge{
		data:           make([]byte, len(data)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: data[headerChecksumAddress],
		globalChecksum: bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1]),
		ramBankCount:   ramBankCountFromHeader(data[ramSizeAddress]),
	}
	copy(cart.data, data)
	cart.mbcType, cart.hasBattery, cart.hasRTC, cart.hasRumble = classifyMBC(data[cartridgeTypeAddress])

	return cart, nil
}

// Title returns the ROM's cleaned 11-byte title field.
func (c *Cartridge) Title() string { return c.title }

func ramBankCountFromHeader(value uint8) uint8 {
	switch value {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

func classifyMBC(cartType uint8) (kind MBCType, battery, rtc, rumble bool) {
	switch cartType {
	case 0x00:
		return NoMBCType, false, false, false
	case 0x01, 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x0F, 0x10:
		return MBC3Type, true, true, false
	case 0x11, 0x12:
		return MBC3Type, false, false, false
	case 0x13:
		return MBC3Type, true, false, false
	case 0x19, 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C, 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}
