package memory

import "github.com/embervale/gbcore/bit"

const titleLength = 11

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
)

// MBCType identifies which bank controller variant a cartridge header declares.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

// ramSizeCodeToBankCount maps the 0x149 header byte to a count of 8KB RAM banks.
var ramSizeCodeToBankCount = map[uint8]uint8{
	0x00: 0,
	0x01: 0, // unofficial 2KB, treated as no banked RAM
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

// Cartridge holds the raw ROM image plus the header fields the memory bus
// needs to pick and size a bank controller.
type Cartridge struct {
	data []byte

	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
}

// NewCartridge creates an empty, NoMBC-backed cartridge, useful for running
// the emulator without a ROM loaded.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		title:   "(No Cartridge)",
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData initializes a new Cartridge from a ROM image, decoding
// its header into the fields NewWithCartridge needs to build an MBC.
func NewCartridgeWithData(data []byte) *Cartridge {
	titleBytes := data[titleAddress : titleAddress+titleLength]

	cart := &Cartridge{
		data:           make([]byte, len(data)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: bit.Combine(data[headerChecksumAddress], data[headerChecksumAddress+1]),
		globalChecksum: bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1]),
		version:        data[versionNumberAddress],
		romSize:        data[romSizeAddress],
		ramSize:        data[ramSizeAddress],
	}
	copy(cart.data, data)

	cart.mbcType, cart.hasBattery, cart.hasRTC, cart.hasRumble = decodeCartridgeType(data[cartridgeTypeAddress])
	cart.ramBankCount = ramSizeCodeToBankCount[cart.ramSize]

	return cart
}

// decodeCartridgeType maps the 0x147 header byte to an MBC variant plus the
// feature flags (battery, RTC, rumble) that variant may carry.
func decodeCartridgeType(code uint8) (mbcType MBCType, hasBattery, hasRTC, hasRumble bool) {
	switch code {
	case 0x00:
		return NoMBCType, false, false, false
	case 0x01:
		return MBC1Type, false, false, false
	case 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x0F:
		return MBC3Type, true, true, false
	case 0x10:
		return MBC3Type, true, true, false
	case 0x11:
		return MBC3Type, false, false, false
	case 0x12:
		return MBC3Type, false, false, false
	case 0x13:
		return MBC3Type, true, false, false
	case 0x19:
		return MBC5Type, false, false, false
	case 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C:
		return MBC5Type, false, false, true
	case 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}

// ReadByte reads a byte at the specified address. Does not check bounds, so the
// caller must make sure the address is valid for the cartridge.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}

// Title returns the cleaned-up title stored in the ROM header.
func (c *Cartridge) Title() string {
	return c.title
}
