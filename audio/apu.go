package audio

import "github.com/embervale/gbcore/bit"

// APU stores the Game Boy's sound registers (NR10-NR52 plus wave RAM) and
// exposes their bit fields as channel packets. It does not synthesize or
// mix any waveform; turning a register snapshot into audible samples is an
// external concern.
type APU struct {
	regs    [0xFF26 - 0xFF10 + 1]byte
	waveRAM [waveRAMSize]byte
}

// New creates an APU with all registers zeroed, matching power-on state.
func New() *APU {
	return &APU{}
}

// ReadRegister reads a raw NRxx register or wave RAM byte.
func (a *APU) ReadRegister(address uint16) byte {
	switch {
	case address >= 0xFF30 && address <= 0xFF3F:
		return a.waveRAM[address-0xFF30]
	case address >= 0xFF10 && address <= 0xFF26:
		return a.regs[address-0xFF10]
	default:
		return 0xFF
	}
}

// WriteRegister writes a raw NRxx register or wave RAM byte. Writes to any
// register while NR52's master enable bit (bit 7) is clear are ignored,
// except to NR52 itself, matching real hardware's power-off register lock.
func (a *APU) WriteRegister(address uint16, value byte) {
	if address >= 0xFF30 && address <= 0xFF3F {
		a.waveRAM[address-0xFF30] = value
		return
	}
	if address < 0xFF10 || address > 0xFF26 {
		return
	}

	if address == 0xFF26 {
		// Only the master-enable bit is writable; channel status bits 0-3
		// are read-only, reported live by Snapshot instead.
		a.regs[address-0xFF10] = value & 0x80
		if value&0x80 == 0 {
			for i := range a.regs {
				a.regs[i] = 0
			}
		}
		return
	}

	if !a.enabled() {
		return
	}

	a.regs[address-0xFF10] = value
}

func (a *APU) enabled() bool {
	return bit.IsSet(7, a.regs[0xFF26-0xFF10])
}

// Channel identifies one of the four sound-generating channels.
type Channel int

const (
	Channel1 Channel = iota
	Channel2
	Channel3
	Channel4
)

// Packet is the external-facing snapshot of a channel's register state: the
// minimum a host audio backend needs to render one channel, without this
// module performing any synthesis itself.
type Packet struct {
	On                  bool
	PitchHz             float64
	Volume              uint8
	EnvelopeSweepPace   uint8
	EnvelopeDirectionUp bool
	Duty                uint8
	LengthEnable        bool
	LengthCounter       uint8
	Restart             bool
}

// Snapshot reads the current register state for the given channel and
// returns it decoded into a Packet.
func (a *APU) Snapshot(ch Channel) Packet {
	switch ch {
	case Channel1:
		return a.snapshotSquare(0xFF11, 0xFF12, 0xFF13, 0xFF14)
	case Channel2:
		return a.snapshotSquare(0xFF16, 0xFF17, 0xFF18, 0xFF19)
	case Channel3:
		return a.snapshotWave()
	case Channel4:
		return a.snapshotNoise()
	default:
		return Packet{}
	}
}

func (a *APU) snapshotSquare(nrLenDuty, nrEnvelope, nrFreqLo, nrFreqHi uint16) Packet {
	lenDuty := a.ReadRegister(nrLenDuty)
	envelope := a.ReadRegister(nrEnvelope)
	freqLo := a.ReadRegister(nrFreqLo)
	freqHi := a.ReadRegister(nrFreqHi)

	period := uint16(freqLo) | (uint16(freqHi&0x07) << 8)
	hz := 131072.0 / float64(2048-period)

	return Packet{
		On:                  a.enabled() && a.dacEnabled(envelope),
		PitchHz:             hz,
		Volume:              envelope >> 4,
		EnvelopeSweepPace:   envelope & 0x07,
		EnvelopeDirectionUp: bit.IsSet(3, envelope),
		Duty:                lenDuty >> 6,
		LengthEnable:        bit.IsSet(6, freqHi),
		LengthCounter:       lenDuty & 0x3F,
		Restart:             bit.IsSet(7, freqHi),
	}
}

func (a *APU) snapshotWave() Packet {
	dacEnable := a.ReadRegister(0xFF1A)
	length := a.ReadRegister(0xFF1B)
	level := a.ReadRegister(0xFF1C)
	freqLo := a.ReadRegister(0xFF1D)
	freqHi := a.ReadRegister(0xFF1E)

	period := uint16(freqLo) | (uint16(freqHi&0x07) << 8)
	hz := 65536.0 / float64(2048-period)

	return Packet{
		On:            bit.IsSet(7, dacEnable),
		PitchHz:       hz,
		Volume:        (level >> 5) & 0x03,
		LengthEnable:  bit.IsSet(6, freqHi),
		LengthCounter: length,
		Restart:       bit.IsSet(7, freqHi),
	}
}

func (a *APU) snapshotNoise() Packet {
	length := a.ReadRegister(0xFF20)
	envelope := a.ReadRegister(0xFF21)
	control := a.ReadRegister(0xFF23)

	return Packet{
		On:                  a.enabled() && a.dacEnabled(envelope),
		Volume:              envelope >> 4,
		EnvelopeSweepPace:   envelope & 0x07,
		EnvelopeDirectionUp: bit.IsSet(3, envelope),
		LengthEnable:        bit.IsSet(6, control),
		LengthCounter:       length & 0x3F,
		Restart:             bit.IsSet(7, control),
	}
}

// dacEnabled mirrors the real hardware quirk where a channel's DAC (and so
// its audibility) is off whenever the top 5 bits of its envelope register
// are all zero, independent of the channel's own enable flag.
func (a *APU) dacEnabled(envelopeReg byte) bool {
	return envelopeReg&0xF8 != 0
}

// WaveRAM returns a copy of the 32-nibble wave pattern table for channel 3.
func (a *APU) WaveRAM() [waveRAMSize]byte {
	return a.waveRAM
}

// Tick exists so the APU fits the same Tick(cycles) shape as the other
// ticked components; this module has no synthesis clock to advance.
func (a *APU) Tick(cycles int) {}
