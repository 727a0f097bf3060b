package gbcore

import (
	"github.com/embervale/gbcore/addr"
	"github.com/embervale/gbcore/cpu"
	"github.com/embervale/gbcore/memory"
	"github.com/embervale/gbcore/video"
)

// BusInterface defines the interface for component communication
type BusInterface interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	RequestInterrupt(interrupt addr.Interrupt)
}

// Bus wires the CPU, memory and PPU together and drives them in lockstep,
// one CPU instruction (or interrupt dispatch) at a time.
type Bus struct {
	CPU *cpu.CPU
	MMU *memory.MMU
	GPU *video.GPU
}

// NewBus wires a Bus around the given memory, creating a CPU and PPU bound to it.
func NewBus(mem *memory.MMU) *Bus {
	return &Bus{
		CPU: cpu.New(mem),
		MMU: mem,
		GPU: video.NewGpu(mem),
	}
}

func (b *Bus) Read(address uint16) byte {
	return b.MMU.Read(address)
}

func (b *Bus) Write(address uint16, value byte) {
	b.MMU.Write(address, value)
}

func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	b.MMU.RequestInterrupt(interrupt)
}

// TickInstruction executes one CPU step (an instruction or interrupt
// dispatch) and advances the timer/serial/audio and PPU by the same
// number of cycles, keeping every component in lockstep.
func (b *Bus) TickInstruction() int {
	cycles := b.CPU.Tick()

	b.MMU.Tick(cycles)
	b.GPU.Tick(cycles)

	return cycles
}
