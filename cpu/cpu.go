package cpu

import (
	"github.com/embervale/gbcore/addr"
	"github.com/embervale/gbcore/bit"
	"github.com/embervale/gbcore/memory"
)

// Flag represents a single bit of the F register.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

const recentHistorySize = 128
const coarseHistorySize = 128
const coarseHistoryStride = 64

// InstructionRecord is a single entry of the CPU's execution history, kept
// around so a fatal crash can be reported with a trail of what led to it.
type InstructionRecord struct {
	PC     uint16
	Opcode uint16
}

// CPU models the Sharp LR35902 core: its registers, interrupt and halt
// state, and the memory bus it fetches from and writes to.
type CPU struct {
	a, b, c, d, e, h, l uint8
	f                   uint8
	sp, pc              uint16

	memory *memory.MMU

	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool
	eiArmed           bool

	halted   bool
	haltBug  bool
	stopped  bool

	cycles uint64

	instructionSeq uint64

	recentHistory     [recentHistorySize]InstructionRecord
	recentHistoryHead int
	recentHistoryLen  int

	coarseHistory     [coarseHistorySize]InstructionRecord
	coarseHistoryHead int
	coarseHistoryLen  int
}

// New creates a CPU wired to the given memory bus, with registers in their
// post-boot-ROM state.
func New(mmu *memory.MMU) *CPU {
	return &CPU{
		memory: mmu,
		pc:     0x100,
		sp:     0xFFFE,
	}
}

// GetPC returns the current program counter, mainly for debugging/tracing.
func (c *CPU) GetPC() uint16 {
	return c.pc
}

// GetSP returns the current stack pointer.
func (c *CPU) GetSP() uint16 {
	return c.sp
}

// RecentHistory returns the most recently executed instructions, oldest
// first. Up to recentHistorySize entries are kept.
func (c *CPU) RecentHistory() []InstructionRecord {
	return historySnapshot(c.recentHistory[:], c.recentHistoryHead, c.recentHistoryLen)
}

// CoarseHistory returns a coarse, widely spaced sample of past instructions
// (one in every coarseHistoryStride), useful for seeing how execution got
// to the current state well before the recent-history window.
func (c *CPU) CoarseHistory() []InstructionRecord {
	return historySnapshot(c.coarseHistory[:], c.coarseHistoryHead, c.coarseHistoryLen)
}

func historySnapshot(ring []InstructionRecord, head, length int) []InstructionRecord {
	size := len(ring)
	out := make([]InstructionRecord, length)
	start := (head - length + size) % size
	for i := 0; i < length; i++ {
		out[i] = ring[(start+i)%size]
	}
	return out
}

func (c *CPU) recordHistory(pc uint16, opcode uint16) {
	rec := InstructionRecord{PC: pc, Opcode: opcode}

	c.recentHistory[c.recentHistoryHead] = rec
	c.recentHistoryHead = (c.recentHistoryHead + 1) % recentHistorySize
	if c.recentHistoryLen < recentHistorySize {
		c.recentHistoryLen++
	}

	if c.instructionSeq%coarseHistoryStride == 0 {
		c.coarseHistory[c.coarseHistoryHead] = rec
		c.coarseHistoryHead = (c.coarseHistoryHead + 1) % coarseHistorySize
		if c.coarseHistoryLen < coarseHistorySize {
			c.coarseHistoryLen++
		}
	}

	c.instructionSeq++
}

// flag helpers

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// register pair accessors

func (c *CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// immediate fetch helpers; these consume bytes from memory and advance PC.

func (c *CPU) readImmediate() uint8 {
	value := c.memory.Read(c.pc)
	c.pc++
	return value
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

// handleInterrupts checks the IE/IF registers for a pending, enabled
// interrupt. It returns true whenever any requested interrupt is also
// enabled in IE, regardless of the master IME flag - this is what wakes the
// CPU from HALT even while interrupts are globally disabled. Dispatch
// itself (clearing IF, pushing PC, jumping to the vector, clearing IME) only
// happens when IME is set.
func (c *CPU) handleInterrupts() bool {
	ifReg := c.memory.Read(addr.IF)
	ieReg := c.memory.Read(addr.IE)
	pending := ifReg & ieReg & 0x1F

	if pending == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	for i := uint8(0); i < 5; i++ {
		mask := uint8(1) << i
		if pending&mask == 0 {
			continue
		}

		c.memory.Write(addr.IF, ifReg&^mask)
		c.interruptsEnabled = false
		c.pushStack(c.pc)
		c.pc = interruptVectors[i]
		c.cycles += 16

		break
	}

	return true
}

var interruptVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// Tick executes a single CPU step (an interrupt dispatch, a halted no-op, or
// one instruction) and returns the number of cycles it took.
func (c *CPU) Tick() int {
	if c.eiArmed {
		c.interruptsEnabled = true
		c.eiArmed = false
	}
	if c.eiPending {
		c.eiPending = false
		c.eiArmed = true
	}

	imeBefore := c.interruptsEnabled
	interruptPending := c.handleInterrupts()

	if interruptPending && c.halted {
		c.halted = false
		if !imeBefore {
			c.haltBug = true
		}
	}

	if imeBefore && interruptPending {
		return 16
	}

	if c.halted {
		c.cycles += 4
		return 4
	}

	startPC := c.pc
	opcodeFn := Decode(c)

	if c.haltBug {
		c.haltBug = false
	} else if c.currentOpcode&0xCB00 == 0xCB00 {
		c.pc += 2
	} else {
		c.pc++
	}

	cycles := opcodeFn(c)
	c.cycles += uint64(cycles)

	c.recordHistory(startPC, c.currentOpcode)

	return cycles
}
