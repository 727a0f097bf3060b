package gbcore

import (
	"fmt"
	"io/ioutil"
	"log/slog"
	"sync"

	"github.com/embervale/gbcore/cpu"
	"github.com/embervale/gbcore/memory"
	"github.com/embervale/gbcore/timing"
	"github.com/embervale/gbcore/video"
)

const cyclesPerFrame = timing.CyclesPerFrame

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// Emulator represents the root struct and entry point for running the emulation
type Emulator struct {
	bus *Bus

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	// Completion detection, used by test harnesses driving ROMs that have no
	// defined end: a test ROM is considered complete once its PC has settled
	// on the same address at the start of minLoopCount consecutive frames
	// (the park loop most test ROMs spin in once they're done), or once
	// maxFrames have elapsed, whichever comes first.
	completionMaxFrames    uint64
	completionMinLoopCount int
	completionLoopPC       uint16
	completionLoopCount    int
}

func (e *Emulator) init(mem *memory.MMU) {
	e.bus = NewBus(mem)

	mem.SetTimerSeed(0xABCC)
}

// New creates a new emulator instance
func New() *Emulator {
	e := &Emulator{}
	e.init(memory.NewWithCartridge(memory.NewCartridge()))

	return e
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string) (*Emulator, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	e := &Emulator{}
	e.init(memory.NewWithCartridge(memory.NewCartridgeWithData(data)))

	return e, nil
}

func (e *Emulator) RunUntilFrame() {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		return
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			// Execute one CPU instruction
			oldPC := e.bus.CPU.GetPC()
			e.bus.TickInstruction()
			e.instructionCount++

			// Log the executed instruction
			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.bus.CPU.GetPC()))

			// Pause after execution
			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		return
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			// Execute one full frame
			total := 0
			for {
				total += e.bus.TickInstruction()
				e.instructionCount++

				if total >= cyclesPerFrame {
					break
				}
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
		}
		return
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for {
		total += e.bus.TickInstruction()
		e.instructionCount++

		if total >= cyclesPerFrame {
			e.frameCount++
			// Log every 60 frames (once per second at 60 FPS) only when running
			if e.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.bus.CPU.GetPC()))
			}
			return
		}
	}
}

// ConfigureCompletionDetection sets the bounds RunUntilComplete uses to
// decide a headless run is done: it stops after maxFrames regardless, or
// earlier once the CPU has parked on the same PC for minLoopCount
// consecutive frames. A minLoopCount of 0 disables loop detection and only
// maxFrames is honored.
func (e *Emulator) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.completionMaxFrames = maxFrames
	e.completionMinLoopCount = minLoopCount
	e.completionLoopPC = 0
	e.completionLoopCount = 0
}

// RunUntilComplete drives the emulator frame by frame until the configured
// completion condition is met. Intended for headless test-ROM harnesses
// that have no way to observe a ROM's own pass/fail signal.
func (e *Emulator) RunUntilComplete() {
	for e.frameCount < e.completionMaxFrames {
		pcBefore := e.bus.CPU.GetPC()

		e.RunUntilFrame()

		if e.completionMinLoopCount > 0 {
			if pcBefore == e.completionLoopPC {
				e.completionLoopCount++
				if e.completionLoopCount >= e.completionMinLoopCount {
					return
				}
			} else {
				e.completionLoopCount = 0
			}
			e.completionLoopPC = pcBefore
		}
	}
}

func (e *Emulator) GetCurrentFrame() *video.FrameBuffer {
	return e.bus.GPU.GetFrameBuffer()
}

func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.bus.MMU.HandleKeyPress(key)
}

func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.bus.MMU.HandleKeyRelease(key)
}

func (e *Emulator) GetCPU() *cpu.CPU {
	return e.bus.CPU
}

// Debugger control methods
func (e *Emulator) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *Emulator) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *Emulator) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("Emulator paused")
}

func (e *Emulator) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("Emulator resumed")
}

func (e *Emulator) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *Emulator) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *Emulator) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *Emulator) GetMMU() *memory.MMU {
	return e.bus.MMU
}

