// Package input models the external-facing button state of the handheld
// and the seam that feeds it into the emulated joypad register.
package input

import "github.com/embervale/gbcore/memory"

// Buttons is a snapshot of every physical button's pressed/released state.
type Buttons struct {
	Start  bool
	Select bool
	A      bool
	B      bool
	Up     bool
	Down   bool
	Left   bool
	Right  bool
}

// Poll diffs successive Buttons snapshots and forwards the transitions to an
// MMU as key press/release events, so a host need only supply its current
// button state each frame without tracking edges itself.
type Poll struct {
	mmu  *memory.MMU
	prev Buttons
}

// NewPoll creates a Poll adapter wired to the given MMU. The MMU is assumed
// to start with every button released.
func NewPoll(mmu *memory.MMU) *Poll {
	return &Poll{mmu: mmu}
}

// Update applies the given button snapshot, pressing/releasing only the keys
// whose state changed since the previous call.
func (p *Poll) Update(current Buttons) {
	p.diff(memory.JoypadStart, p.prev.Start, current.Start)
	p.diff(memory.JoypadSelect, p.prev.Select, current.Select)
	p.diff(memory.JoypadA, p.prev.A, current.A)
	p.diff(memory.JoypadB, p.prev.B, current.B)
	p.diff(memory.JoypadUp, p.prev.Up, current.Up)
	p.diff(memory.JoypadDown, p.prev.Down, current.Down)
	p.diff(memory.JoypadLeft, p.prev.Left, current.Left)
	p.diff(memory.JoypadRight, p.prev.Right, current.Right)

	p.prev = current
}

func (p *Poll) diff(key memory.JoypadKey, was, is bool) {
	if was == is {
		return
	}
	if is {
		p.mmu.HandleKeyPress(key)
	} else {
		p.mmu.HandleKeyRelease(key)
	}
}
