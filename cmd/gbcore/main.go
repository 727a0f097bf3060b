package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"
	"github.com/embervale/gbcore"
	"github.com/embervale/gbcore/cpu"
	"github.com/embervale/gbcore/input"
	"github.com/embervale/gbcore/timing"
)

// keyReleaseDelay is how long a simulated button stays pressed after a
// terminal keydown event, since terminals don't report key-up events.
const keyReleaseDelay = 100 * time.Millisecond

const (
	// Game Boy screen dimensions
	width  = 160
	height = 144

	// Since terminal characters are taller than wide, we'll scale the width more
	// to maintain approximate aspect ratio
	scaleX = 2 // Each pixel becomes 2 characters wide
	scaleY = 1 // Each pixel becomes 1 character tall
)

// Characters to represent different shades of gray
// From darkest to lightest.
var shadeChars = []rune{'█', '▓', '▒', '░'}

type TerminalRenderer struct {
	screen   tcell.Screen
	emulator *gbcore.Emulator
	limiter  timing.Limiter
	poll     *input.Poll
	buttons  input.Buttons
	running  bool
}

func NewTerminalRenderer(emu *gbcore.Emulator) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:   screen,
		emulator: emu,
		limiter:  timing.NewAdaptiveLimiter(),
		poll:     input.NewPoll(emu.GetMMU()),
		running:  true,
	}, nil
}

func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	// Set up screen
	t.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	t.screen.Clear()

	// Handle input in a separate goroutine
	go t.handleInput()

	// catch SIGINT and SIGTERM
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		default:
			t.limiter.WaitForNextFrame()
			t.emulator.RunUntilFrame()
			t.render()
			t.screen.Show()
		}
	}

	return nil
}

func (t *TerminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				t.running = false
				return
			}
			if field := t.buttonFieldForKey(ev); field != nil {
				t.tapButton(field)
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// buttonFieldForKey returns a pointer to the Buttons field a key event maps
// to, or nil if the key isn't bound.
func (t *TerminalRenderer) buttonFieldForKey(ev *tcell.EventKey) *bool {
	switch ev.Key() {
	case tcell.KeyUp:
		return &t.buttons.Up
	case tcell.KeyDown:
		return &t.buttons.Down
	case tcell.KeyLeft:
		return &t.buttons.Left
	case tcell.KeyRight:
		return &t.buttons.Right
	case tcell.KeyEnter:
		return &t.buttons.Start
	case tcell.KeyTab:
		return &t.buttons.Select
	}
	switch ev.Rune() {
	case 'z', 'Z':
		return &t.buttons.A
	case 'x', 'X':
		return &t.buttons.B
	}
	return nil
}

// tapButton presses the given button field, applies it, then schedules a
// release shortly after: terminals only report keydown, never keyup, so a
// held press can't be modeled and every bound key is a brief tap instead.
func (t *TerminalRenderer) tapButton(field *bool) {
	*field = true
	t.poll.Update(t.buttons)

	time.AfterFunc(keyReleaseDelay, func() {
		*field = false
		t.poll.Update(t.buttons)
	})
}

func (t *TerminalRenderer) render() {
	fb := t.emulator.GetCurrentFrame()
	frame := fb.ToSlice()

	// Clear screen with background color
	t.screen.Clear()

	// Render each pixel
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Get pixel value (assuming it's a 32-bit color where higher values = lighter)
			pixel := frame[y*width+x]
			// Convert to shade index (4 shades, so divide by 64 to get 0-3)
			shade := 3 - (pixel>>24)/64 // Invert so higher values = darker
			if shade > 3 {
				shade = 3
			}

			// Draw scaled pixel
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			char := shadeChars[shade]

			// Draw the character repeated scaleX times
			screenX := x * scaleX
			screenY := y * scaleY
			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(screenX+sx, screenY, char, nil, style)
			}
		}
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "gbcore"
	app.Description = "A cycle-approximate Game Boy emulator core"
	app.Usage = "gbcore [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	emu, err := gbcore.NewWithFile(romPath)
	if err != nil {
		return err
	}

	defer dumpOnPanic(emu)

	renderer, err := NewTerminalRenderer(emu)
	if err != nil {
		return err
	}

	return renderer.Run()
}

// dumpOnPanic recovers a fatal panic from the run loop, logs the CPU's
// recent and coarsely-sampled execution history so the crash site can be
// reconstructed, and exits. It re-panics nowhere: a corrupted emulator is
// not worth continuing, so the process terminates after logging.
func dumpOnPanic(emu *gbcore.Emulator) {
	r := recover()
	if r == nil {
		return
	}

	cpu := emu.GetCPU()
	recent := cpu.RecentHistory()
	coarse := cpu.CoarseHistory()

	slog.Error("fatal emulator panic",
		"panic", r,
		"pc", fmt.Sprintf("0x%04X", cpu.GetPC()),
		"sp", fmt.Sprintf("0x%04X", cpu.GetSP()),
		"recent_history", formatHistory(recent),
		"coarse_history", formatHistory(coarse),
	)

	os.Exit(1)
}

func formatHistory(records []cpu.InstructionRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%04X:%04X", r.PC, r.Opcode)
	}
	return b.String()
}
