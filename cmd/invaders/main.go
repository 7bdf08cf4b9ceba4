// Command invaders runs the Space Invaders cabinet core: it loads the
// four stock ROM segments, opens a window (unless --headless), and
// drives the Machine Driver at real-time speed until the window is
// closed.
//
// Generalized from n-ulricksen-nes's main.go + nes/bus.go Run loop:
// that loop paces itself with time.Sleep against a fixed frame
// interval and polls the controller once per frame; this one instead
// calls RunSlice() every tick (the Machine Driver does its own
// wall-clock accounting internally, so the outer loop only needs to
// avoid spinning) and polls input after every slice.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/faiface/pixel/pixelgl"
	"github.com/spf13/cobra"

	"github.com/jhollman/invaders-emu/internal/cabinet"
	"github.com/jhollman/invaders-emu/internal/display"
	"github.com/jhollman/invaders-emu/internal/input"
	"github.com/jhollman/invaders-emu/internal/machine"
	"github.com/jhollman/invaders-emu/internal/memory"
	"github.com/jhollman/invaders-emu/internal/romload"
	"github.com/jhollman/invaders-emu/internal/video"
)

var (
	flagRomDir   string
	flagScale    int
	flagDebug    bool
	flagHeadless bool
)

func main() {
	root := &cobra.Command{
		Use:   "invaders",
		Short: "Space Invaders cabinet emulator core",
		Run:   run,
	}

	root.Flags().StringVar(&flagRomDir, "rom-dir", "invaders/", "directory containing invaders.h/g/f/e")
	root.Flags().IntVar(&flagScale, "scale", 3, "window scale factor")
	root.Flags().BoolVar(&flagDebug, "debug", false, "raise log level and draw a CPU/FPS overlay")
	root.Flags().BoolVar(&flagHeadless, "headless", false, "run without opening a window")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	mem := memory.New()
	log.Info("loading ROM", "dir", flagRomDir)
	romload.Load(flagRomDir, mem)

	ports := cabinet.NewPorts()

	if flagHeadless {
		runHeadless(mem, ports, log)
		return
	}

	pixelgl.Run(func() {
		runWindowed(mem, ports, log)
	})
}

// noopSink discards frames; used in --headless mode so the Machine
// Driver's interrupt timing and video.Blit path still run and can be
// exercised (e.g. by an operator validating a ROM set with no display
// attached) without a pixelgl context.
type noopSink struct{}

func (noopSink) Blit(video.Frame) {}

func runHeadless(mem *memory.Memory, ports *cabinet.Ports, log *slog.Logger) {
	m := machine.New(mem, ports, noopSink{}, log)
	log.Info("running headless")
	for {
		m.RunSlice()
		time.Sleep(time.Millisecond)
	}
}

func runWindowed(mem *memory.Memory, ports *cabinet.Ports, log *slog.Logger) {
	disp := display.New(float64(flagScale), flagDebug)
	m := machine.New(mem, ports, disp, log)
	in := input.New(disp.Window())

	for !disp.Closed() {
		m.RunSlice()
		in.Poll(ports)

		if flagDebug {
			disp.DrawDebugRegisters(debugSummary(m))
		}
	}
}

func debugSummary(m *machine.Machine) string {
	c := m.CPU
	return fmt.Sprintf("PC=%04X A=%02X BC=%04X DE=%04X HL=%04X SP=%04X",
		c.PC, c.A, c.BC(), c.DE(), c.HL(), c.SP)
}
