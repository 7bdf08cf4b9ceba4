// Package machine implements the Machine Driver: the wall-clock-paced
// loop that dispatches 8080 instructions at the cabinet's 2 MHz rate,
// injects the two per-frame interrupts, and intercepts the IN/OUT
// opcodes the CPU Core deliberately leaves unimplemented.
package machine

import (
	"log/slog"
	"time"

	"github.com/jhollman/invaders-emu/internal/cabinet"
	"github.com/jhollman/invaders-emu/internal/cpu"
	"github.com/jhollman/invaders-emu/internal/memory"
	"github.com/jhollman/invaders-emu/internal/video"
)

const (
	inOpcode  = 0xDB
	outOpcode = 0xD3

	// interruptPeriodMicros is half a 60 Hz frame: the cabinet fires
	// RST 1 at mid-frame and RST 2 at end-of-frame, 8 333 us apart.
	interruptPeriodMicros = 8333
	// firstInterruptDelayMicros is the full-frame delay before the
	// very first interrupt, matching a 60 Hz frame period exactly
	// (not simply double interruptPeriodMicros, which would drift by
	// a microsecond).
	firstInterruptDelayMicros = 16667
	clockHz                   = 2 // cycles per microsecond (2 MHz clock)
)

// Clock returns the current time in microseconds from some
// monotonic, arbitrary-epoch reference. A Machine built by New uses a
// clock rooted at the moment New was called; tests supply their own to
// drive the loop deterministically.
type Clock func() int64

func monotonicClock() Clock {
	start := time.Now()
	return func() int64 {
		return time.Since(start).Microseconds()
	}
}

// Machine owns the CPU, memory, and cabinet port state and drives
// them forward in slices. There is exactly one of these per running
// emulator; nothing here is safe to share across goroutines.
type Machine struct {
	CPU   *cpu.CPU
	Mem   *memory.Memory
	Ports *cabinet.Ports
	Sink  video.Sink
	Log   *slog.Logger

	now Clock

	started        bool
	lastTick       int64
	nextInterrupt  int64
	whichInterrupt int
}

// New wires a CPU around mem and returns a Machine ready to run. sink
// receives one frame every time the end-of-frame interrupt fires; log
// defaults to slog.Default() if nil.
func New(mem *memory.Memory, ports *cabinet.Ports, sink video.Sink, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		CPU:   cpu.New(mem),
		Mem:   mem,
		Ports: ports,
		Sink:  sink,
		Log:   log,
		now:   monotonicClock(),
	}
}

// WithClock overrides the wall-clock source; used by tests to drive
// RunSlice deterministically instead of racing real time.
func (m *Machine) WithClock(c Clock) *Machine {
	m.now = c
	return m
}

// RunSlice executes one slice of emulation: it injects an interrupt
// if one is due, then runs instructions until the cycle budget
// implied by elapsed wall-clock time is exhausted.
func (m *Machine) RunSlice() {
	now := m.now()

	if !m.started {
		m.lastTick = now
		m.nextInterrupt = now + firstInterruptDelayMicros
		m.whichInterrupt = 1
		m.started = true
	}

	if m.CPU.IFF && now >= m.nextInterrupt {
		m.CPU.Interrupt(m.whichInterrupt)
		if m.whichInterrupt == 2 {
			video.Blit(m.Mem, m.Sink)
		}
		if m.whichInterrupt == 1 {
			m.whichInterrupt = 2
		} else {
			m.whichInterrupt = 1
		}
		m.nextInterrupt = now + interruptPeriodMicros
	}

	elapsed := now - m.lastTick
	if elapsed < 0 {
		// The clock moved backward; charge nothing rather than run a
		// negative or huge budget.
		elapsed = 0
	}
	budget := clockHz * elapsed

	var spent int64
	for spent < budget {
		spent += int64(m.step())
	}

	m.lastTick = now
}

// step executes one instruction, intercepting IN/OUT before handing
// off to the CPU Core, and returns the cycles charged.
func (m *Machine) step() int {
	opcode := m.Mem.Read(m.CPU.PC)
	switch opcode {
	case inOpcode:
		port := m.Mem.Read(m.CPU.PC + 1)
		m.CPU.A = m.Ports.In(port)
		m.CPU.PC += 2
		return 10
	case outOpcode:
		port := m.Mem.Read(m.CPU.PC + 1)
		m.Ports.Out(port, m.CPU.A)
		m.CPU.PC += 2
		return 10
	default:
		return m.CPU.Step()
	}
}
