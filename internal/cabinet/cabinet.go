// Package cabinet implements the Space Invaders cabinet's input and
// output ports, including the hardware bit-shift register the stock
// ROM uses to accelerate sprite blits the 8080 has no instruction
// for.
package cabinet

// DipSwitches models the cocktail-cabinet option switches exposed on
// input port 2 alongside the player-2 buttons. The bit positions
// here are the standard Midway layout; spec.md's distillation only
// says "dip switches elsewhere" on port 2, so these fill in the gap
// without touching any port the core spec assigns meaning to.
type DipSwitches struct {
	Lives       byte // 0=3, 1=4, 2=5, 3=6 (bits 0-1)
	BonusAt1000 bool // false selects the 1500-point default
	CoinInfo    bool // show coin info on the demo screen
}

// DefaultDipSwitches matches the factory-shipped cabinet: 3 lives,
// bonus life at 1500 points, coin info shown on the demo screen.
func DefaultDipSwitches() DipSwitches {
	return DipSwitches{Lives: 0, BonusAt1000: false, CoinInfo: true}
}

func (d DipSwitches) pack() byte {
	var b byte
	b |= d.Lives & 0x03
	if d.BonusAt1000 {
		b |= 1 << 3
	}
	if d.CoinInfo {
		b |= 1 << 7
	}
	return b
}

// Ports holds the cabinet's button/switch state and the shift
// register. Port0, Port1, and Port2Buttons are written by the Input
// Provider each time it samples the keyboard/controller; everything
// else is owned by the cabinet itself.
type Ports struct {
	// Port0 and Port1 carry the live button state the Input Provider
	// writes before each frame. Port0 defaults to 0x01 per spec.md
	// §4.3 ("the hardware pulls one bit high"); bit 3 of Port1 is
	// always 1 per spec.md §6: NewPorts sets it, and the Input
	// Provider keeps it set in every byte it writes. In returns Port1
	// as stored.
	Port0 byte
	Port1 byte

	// Port2Buttons carries the player-2 shoot/left/right bits (bits
	// 4-6 of port 2). Kept separate from the dip-switch/tilt bits In
	// computes so the Input Provider never has to know the dip-switch
	// layout or disturb it.
	Port2Buttons byte

	// Tilted models the cabinet's tilt switch (port 2 bit 2). It
	// defaults to false; a future Input Provider can set it without
	// the Cabinet I/O Model or CPU Core needing to know what tilt
	// means to the game.
	Tilted bool

	Dip DipSwitches

	shift0      byte
	shift1      byte
	shiftOffset byte
}

// NewPorts returns a Ports value with the idle-state defaults the
// real cabinet presents before any input or shift activity: port 0's
// pulled-high bit, port 1's always-1 bit 3, factory dip switches.
func NewPorts() *Ports {
	return &Ports{
		Port0: 0x01,
		Port1: 0x08,
		Dip:   DefaultDipSwitches(),
	}
}

// SetPort0, SetPort1, and SetPort2Buttons let an Input Provider push
// sampled button state in without needing to know about the
// dip-switch/tilt/shift-register fields it shares port 2 with.
func (p *Ports) SetPort0(v byte)        { p.Port0 = v }
func (p *Ports) SetPort1(v byte)        { p.Port1 = v }
func (p *Ports) SetPort2Buttons(v byte) { p.Port2Buttons = v }

// In handles an IN instruction for the given port, returning the
// byte the accumulator should receive.
func (p *Ports) In(port byte) byte {
	switch port {
	case 0:
		return p.Port0
	case 1:
		return p.Port1
	case 2:
		b := p.Dip.pack() | (p.Port2Buttons & 0x70)
		if p.Tilted {
			b |= 1 << 2
		}
		return b
	case 3:
		wide := uint16(p.shift1)<<8 | uint16(p.shift0)
		return byte(wide >> (8 - p.shiftOffset))
	default:
		return 0
	}
}

// Out handles an OUT instruction for the given port and value.
func (p *Ports) Out(port byte, val byte) {
	switch port {
	case 2:
		p.shiftOffset = val & 0x07
	case 3:
		// sound trigger bits; no audio sink wired into the core.
	case 4:
		p.shift0 = p.shift1
		p.shift1 = val
	case 5:
		// sound trigger bits; no audio sink wired into the core.
	case 6:
		// watchdog; discarded.
	}
}
