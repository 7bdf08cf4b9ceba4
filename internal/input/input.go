// Package input implements the cabinet's Input Provider: it polls a
// pixelgl window's keyboard state and writes the corresponding bits
// into the Cabinet I/O Model's input ports. Generalized from
// n-ulricksen-nes/nes/controller.go, which tracks a fixed NES button
// set with edge-triggered (JustPressed/JustReleased) state; the
// cabinet's buttons are level-triggered instead — a held fire key
// should read as held on every IN instruction, not just once — so
// this polls pixelgl.Window.Pressed directly each frame.
package input

import "github.com/faiface/pixel/pixelgl"

// Bindings maps cabinet buttons to keys. The zero value is unusable;
// use DefaultBindings.
type Bindings struct {
	Coin      pixelgl.Button
	OnePStart pixelgl.Button
	TwoPStart pixelgl.Button

	OnePShoot pixelgl.Button
	OnePLeft  pixelgl.Button
	OnePRight pixelgl.Button

	TwoPShoot pixelgl.Button
	TwoPLeft  pixelgl.Button
	TwoPRight pixelgl.Button
}

// DefaultBindings matches the layout most MAME-descended Space
// Invaders configs use.
func DefaultBindings() Bindings {
	return Bindings{
		Coin:      pixelgl.Key5,
		OnePStart: pixelgl.Key1,
		TwoPStart: pixelgl.Key2,
		OnePShoot: pixelgl.KeySpace,
		OnePLeft:  pixelgl.KeyLeft,
		OnePRight: pixelgl.KeyRight,
		TwoPShoot: pixelgl.KeyRightControl,
		TwoPLeft:  pixelgl.KeyComma,
		TwoPRight: pixelgl.KeyPeriod,
	}
}

// Ports is the subset of cabinet.Ports this package writes. Declared
// here instead of importing internal/cabinet directly so the Input
// Provider stays a small, independently testable adapter — it only
// needs to set three bytes, not the whole cabinet model.
type Ports interface {
	SetPort0(v byte)
	SetPort1(v byte)
	SetPort2Buttons(v byte)
}

// Provider polls a pixelgl window and writes cabinet port bits.
type Provider struct {
	Window   *pixelgl.Window
	Bindings Bindings
}

// New returns a Provider bound to win using the default key bindings.
func New(win *pixelgl.Window) *Provider {
	return &Provider{Window: win, Bindings: DefaultBindings()}
}

// Poll samples the current keyboard state and writes it to ports.
// Call once per rendered frame; the cabinet samples ports on every IN
// instruction in between, so finer polling has no effect spec.md's
// ordering guarantees require.
func (p *Provider) Poll(ports Ports) {
	port0 := byte(0x01) // the hardware's permanently pulled-high bit
	ports.SetPort0(port0)

	port1 := byte(0x08) // bit 3 always reads 1
	if p.Window.Pressed(p.Bindings.Coin) {
		port1 |= 1 << 0
	}
	if p.Window.Pressed(p.Bindings.OnePStart) {
		port1 |= 1 << 2
	}
	if p.Window.Pressed(p.Bindings.TwoPStart) {
		port1 |= 1 << 1
	}
	if p.Window.Pressed(p.Bindings.OnePShoot) {
		port1 |= 1 << 4
	}
	if p.Window.Pressed(p.Bindings.OnePLeft) {
		port1 |= 1 << 5
	}
	if p.Window.Pressed(p.Bindings.OnePRight) {
		port1 |= 1 << 6
	}
	ports.SetPort1(port1)

	var port2Buttons byte
	if p.Window.Pressed(p.Bindings.TwoPShoot) {
		port2Buttons |= 1 << 4
	}
	if p.Window.Pressed(p.Bindings.TwoPLeft) {
		port2Buttons |= 1 << 5
	}
	if p.Window.Pressed(p.Bindings.TwoPRight) {
		port2Buttons |= 1 << 6
	}
	ports.SetPort2Buttons(port2Buttons)
}
