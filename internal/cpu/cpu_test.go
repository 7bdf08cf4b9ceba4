package cpu

import "testing"

// fakeMem is a flat 64 KiB array satisfying the Memory interface
// without the write guard internal/memory enforces, so tests can
// poke ROM-range addresses freely (e.g. scenario 3's "repeat with
// target 0x0000" case constructs its own guarded memory instead).
type fakeMem [65536]byte

func (m *fakeMem) Read(addr uint16) byte     { return m[addr] }
func (m *fakeMem) Write(addr uint16, v byte) { m[addr] = v }

func load(mem *fakeMem, addr uint16, bytes ...byte) {
	for i, b := range bytes {
		mem[int(addr)+i] = b
	}
}

func newTestCPU() (*CPU, *fakeMem) {
	mem := &fakeMem{}
	return New(mem), mem
}

// guardedMem wraps fakeMem with the same write guard
// internal/memory.Memory applies, for the one seed scenario that
// exercises it without importing internal/memory (avoiding an
// import cycle concern and keeping this package's tests
// self-contained).
type guardedMem struct {
	fakeMem
}

func (m *guardedMem) Write(addr uint16, v byte) {
	if addr < 0x2000 || addr >= 0x4000 {
		return
	}
	m.fakeMem[addr] = v
}

func TestSeedMVIAndHLT(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x3E, 0x42, 0x76)

	c.Step() // MVI A,0x42

	cases := []struct{ got, want interface{} }{
		{c.A, byte(0x42)},
		{c.PC, uint16(2)},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestSeedPushPswPopB(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x31, 0x00, 0x30, 0x3E, 0xAA, 0xF5, 0xC1)

	for i := 0; i < 4; i++ {
		c.Step() // LXI SP,0x3000; MVI A,0xAA; PUSH PSW; POP B
	}

	cases := []struct{ got, want interface{} }{
		{c.B, byte(0xAA)},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestSeedVramWriteAndRomGuard(t *testing.T) {
	c := New(&guardedMem{})
	mem := c.Mem.(*guardedMem)
	load(&mem.fakeMem, 0x0000, 0x21, 0x00, 0x24, 0x36, 0xFF)

	c.Step() // LXI H,0x2400
	c.Step() // MVI M,0xFF

	if got := mem.Read(0x2400); got != 0xFF {
		t.Errorf("got %#02x, want 0xFF", got)
	}

	c2 := New(&guardedMem{})
	mem2 := c2.Mem.(*guardedMem)
	load(&mem2.fakeMem, 0x0000, 0x21, 0x00, 0x00, 0x36, 0xFF)
	orig := mem2.Read(0x0000)

	c2.Step() // LXI H,0x0000
	c2.Step() // MVI M,0xFF (ROM, should be dropped)

	if got := mem2.Read(0x0000); got != orig {
		t.Errorf("ROM write leaked through: got %#02x, want original %#02x", got, orig)
	}
}

func TestSeedCmpEqual(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xB8) // CMP B
	c.A = 0x3A
	c.B = 0x3A

	c.Step()

	cases := []struct{ got, want interface{} }{
		{c.Flags.Z, true},
		{c.Flags.S, false},
		{c.Flags.CY, false},
		{c.A, byte(0x3A)},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestSeedInterruptInjection(t *testing.T) {
	c, _ := newTestCPU()
	c.PC = 0x1234
	c.SP = 0x3000
	c.IFF = true

	c.Interrupt(2)

	cases := []struct{ got, want interface{} }{
		{c.PC, uint16(0x0010)},
		{c.SP, uint16(0x2FFE)},
		{c.read(0x2FFE), byte(0x34)},
		{c.read(0x2FFF), byte(0x12)},
		{c.IFF, false},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestPCAdvancesByInstructionLength(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  uint16
	}{
		{"NOP", []byte{0x00}, 1},
		{"MVI A,d8", []byte{0x3E, 0x00}, 2},
		{"LXI B,d16", []byte{0x01, 0x00, 0x00}, 3},
		{"MOV B,C", []byte{0x41}, 1},
		{"JMP", []byte{0xC3, 0x50, 0x00}, 0x0050},
		{"CALL", []byte{0xCD, 0x50, 0x00}, 0x0050},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, mem := newTestCPU()
			c.SP = 0x4000
			load(mem, 0x0000, tc.bytes...)
			c.Step()
			if c.PC != tc.want {
				t.Errorf("got PC=%#04x, want %#04x", c.PC, tc.want)
			}
		})
	}
}

func TestArithmeticFlags(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x80) // ADD B
	c.A = 0x00
	c.B = 0x00

	c.Step()

	cases := []struct{ got, want interface{} }{
		{c.Flags.Z, true},
		{c.Flags.S, false},
		{c.Flags.P, true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestLogicalClearsCarry(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xA0) // ANA B
	c.A = 0xFF
	c.B = 0xFF
	c.Flags.CY = true

	c.Step()

	if c.Flags.CY {
		t.Errorf("CY should be cleared after ANA")
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xC5, 0xD1) // PUSH B; POP D
	c.SP = 0x4000
	c.B, c.C = 0x12, 0x34

	c.Step()
	c.Step()

	if c.D != 0x12 || c.E != 0x34 {
		t.Errorf("got D=%#02x E=%#02x, want D=0x12 E=0x34", c.D, c.E)
	}
}

func TestPushPopPswRoundTrip(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xF5, 0xF1) // PUSH PSW; POP PSW
	c.SP = 0x4000
	c.A = 0x5A
	c.Flags = Flags{Z: true, S: false, P: true, CY: true}

	c.Step()
	origFlags := c.Flags
	c.A = 0 // scramble before popping back
	c.Flags = Flags{}
	c.Step()

	if c.A != 0x5A || c.Flags != origFlags {
		t.Errorf("got A=%#02x Flags=%+v, want A=0x5a Flags=%+v", c.A, c.Flags, origFlags)
	}
}

func TestXchgIsSelfInverse(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xEB, 0xEB) // XCHG; XCHG
	c.D, c.E, c.H, c.L = 1, 2, 3, 4

	c.Step()
	c.Step()

	if c.D != 1 || c.E != 2 || c.H != 3 || c.L != 4 {
		t.Errorf("XCHG;XCHG should be identity, got D=%d E=%d H=%d L=%d", c.D, c.E, c.H, c.L)
	}
}

func TestXthlIsSelfInverse(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0xE3, 0xE3) // XTHL; XTHL
	c.SP = 0x4000
	c.H, c.L = 0xAB, 0xCD
	mem.Write(0x4000, 0x11)
	mem.Write(0x4001, 0x22)

	c.Step()
	c.Step()

	if c.H != 0xAB || c.L != 0xCD {
		t.Errorf("XTHL;XTHL should be identity on HL, got H=%#02x L=%#02x", c.H, c.L)
	}
	if mem.Read(0x4000) != 0x11 || mem.Read(0x4001) != 0x22 {
		t.Errorf("XTHL;XTHL should be identity on the stack top")
	}
}

func TestCmaIsSelfInverse(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x2F, 0x2F) // CMA; CMA
	c.A = 0x3C

	c.Step()
	c.Step()

	if c.A != 0x3C {
		t.Errorf("CMA;CMA should be identity, got %#02x", c.A)
	}
}

func TestRlcEightTimesIsIdentity(t *testing.T) {
	c, mem := newTestCPU()
	for i := 0; i < 8; i++ {
		mem[i] = 0x07 // RLC
	}
	c.A = 0x81

	for i := 0; i < 8; i++ {
		c.Step()
	}

	if c.A != 0x81 {
		t.Errorf("RLC x8 should be identity, got %#02x", c.A)
	}
}

func TestInrFFWrapsAndPreservesCarry(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x3C) // INR A
	c.A = 0xFF
	c.Flags.CY = true

	c.Step()

	cases := []struct{ got, want interface{} }{
		{c.A, byte(0x00)},
		{c.Flags.Z, true},
		{c.Flags.S, false},
		{c.Flags.P, true},
		{c.Flags.CY, true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestDcrZeroWrapsAndPreservesCarry(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x3D) // DCR A
	c.A = 0x00
	c.Flags.CY = false

	c.Step()

	cases := []struct{ got, want interface{} }{
		{c.A, byte(0xFF)},
		{c.Flags.Z, false},
		{c.Flags.S, true},
		{c.Flags.P, true},
		{c.Flags.CY, false},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %v, want %v", tc.got, tc.want)
		}
	}
}

func TestDadOverflowSetsCarry(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x09) // DAD B
	c.SetHL(0xFFFF)
	c.B, c.C = 0x00, 0x01

	c.Step()

	if c.HL() != 0x0000 {
		t.Errorf("got HL=%#04x, want 0x0000", c.HL())
	}
	if !c.Flags.CY {
		t.Errorf("expected CY set on 17-bit overflow")
	}
}

func TestSubUnderflowSetsCarryAndWraps(t *testing.T) {
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x90) // SUB B
	c.A = 0x00
	c.B = 0x01

	c.Step()

	if c.A != 0xFF {
		t.Errorf("got A=%#02x, want 0xff", c.A)
	}
	if !c.Flags.CY {
		t.Errorf("expected CY set on underflow")
	}
}

func TestUndocumentedOpcodesAreNop(t *testing.T) {
	for _, op := range undocumented {
		c, mem := newTestCPU()
		mem[0] = op
		c.A, c.B, c.SP = 0x11, 0x22, 0x4000

		c.Step()

		if c.PC != 1 {
			t.Errorf("opcode %#02x: got PC=%d, want 1", op, c.PC)
		}
		if c.A != 0x11 || c.B != 0x22 {
			t.Errorf("opcode %#02x: registers should be untouched", op)
		}
	}
}

func TestShiftScenarioIndependentOfCabinet(t *testing.T) {
	// The shift register itself lives in internal/cabinet; this only
	// confirms MVI A loads the bits a shift-offset OUT would need
	// (port 2 takes A & 0x07 straight from A, no CPU involvement
	// beyond that data path).
	c, mem := newTestCPU()
	load(mem, 0x0000, 0x3E, 0x03) // MVI A,3
	c.Step()
	if c.A&0x07 != 3 {
		t.Errorf("got %#02x, want low 3 bits == 3", c.A&0x07)
	}
}
