// Package memory implements the cabinet's 64 KiB flat address space and
// the write guard that protects ROM and the unused mirror region.
package memory

const (
	// Size is the full 16-bit address space.
	Size = 1 << 16

	// RAMStart is the first address the CPU is allowed to write to.
	// Everything below this is ROM.
	RAMStart = 0x2000

	// VRAMStart is the first address of the video RAM region.
	VRAMStart = 0x2400

	// MirrorStart is the first address of the unused/mirrored region.
	// Writes at or above this address are silently dropped.
	MirrorStart = 0x4000
)

// Memory is a flat 64 KiB byte array with a write guard: writes below
// RAMStart (ROM) and at or above MirrorStart (mirror/unused) are
// silently dropped. Reads are never restricted.
type Memory [Size]byte

// New returns a zeroed Memory.
func New() *Memory {
	return &Memory{}
}

// Read returns the byte stored at addr. Reads are unguarded.
func (m *Memory) Read(addr uint16) byte {
	return m[addr]
}

// Write stores val at addr unless addr falls in the ROM or
// mirror/unused regions, in which case the write is dropped.
func (m *Memory) Write(addr uint16, val byte) {
	if addr < RAMStart || addr >= MirrorStart {
		return
	}
	m[addr] = val
}

// LoadROM copies data into memory starting at offset, bypassing the
// write guard. Used once at startup by the ROM Source; never called
// again afterward so the ROM region stays immutable in practice.
func (m *Memory) LoadROM(offset uint16, data []byte) {
	copy(m[offset:], data)
}

// VRAM returns the 7 KiB video RAM region as a slice for the
// Framebuffer Translator to read.
func (m *Memory) VRAM() []byte {
	return m[VRAMStart:MirrorStart]
}
