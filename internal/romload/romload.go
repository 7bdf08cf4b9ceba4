// Package romload implements the ROM Source: it reads the four fixed
// Space Invaders ROM segments from disk and places them at their
// fixed memory offsets. Generalized from n-ulricksen-nes/nes/bus.go's
// Load, which reads one ROM image to a single fixed offset with
// log.Fatalf naming the file on failure; this does the same for four
// files instead of one, and additionally checks each file's length
// against the segment it's meant to fill (spec.md §7 error kind 1:
// "file missing or short").
package romload

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Segment describes one ROM file's name, destination offset, and
// required length.
type Segment struct {
	File   string
	Offset uint16
	Size   int
}

// Segments is the stock Space Invaders ROM layout (spec.md §6).
var Segments = []Segment{
	{File: "invaders.h", Offset: 0x0000, Size: 0x0800},
	{File: "invaders.g", Offset: 0x0800, Size: 0x0800},
	{File: "invaders.f", Offset: 0x1000, Size: 0x0800},
	{File: "invaders.e", Offset: 0x1800, Size: 0x0800},
}

// Target is what romload writes into; internal/memory.Memory
// satisfies it.
type Target interface {
	LoadROM(offset uint16, data []byte)
}

// Load reads every file in Segments from dir and writes it into mem
// at its fixed offset. A missing or short file is fatal, naming the
// file, per spec.md §7: the ROM set is either complete or the
// emulator has nothing correct to run.
func Load(dir string, mem Target) {
	for _, seg := range Segments {
		path := filepath.Join(dir, seg.File)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("romload: unable to read %s: %v", path, err)
		}
		if len(data) != seg.Size {
			log.Fatalf("romload: %s is %d bytes, want exactly %d", path, len(data), seg.Size)
		}
		mem.LoadROM(seg.Offset, data)
	}
}

// Describe renders the ROM layout romload expects, for diagnostics.
func Describe(dir string) string {
	s := fmt.Sprintf("ROM directory %s expects:\n", dir)
	for _, seg := range Segments {
		s += fmt.Sprintf("  %s at 0x%04X (%d bytes)\n", seg.File, seg.Offset, seg.Size)
	}
	return s
}
