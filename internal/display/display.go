// Package display implements the Framebuffer Sink as a pixelgl
// window, generalizing n-ulricksen-nes/nes/display.go from a fixed
// 256x240 NES raster to the cabinet's 224x256 rotated raster, with an
// optional debug overlay showing CPU state and frame rate instead of
// the NES disassembly panel (the core has no disassembler; see
// DESIGN.md).
package display

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/pixelgl"
	"github.com/faiface/pixel/text"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"

	"github.com/jhollman/invaders-emu/internal/video"
)

const (
	cabinetW float64 = video.Width
	cabinetH float64 = video.Height

	debugResW float64 = 320

	screenPosX float64 = 200
	screenPosY float64 = 200
)

// Display is a pixelgl window acting as the core's Framebuffer Sink.
type Display struct {
	rgba   *image.RGBA
	window *pixelgl.Window
	matrix pixel.Matrix

	scale float64

	debugAtlas *text.Atlas
	debugText  *text.Text
	debug      bool

	frames    int
	fpsWindow time.Time
	fps       float64
}

// New opens a window sized cabinetW*scale by cabinetH*scale (plus a
// debug panel when debug is true) and returns a Display ready to
// receive frames.
func New(scale float64, debug bool) *Display {
	rect := image.Rect(0, 0, int(cabinetW), int(cabinetH))
	rgba := image.NewRGBA(rect)

	gameW := cabinetW * scale
	gameH := cabinetH * scale
	screenW := gameW
	if debug {
		screenW += debugResW
	}

	config := pixelgl.WindowConfig{
		Title:    "Space Invaders",
		Bounds:   pixel.R(0, 0, screenW, gameH),
		Position: pixel.V(screenPosX, screenPosY),
		VSync:    true,
	}
	window, err := pixelgl.NewWindow(config)
	if err != nil {
		log.Fatalf("display: unable to create pixelgl window: %v", err)
	}

	pic := pixel.PictureDataFromImage(rgba)
	matrix := pixel.IM.Moved(pic.Bounds().Center().Scaled(scale))
	matrix = matrix.Scaled(pic.Bounds().Center().Scaled(scale), scale)

	var atlas *text.Atlas
	var debugText *text.Text
	if debug {
		atlas = text.NewAtlas(basicfont.Face7x13, text.ASCII)
		debugText = text.New(pixel.V(gameW+8, gameH-16), atlas)
	}

	return &Display{
		rgba:      rgba,
		window:    window,
		matrix:    matrix,
		scale:     scale,
		debugAtlas: atlas,
		debugText: debugText,
		debug:     debug,
		fpsWindow: time.Now(),
	}
}

// Closed reports whether the user has asked the window to close, so
// the caller's main loop knows when to stop.
func (d *Display) Closed() bool { return d.window.Closed() }

// Window exposes the underlying pixelgl window for the Input Provider
// to poll.
func (d *Display) Window() *pixelgl.Window { return d.window }

// Blit implements video.Sink: it copies one translated frame into the
// backing image and redraws the window.
func (d *Display) Blit(f video.Frame) {
	for y := 0; y < video.Height; y++ {
		for x := 0; x < video.Width; x++ {
			px := f.Pix[y*video.Width+x]
			var c color.RGBA
			if px != 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			} else {
				c = color.RGBA{A: 255}
			}
			// image.RGBA's origin is top-left like the frame; pixel's
			// sprite coordinate system is bottom-left, so flip Y on
			// the way into the backing image rather than in the
			// translator (which has no notion of a display).
			d.rgba.SetRGBA(x, video.Height-1-y, c)
		}
	}

	d.frames++
	d.window.Clear(colornames.Black)

	pic := pixel.PictureDataFromImage(d.rgba)
	sprite := pixel.NewSprite(pic, pic.Bounds())
	sprite.Draw(d.window, d.matrix)

	if d.debug {
		d.drawDebugOverlay()
	}

	d.window.Update()
}

// DrawDebugRegisters is called on every pass of the caller's loop
// when debug mode is on, to surface CPU state the Machine Driver owns
// but the Display has no access to on its own.
func (d *Display) DrawDebugRegisters(s string) {
	if !d.debug {
		return
	}
	d.debugText.Clear()
	fmt.Fprintln(d.debugText, s)
	fmt.Fprintf(d.debugText, "fps: %.1f", d.fps)
}

func (d *Display) drawDebugOverlay() {
	if time.Since(d.fpsWindow) >= time.Second {
		d.fps = float64(d.frames) / time.Since(d.fpsWindow).Seconds()
		d.frames = 0
		d.fpsWindow = time.Now()
	}
	d.debugText.Draw(d.window, pixel.IM)
}
