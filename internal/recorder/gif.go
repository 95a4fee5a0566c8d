package recorder

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// GIFOptions configures GIF generation
type GIFOptions struct {
	// FrameDelay is how long each step stays on screen.
	FrameDelay time.Duration
	MaxWidth   uint
	// Progress draws a strip along the bottom edge showing how far the
	// walkthrough has advanced.
	Progress bool
}

func (o GIFOptions) withDefaults() GIFOptions {
	if o.FrameDelay <= 0 {
		o.FrameDelay = 800 * time.Millisecond
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = 800
	}
	return o
}

// EncodeGIF writes frames as a looping animated GIF scaled to MaxWidth.
func EncodeGIF(w io.Writer, frames []image.Image, opts GIFOptions) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	opts = opts.withDefaults()

	// GIF delays are in 100ths of a second
	delay := int(opts.FrameDelay / (10 * time.Millisecond))
	if delay < 1 {
		delay = 1
	}

	width, height := scaledSize(frames[0].Bounds(), opts.MaxWidth)
	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}

	palette := generatePalette(frames[0])
	for i, frame := range frames {
		resized := resize.Resize(width, height, frame, resize.Lanczos3)
		if opts.Progress {
			rgba := toRGBA(resized)
			drawProgress(rgba, i+1, len(frames))
			resized = rgba
		}
		paletted := image.NewPaletted(resized.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, resized.Bounds(), resized, image.Point{})

		g.Image[i] = paletted
		g.Delay[i] = delay
	}
	return gif.EncodeAll(w, g)
}

// scaledSize keeps the aspect ratio of b at width maxWidth, never upscaling.
func scaledSize(b image.Rectangle, maxWidth uint) (uint, uint) {
	w, h := uint(b.Dx()), uint(b.Dy())
	if w == 0 || w <= maxWidth {
		return w, h
	}
	return maxWidth, uint(float64(maxWidth) * float64(h) / float64(w))
}

// generatePalette builds a 256-color palette from the most frequent colors
// of img, sampled every 4th pixel.
func generatePalette(img image.Image) color.Palette {
	bounds := img.Bounds()
	counts := make(map[color.RGBA]int)

	const step = 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}]++
		}
	}

	colors := make([]color.RGBA, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return rgbaLess(colors[i], colors[j])
	})

	palette := make(color.Palette, 0, 256)
	palette = append(palette, color.RGBA{0, 0, 0, 0})
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		palette = append(palette, colors[i])
	}
	// pad with grays
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}

func rgbaLess(a, b color.RGBA) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	if a.B != b.B {
		return a.B < b.B
	}
	return a.A < b.A
}
