package recorder

import (
	"image"
	"image/color"
	"image/draw"
)

const (
	progressHeight = 4
	borderWidth    = 4
)

var (
	progressColor = color.RGBA{66, 133, 244, 255}
	trackColor    = color.RGBA{220, 220, 220, 255}
	failureColor  = color.RGBA{219, 68, 55, 255}
)

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

// drawProgress paints a strip along the bottom edge filled to step/total.
func drawProgress(img *image.RGBA, step, total int) {
	b := img.Bounds()
	if total <= 0 || b.Dy() <= progressHeight {
		return
	}
	strip := image.Rect(b.Min.X, b.Max.Y-progressHeight, b.Max.X, b.Max.Y)
	draw.Draw(img, strip, image.NewUniform(trackColor), image.Point{}, draw.Src)

	filled := strip
	filled.Max.X = b.Min.X + b.Dx()*step/total
	draw.Draw(img, filled, image.NewUniform(progressColor), image.Point{}, draw.Src)
}

// drawBorder outlines img to mark a failure screenshot.
func drawBorder(img *image.RGBA) {
	b := img.Bounds()
	c := image.NewUniform(failureColor)
	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+borderWidth),
		image.Rect(b.Min.X, b.Max.Y-borderWidth, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+borderWidth, b.Max.Y),
		image.Rect(b.Max.X-borderWidth, b.Min.Y, b.Max.X, b.Max.Y),
	} {
		draw.Draw(img, r.Intersect(b), c, image.Point{}, draw.Src)
	}
}
