package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Resize scales img into a w x h canvas. With keepAspect the image is
// fitted inside the canvas, centered, and the remainder filled white;
// otherwise it is stretched to fill the canvas exactly.
func Resize(img image.Image, w, h int, keepAspect bool) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}

	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	sb := img.Bounds()
	targetW, targetH := float64(w), float64(h)

	if keepAspect {
		aspect := float64(sb.Dx()) / float64(sb.Dy())
		if targetW/targetH > aspect {
			targetW = targetH * aspect
		} else {
			targetH = targetW / aspect
		}
	}

	offX := (float64(w) - targetW) / 2
	offY := (float64(h) - targetH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	dr := image.Rect(
		int(math.Round(offX)),
		int(math.Round(offY)),
		int(math.Round(offX+targetW)),
		int(math.Round(offY+targetH)),
	)

	if dr.Empty() {
		return dst, nil
	}

	draw.CatmullRom.Scale(dst, dr, img, sb, draw.Over, nil)

	return dst, nil
}
