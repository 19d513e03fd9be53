package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Position is the vertical placement of a text overlay.
type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

const (
	overlayPadding = 8

	DefaultOverlayFontSize   = 16
	DefaultWatermarkFontSize = 32
	DefaultWatermarkOpacity  = 0.8
	DefaultWatermarkRotation = -45
)

var (
	overlayBackground = color.NRGBA{A: 179}
	watermarkShadow   = color.NRGBA{A: 128}
)

// OverlayOptions configures ApplyTextOverlay. Zero fields take defaults:
// 16px white text on rgba(0,0,0,0.7) at the bottom.
type OverlayOptions struct {
	FontSize   float64
	Color      color.Color
	Background color.Color
	Position   Position
}

func (o OverlayOptions) withDefaults() OverlayOptions {
	if o.FontSize <= 0 {
		o.FontSize = DefaultOverlayFontSize
	}

	if o.Color == nil {
		o.Color = color.White
	}

	if o.Background == nil {
		o.Background = overlayBackground
	}

	if o.Position == "" {
		o.Position = PositionBottom
	}

	return o
}

// WatermarkOptions configures ApplyWatermark. Zero FontSize, Color and
// Opacity take defaults. Rotation is in degrees and used as given; see
// DefaultWatermarkOptions.
type WatermarkOptions struct {
	Opacity  float64
	FontSize float64
	Color    color.Color
	Rotation float64
}

// DefaultWatermarkOptions returns 32px white text at 0.8 opacity rotated
// by -45 degrees.
func DefaultWatermarkOptions() WatermarkOptions {
	return WatermarkOptions{
		Opacity:  DefaultWatermarkOpacity,
		FontSize: DefaultWatermarkFontSize,
		Color:    color.White,
		Rotation: DefaultWatermarkRotation,
	}
}

func (o WatermarkOptions) withDefaults() WatermarkOptions {
	if o.FontSize <= 0 {
		o.FontSize = DefaultWatermarkFontSize
	}

	if o.Color == nil {
		o.Color = color.White
	}

	if o.Opacity <= 0 {
		o.Opacity = DefaultWatermarkOpacity
	}

	return o
}

// ApplyTextOverlay draws text on a copy of img over a translucent band.
// The band spans the measured text width plus 8px on each side and the font
// size plus 8px in height.
func (p *Processor) ApplyTextOverlay(img image.Image, text string, opts OverlayOptions) (*image.RGBA, error) {
	dst, err := toRGBA(img)
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	face := p.newFace(opts.FontSize)
	defer face.Close()

	w := float64(dst.Bounds().Dx())
	h := float64(dst.Bounds().Dy())
	textW := measureText(face, text)
	textH := opts.FontSize

	var y float64
	switch opts.Position {
	case PositionTop:
		y = textH + 10
	case PositionCenter:
		y = h / 2
	default:
		y = h - 15
	}

	x := (w - textW) / 2
	band := image.Rect(
		int(math.Round(x-overlayPadding)),
		int(math.Round(y-textH)),
		int(math.Round(x+textW+overlayPadding)),
		int(math.Round(y+overlayPadding)),
	).Add(dst.Bounds().Min)

	draw.Draw(dst, band, image.NewUniform(opts.Background), image.Point{}, draw.Over)

	origin := dst.Bounds().Min
	drawText(dst, face, text, float64(origin.X)+w/2, float64(origin.Y)+y-textH/2, opts.Color, nil)

	return dst, nil
}

// ApplyWatermark draws text rotated around the center of a copy of img,
// with a blurred drop shadow offset by (2,2). The output has the dimensions
// of img.
func (p *Processor) ApplyWatermark(img image.Image, text string, opts WatermarkOptions) (*image.RGBA, error) {
	dst, err := toRGBA(img)
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	face := p.newFace(opts.FontSize)
	defer face.Close()

	b := dst.Bounds()

	// Large enough to hold the text at any angle without clipping inside
	// the image.
	side := int(math.Ceil(math.Hypot(float64(b.Dx()), float64(b.Dy())))) + 2*int(opts.FontSize)
	layer := image.NewRGBA(image.Rect(0, 0, side, side))
	half := float64(side) / 2

	drawText(layer, face, text, half, half, fade(opts.Color, opts.Opacity), &shadow{
		color: fade(watermarkShadow, opts.Opacity),
		dx:    2,
		dy:    2,
		blur:  2,
	})

	theta := opts.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2

	s2d := f64.Aff3{
		cos, -sin, cx - cos*half + sin*half,
		sin, cos, cy - sin*half - cos*half,
	}

	draw.BiLinear.Transform(dst, s2d, layer, layer.Bounds(), draw.Over, nil)

	return dst, nil
}

// toRGBA returns a copy of img as *image.RGBA with the same bounds.
func toRGBA(img image.Image) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	return dst, nil
}
