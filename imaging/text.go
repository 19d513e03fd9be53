package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// SystemFontPaths lists well-known locations of CJK-capable fonts, most
// preferred first.
var SystemFontPaths = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/wqy-zenhei/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/STHeiti Medium.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\msyhbd.ttc`,
	`C:\Windows\Fonts\msyh.ttc`,
	`C:\Windows\Fonts\simhei.ttf`,
}

var goBold = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// parseTypeface parses data as a font or font collection, falling back to
// Go Bold. From a collection it takes the first font covering DefaultWatermarkText,
// or the first font when none does. A nil result means the bitmap fallback
// face is used.
func parseTypeface(data []byte) (*opentype.Font, error) {
	if len(data) == 0 {
		return goBold()
	}

	f, err := parseFirstFont(data, DefaultWatermarkText)
	if err != nil {
		def, _ := goBold()
		return def, err
	}

	return f, nil
}

func parseFirstFont(data []byte, text string) (*opentype.Font, error) {
	c, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, err
	}

	var first *opentype.Font

	for i := range c.NumFonts() {
		f, err := c.Font(i)
		if err != nil {
			continue
		}

		if len(missingGlyphs(f, text)) == 0 {
			return f, nil
		}

		if first == nil {
			first = f
		}
	}

	if first == nil {
		return nil, sfnt.ErrNotFound
	}

	return first, nil
}

// missingGlyphs returns the runes of text, other than spaces, that f maps to
// the missing glyph. A nil font misses everything.
func missingGlyphs(f *opentype.Font, text string) []rune {
	var (
		buf     sfnt.Buffer
		missing []rune
	)

	for _, r := range text {
		if r == ' ' {
			continue
		}

		if f == nil {
			missing = append(missing, r)
			continue
		}

		if idx, err := f.GlyphIndex(&buf, r); err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}

	return missing
}

// CheckFont parses data, a TTF, OTF, TTC or OTC font, and reports whether it
// has glyphs for every rune of text. The error wraps ErrMissingGlyphs when
// glyphs are missing.
func CheckFont(data []byte, text string) error {
	f, err := parseFirstFont(data, text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFont, err)
	}

	if missing := missingGlyphs(f, text); len(missing) > 0 {
		return fmt.Errorf("%w: %q", ErrMissingGlyphs, string(missing))
	}

	return nil
}

// FindFont returns the first font among paths that parses and covers text.
func FindFont(paths []string, text string) (data []byte, path string, err error) {
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		if CheckFont(b, text) == nil {
			return b, p, nil
		}
	}

	return nil, "", fmt.Errorf("%w: no font covers %q", ErrMissingGlyphs, text)
}

// MissingGlyphs returns the runes of text the processor's font cannot draw.
func (p *Processor) MissingGlyphs(text string) []rune {
	return missingGlyphs(p.font, text)
}

// WatermarkText returns the configured preview watermark.
func (p *Processor) WatermarkText() string {
	return p.watermarkText
}

// shadow describes a drop shadow drawn beneath text.
type shadow struct {
	color  color.Color
	dx, dy int
	blur   int
}

// newFace returns a face of the given pixel size. Faces are not safe for
// concurrent use and must be closed by the caller.
func (p *Processor) newFace(size float64) font.Face {
	if p.font != nil && size > 0 {
		face, err := opentype.NewFace(p.font, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err == nil {
			return face
		}

		p.logf("imaging: font face size %.1f: %v", size, err)
	}

	return basicfont.Face7x13
}

func measureText(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// drawText draws s horizontally centered on cx with its em box vertically
// centered on cy.
func drawText(dst draw.Image, face font.Face, s string, cx, cy float64, fill color.Color, sh *shadow) {
	b := dst.Bounds()
	mask := image.NewAlpha(b)

	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	width := d.MeasureString(s)
	m := face.Metrics()

	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(math.Round(cx*64)) - width/2,
		Y: fixed.Int26_6(math.Round(cy*64)) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(s)

	if sh != nil {
		sm := mask
		if sh.blur > 0 {
			sm = boxBlur(mask, sh.blur)
		}

		draw.DrawMask(dst, b, image.NewUniform(sh.color), image.Point{}, sm, b.Min.Sub(image.Pt(sh.dx, sh.dy)), draw.Over)
	}

	draw.DrawMask(dst, b, image.NewUniform(fill), image.Point{}, mask, b.Min, draw.Over)
}

// boxBlur returns a copy of m blurred by a separable box filter of radius r.
func boxBlur(m *image.Alpha, r int) *image.Alpha {
	b := m.Bounds()
	tmp := image.NewAlpha(b)
	out := image.NewAlpha(b)
	n := 2*r + 1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for k := -r; k <= r; k++ {
				if xx := x + k; xx >= b.Min.X && xx < b.Max.X {
					sum += int(m.AlphaAt(xx, y).A)
				}
			}

			tmp.SetAlpha(x, y, color.Alpha{A: uint8(sum / n)})
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for k := -r; k <= r; k++ {
				if yy := y + k; yy >= b.Min.Y && yy < b.Max.Y {
					sum += int(tmp.AlphaAt(x, yy).A)
				}
			}

			out.SetAlpha(x, y, color.Alpha{A: uint8(sum / n)})
		}
	}

	return out
}
