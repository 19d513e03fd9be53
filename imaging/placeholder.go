package imaging

import (
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"math"
	"net/url"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultRemoteBase is the placeholder service used in remote mode.
const DefaultRemoteBase = "https://via.placeholder.com"

// PlaceholderMode selects how placeholders are produced.
type PlaceholderMode int

const (
	// PlaceholderRaster renders a PNG data URL, falling back to SVG.
	PlaceholderRaster PlaceholderMode = iota
	// PlaceholderVector returns an SVG data URL.
	PlaceholderVector
	// PlaceholderRemote returns a URL on a placeholder image service.
	PlaceholderRemote
)

var placeholderModes = map[string]PlaceholderMode{
	"raster": PlaceholderRaster,
	"vector": PlaceholderVector,
	"remote": PlaceholderRemote,
}

// ParsePlaceholderMode parses "raster", "vector" or "remote". The empty
// string is raster.
func ParsePlaceholderMode(s string) (PlaceholderMode, error) {
	if s == "" {
		return PlaceholderRaster, nil
	}

	m, ok := placeholderModes[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("imaging: unknown placeholder mode %q", s)
	}

	return m, nil
}

func (m PlaceholderMode) String() string {
	for name, v := range placeholderModes {
		if v == m {
			return name
		}
	}

	return fmt.Sprintf("PlaceholderMode(%d)", int(m))
}

var placeholderShadow = mustColor("rgba(0,0,0,0.3)")

// Placeholder returns a w x h image with text centered on a solid bg
// background, as a URL suitable for an <img> src. Colors are CSS colors.
func (p *Processor) Placeholder(w, h int, text, bg, fg string) string {
	switch p.placeholder {
	case PlaceholderRemote:
		return RemotePlaceholderURL(p.remoteBase, w, h, bg, fg, text)
	case PlaceholderVector:
		return VectorPlaceholder(w, h, text, bg, fg)
	}

	img, err := p.renderPlaceholder(w, h, text, bg, fg)
	if err == nil {
		var s string
		if s, err = EncodeDataURL(img); err == nil {
			return s
		}
	}

	p.logf("imaging: raster placeholder failed, using svg: %v", err)

	return VectorPlaceholder(w, h, text, bg, fg)
}

func (p *Processor) renderPlaceholder(w, h int, text, bg, fg string) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}

	bgColor, err := ParseColor(bg)
	if err != nil {
		return nil, err
	}

	fgColor, err := ParseColor(fg)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	face := p.newFace(placeholderFontSize(w, h))
	defer face.Close()

	drawText(dst, face, text, float64(w)/2, float64(h)/2, fgColor, &shadow{
		color: placeholderShadow,
		dx:    2,
		dy:    2,
		blur:  2,
	})

	return dst, nil
}

func placeholderFontSize(w, h int) float64 {
	return math.Min(float64(w), float64(h)) / 8
}

// VectorPlaceholder returns an SVG data URL placeholder.
func VectorPlaceholder(w, h int, text, bg, fg string) string {
	svg := fmt.Sprintf(
		`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
			`<rect width="100%%" height="100%%" fill="%s"/>`+
			`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" fill="%s" font-family="Arial" font-weight="bold" font-size="%g">%s</text>`+
			`</svg>`,
		w, h, html.EscapeString(bg), html.EscapeString(fg), placeholderFontSize(w, h), html.EscapeString(text),
	)

	return "data:" + MIMESVG + ";base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// RemotePlaceholderURL returns base/WxH/bg/fg?text=... with the leading '#'
// stripped from both colors.
func RemotePlaceholderURL(base string, w, h int, bg, fg, text string) string {
	return fmt.Sprintf("%s/%dx%d/%s/%s?text=%s",
		strings.TrimSuffix(base, "/"), w, h,
		strings.TrimPrefix(bg, "#"), strings.TrimPrefix(fg, "#"),
		strings.ReplaceAll(url.QueryEscape(text), "+", "%20"),
	)
}
