package imaging

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var namedColors = map[string]color.NRGBA{
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"black":       {A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"transparent": {},
}

// ParseColor parses a CSS color: #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b),
// rgba(r,g,b,a) with a in [0,1], or one of white, black, red and
// transparent.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHexColor(hex)
	}

	if args, ok := cutFunc(s, "rgba"); ok {
		return parseRGBFunc(args, true)
	}

	if args, ok := cutFunc(s, "rgb"); ok {
		return parseRGBFunc(args, false)
	}

	return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func mustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}

	return c
}

func cutFunc(s, name string) (string, bool) {
	rest, ok := strings.CutPrefix(s, name+"(")
	if !ok {
		return "", false
	}

	return strings.CutSuffix(rest, ")")
}

func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	if len(hex) == 6 {
		hex += "ff"
	}

	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: #%s", ErrInvalidColor, hex)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: #%s", ErrInvalidColor, hex)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func parseRGBFunc(args string, withAlpha bool) (color.NRGBA, error) {
	parts := strings.Split(args, ",")

	want := 3
	if withAlpha {
		want = 4
	}

	if len(parts) != want {
		return color.NRGBA{}, fmt.Errorf("%w: %s", ErrInvalidColor, args)
	}

	var c [3]uint8
	for i := range 3 {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: %s", ErrInvalidColor, args)
		}

		c[i] = uint8(v)
	}

	alpha := uint8(0xff)
	if withAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, fmt.Errorf("%w: %s", ErrInvalidColor, args)
		}

		alpha = uint8(math.Round(a * 255))
	}

	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: alpha}, nil
}

// fade scales the alpha of c by opacity.
func fade(c color.Color, opacity float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * clamp01(opacity)))

	return n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
