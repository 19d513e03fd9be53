package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

var (
	blue = color.RGBA{B: 0xff, A: 0xff}
	red  = color.RGBA{R: 0xff, A: 0xff}
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	return img
}

func solidDataURL(t *testing.T, w, h int, c color.Color) string {
	t.Helper()

	s, err := EncodeDataURL(solidImage(w, h, c))
	require.NoError(t, err)

	return s
}

func decodeDataURLImage(t *testing.T, s string) image.Image {
	t.Helper()

	img, err := DecodeImage(s)
	require.NoError(t, err)

	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func countDiff(a, b image.Image) int {
	n := 0
	bounds := a.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rgbaAt(a, x, y) != rgbaAt(b, x, y) {
				n++
			}
		}
	}

	return n
}
