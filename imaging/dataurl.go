package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strings"

	// Decoders for the formats generation providers return.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// MIMEPNG is the media type of every encoded output.
	MIMEPNG = "image/png"

	// MIMESVG is the media type of vector placeholders.
	MIMESVG = "image/svg+xml"

	dataURLPrefix = "data:"
)

// EncodeDataURL encodes img as a base64 PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	b, err := EncodePNG(img)
	if err != nil {
		return "", err
	}

	return BytesToDataURL(MIMEPNG, b), nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	return buf.Bytes(), nil
}

// BytesToDataURL returns a base64 data URL of data with the given media type.
func BytesToDataURL(mime string, data []byte) string {
	return dataURLPrefix + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s is a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, dataURLPrefix)
}

// DecodeDataURL splits a data URL into its media type and payload. Both
// base64 and percent-encoded payloads are accepted.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, dataURLPrefix)
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}

	mime, params, _ := strings.Cut(meta, ";")
	if mime == "" {
		mime = "text/plain"
	}

	if params == "base64" || strings.HasSuffix(params, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
		}

		return mime, data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return mime, []byte(data), nil
}

// DataURLToBytes returns the payload of a data URL.
func DataURLToBytes(s string) ([]byte, error) {
	_, data, err := DecodeDataURL(s)

	return data, err
}

// DecodeImage decodes an image from a data URL.
func DecodeImage(s string) (image.Image, error) {
	data, err := DataURLToBytes(s)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return img, nil
}
