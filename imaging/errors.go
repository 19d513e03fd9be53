package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrRender is the root error for every rendering failure.
	ErrRender = errors.New("imaging: render failed")

	// ErrEmptyImage is returned when a source image has no pixels.
	ErrEmptyImage = fmt.Errorf("%w: empty image", ErrRender)

	// ErrInvalidSize is returned for non-positive target dimensions.
	ErrInvalidSize = fmt.Errorf("%w: invalid size", ErrRender)

	// ErrInvalidColor is returned when a color string cannot be parsed.
	ErrInvalidColor = errors.New("imaging: invalid color")

	// ErrInvalidDataURL is returned for malformed data URLs.
	ErrInvalidDataURL = errors.New("imaging: invalid data url")

	// ErrUnsupportedSource is returned for source URLs that are neither
	// http(s) nor data URLs.
	ErrUnsupportedSource = errors.New("imaging: unsupported image source")

	// ErrFetch is returned when a remote image cannot be downloaded.
	ErrFetch = errors.New("imaging: fetch failed")

	// ErrInvalidFont is returned for font data that is not a TTF, OTF, TTC
	// or OTC file.
	ErrInvalidFont = errors.New("imaging: invalid font")

	// ErrMissingGlyphs is returned when a font cannot draw some text.
	ErrMissingGlyphs = errors.New("imaging: font has no glyphs")

	// ErrBlockedAddress is returned when a source URL resolves to a
	// loopback, private or link-local address.
	ErrBlockedAddress = errors.New("imaging: blocked address")
)

// ErrEmptyKeyword is returned when an emoticon has no keyword to label.
var ErrEmptyKeyword = fmt.Errorf("%w: empty keyword", ErrRender)
