// Package bundle packages processed emoticons into ZIP archives.
//
// Three editions exist. The watermarked preview and the premium edition
// share one layout:
//
//	main/01.png          main images
//	thumb/01-thumb.png   120x120 thumbnails
//	icon/01-icon.png     50x50 icons
//	banner/banner.png    750x400 banner, when supplied
//	README.txt
//
// The simple edition holds only the main images, named after their
// keywords, and a README.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/vitalvas/stickergen/imaging"
)

// Edition selects the archive layout and README.
type Edition string

const (
	EditionWatermarked Edition = "watermarked"
	EditionPremium     Edition = "premium"
	EditionSimple      Edition = "simple"
)

// DefaultTitle is used when a package has no title.
const DefaultTitle = "AI表情包"

var (
	// ErrUnknownEdition is returned for editions other than the three above.
	ErrUnknownEdition = errors.New("bundle: unknown edition")

	// ErrNoEmoticons is returned for packages without emoticons.
	ErrNoEmoticons = errors.New("bundle: no emoticons")

	// ErrInvalidImage is returned when an image is not a data URL.
	ErrInvalidImage = errors.New("bundle: invalid image")
)

// ParseEdition parses an edition name. The empty string is the watermarked
// preview.
func ParseEdition(s string) (Edition, error) {
	switch e := Edition(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EditionWatermarked, nil
	case EditionWatermarked, EditionPremium, EditionSimple:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEdition, s)
	}
}

// Package is the content of one archive.
type Package struct {
	Title     string
	Edition   Edition
	Emoticons []imaging.ProcessedEmoticon

	// Banner is a PNG data URL. Optional.
	Banner string

	// Created stamps every entry and the README. Defaults to time.Now.
	Created time.Time
}

// WritePackage writes pkg as a ZIP archive to w.
func WritePackage(w io.Writer, pkg Package) error {
	if len(pkg.Emoticons) == 0 {
		return ErrNoEmoticons
	}

	if pkg.Title == "" {
		pkg.Title = DefaultTitle
	}

	if pkg.Created.IsZero() {
		pkg.Created = time.Now()
	}

	aw := &archiveWriter{zw: zip.NewWriter(w), modified: pkg.Created}

	var err error
	switch pkg.Edition {
	case EditionWatermarked, EditionPremium:
		err = writeFull(aw, pkg)
	case EditionSimple:
		err = writeSimple(aw, pkg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEdition, pkg.Edition)
	}

	if err != nil {
		return err
	}

	return aw.zw.Close()
}

func writeFull(aw *archiveWriter, pkg Package) error {
	for i, e := range pkg.Emoticons {
		n := fmt.Sprintf("%02d", i+1)

		for _, entry := range []struct {
			name, kind, src string
		}{
			{"main/" + n + ".png", "main", e.MainImage},
			{"thumb/" + n + "-thumb.png", "thumbnail", e.Thumbnail},
			{"icon/" + n + "-icon.png", "icon", e.Icon},
		} {
			data, err := imaging.DataURLToBytes(entry.src)
			if err != nil {
				return fmt.Errorf("%w: %s %s: %w", ErrInvalidImage, e.Keyword, entry.kind, err)
			}

			if err := aw.file(entry.name, data); err != nil {
				return err
			}
		}
	}

	if pkg.Banner != "" {
		data, err := imaging.DataURLToBytes(pkg.Banner)
		if err != nil {
			return fmt.Errorf("%w: banner: %w", ErrInvalidImage, err)
		}

		if err := aw.file("banner/banner.png", data); err != nil {
			return err
		}
	}

	return aw.file("README.txt", []byte(readme(pkg)))
}

// writeSimple skips emoticons whose main image is not a data URL.
func writeSimple(aw *archiveWriter, pkg Package) error {
	for i, e := range pkg.Emoticons {
		data, err := imaging.DataURLToBytes(e.MainImage)
		if err != nil {
			continue
		}

		if err := aw.file(SimpleFileName(i, e.Keyword), data); err != nil {
			return err
		}
	}

	return aw.file("README.txt", []byte(readme(pkg)))
}

// SimpleFileName returns "NN_<keyword>.png" for the zero-based index i.
func SimpleFileName(i int, keyword string) string {
	return fmt.Sprintf("%02d_%s.png", i+1, SafeKeyword(keyword))
}

var unsafeKeyword = regexp.MustCompile(`[^a-zA-Z0-9\x{4e00}-\x{9fa5}]`)

// SafeKeyword replaces every character other than ASCII letters, digits and
// CJK unified ideographs with '_'.
func SafeKeyword(keyword string) string {
	return unsafeKeyword.ReplaceAllString(keyword, "_")
}

// Filename returns the download name of a package with count emoticons.
func Filename(title string, edition Edition, count int, now time.Time) string {
	if title == "" {
		title = DefaultTitle
	}

	switch edition {
	case EditionPremium:
		return fmt.Sprintf("%s_高级版_%d.zip", title, now.UnixMilli())
	case EditionSimple:
		return fmt.Sprintf("%s_%d张.zip", title, count)
	default:
		return fmt.Sprintf("%s_预览版_%d.zip", title, now.UnixMilli())
	}
}

type archiveWriter struct {
	zw       *zip.Writer
	modified time.Time
}

func (a *archiveWriter) file(name string, data []byte) error {
	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modified,
	})
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}
