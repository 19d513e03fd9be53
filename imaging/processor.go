package imaging

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/image/font/opentype"
)

const (
	DefaultProbeTimeout  = 5 * time.Second
	DefaultMaxImageBytes = 20 << 20
	DefaultWatermarkText = "无解"

	// ProcessFontSize is the keyword label size used by Process.
	ProcessFontSize = 18

	ThumbnailSize = 120
	IconSize      = 50

	failureMainSize  = 240
	loadFailureSize  = 512
	loadFailureLabel = "加载失败"
	emptyKeyword     = "错误"
	failureBG        = "#ff6b6b"
	failureFG        = "#ffffff"
)

// ProcessedEmoticon holds the three PNG data URLs of a processed emoticon.
type ProcessedEmoticon struct {
	Keyword   string `json:"keyword"`
	MainImage string `json:"mainImage"`
	Thumbnail string `json:"thumbnail"`
	Icon      string `json:"icon"`
}

// Config configures a Processor. The zero value is usable.
type Config struct {
	// Client fetches remote source images. Defaults to NewSourceClient; each
	// fetch is bounded by ProbeTimeout.
	Client *http.Client

	// AllowPrivateNetworks lets the default client fetch from loopback,
	// private and link-local addresses.
	AllowPrivateNetworks bool

	// ProbeTimeout bounds fetching and decoding one source image.
	// Defaults to 5s.
	ProbeTimeout time.Duration

	// MaxImageBytes caps the size of a downloaded source image.
	// Defaults to 20 MiB.
	MaxImageBytes int64

	// Placeholder selects how Placeholder renders.
	Placeholder PlaceholderMode

	// RemoteBase is the placeholder service used in PlaceholderRemote mode.
	// Defaults to https://via.placeholder.com.
	RemoteBase string

	// WatermarkText is the preview watermark. Defaults to "无解".
	WatermarkText string

	// FontData is a TrueType or OpenType font used for all text. Defaults
	// to Go Bold.
	FontData []byte

	// Logf receives diagnostic messages. Optional.
	Logf func(format string, args ...any)
}

// Processor renders emoticon variants. It is safe for concurrent use.
type Processor struct {
	client        *http.Client
	probeTimeout  time.Duration
	maxImageBytes int64
	placeholder   PlaceholderMode
	remoteBase    string
	watermarkText string
	font          *opentype.Font
	logFn         func(format string, args ...any)
}

// New creates a Processor. A FontData that fails to parse is logged and
// replaced by the default typeface. A font that cannot draw the watermark
// text is logged too.
func New(cfg Config) *Processor {
	p := &Processor{
		client:        cfg.Client,
		probeTimeout:  cfg.ProbeTimeout,
		maxImageBytes: cfg.MaxImageBytes,
		placeholder:   cfg.Placeholder,
		remoteBase:    strings.TrimSuffix(cfg.RemoteBase, "/"),
		watermarkText: cfg.WatermarkText,
		logFn:         cfg.Logf,
	}

	if p.client == nil {
		p.client = NewSourceClient(cfg.AllowPrivateNetworks)
	}

	if p.probeTimeout <= 0 {
		p.probeTimeout = DefaultProbeTimeout
	}

	if p.maxImageBytes <= 0 {
		p.maxImageBytes = DefaultMaxImageBytes
	}

	if p.remoteBase == "" {
		p.remoteBase = DefaultRemoteBase
	}

	if p.watermarkText == "" {
		p.watermarkText = DefaultWatermarkText
	}

	f, err := parseTypeface(cfg.FontData)
	if err != nil {
		p.logf("imaging: parse font: %v", err)
	}

	p.font = f

	if missing := p.MissingGlyphs(p.watermarkText); len(missing) > 0 {
		p.logf("imaging: font has no glyphs for %q, text will render as boxes", string(missing))
	}

	return p
}

func (p *Processor) logf(format string, args ...any) {
	if p.logFn != nil {
		p.logFn(format, args...)
	}
}

// LoadImageSafely checks that src can be fetched and decoded within the
// probe timeout. It returns src unchanged when it can, and a 512x512
// "加载失败" placeholder otherwise.
func (p *Processor) LoadImageSafely(ctx context.Context, src string) string {
	if _, err := p.fetch(ctx, src); err != nil {
		p.logf("imaging: source unavailable, using placeholder: %v", err)
		return p.Placeholder(loadFailureSize, loadFailureSize, loadFailureLabel, failureBG, failureFG)
	}

	return src
}

// Process renders the main image, thumbnail and icon for keyword from src.
// The main image keeps the source dimensions and carries the keyword label
// and, when watermark is set, the preview watermark. Process never fails:
// an unreachable source is replaced by a placeholder before rendering, and a
// rendering failure yields placeholders labelled with the keyword.
func (p *Processor) Process(ctx context.Context, src, keyword string, watermark bool) ProcessedEmoticon {
	res, err := p.process(ctx, src, keyword, watermark)
	if err != nil {
		p.logf("imaging: process %q: %v", keyword, err)
		return p.failureSet(keyword)
	}

	return res
}

func (p *Processor) process(ctx context.Context, src, keyword string, watermark bool) (ProcessedEmoticon, error) {
	if strings.TrimSpace(src) == "" {
		return ProcessedEmoticon{}, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}

	if strings.TrimSpace(keyword) == "" {
		return ProcessedEmoticon{}, ErrEmptyKeyword
	}

	source, err := p.loadSafely(ctx, src)
	if err != nil {
		return ProcessedEmoticon{}, err
	}

	mainImg, err := p.ApplyTextOverlay(source, keyword, OverlayOptions{
		FontSize: ProcessFontSize,
		Position: PositionBottom,
	})
	if err != nil {
		return ProcessedEmoticon{}, err
	}

	if watermark {
		if mainImg, err = p.ApplyWatermark(mainImg, p.watermarkText, DefaultWatermarkOptions()); err != nil {
			return ProcessedEmoticon{}, err
		}
	}

	thumb, err := Resize(mainImg, ThumbnailSize, ThumbnailSize, true)
	if err != nil {
		return ProcessedEmoticon{}, err
	}

	icon, err := Resize(mainImg, IconSize, IconSize, false)
	if err != nil {
		return ProcessedEmoticon{}, err
	}

	res := ProcessedEmoticon{Keyword: keyword}

	for _, out := range []struct {
		dst *string
		img image.Image
	}{
		{&res.MainImage, mainImg},
		{&res.Thumbnail, thumb},
		{&res.Icon, icon},
	} {
		if *out.dst, err = EncodeDataURL(out.img); err != nil {
			return ProcessedEmoticon{}, err
		}
	}

	return res, nil
}

// loadSafely fetches src, substituting a rendered load-failure placeholder
// when it cannot be fetched.
func (p *Processor) loadSafely(ctx context.Context, src string) (image.Image, error) {
	img, err := p.fetch(ctx, src)
	if err == nil {
		return img, nil
	}

	p.logf("imaging: source unavailable, using placeholder: %v", err)

	return p.renderPlaceholder(loadFailureSize, loadFailureSize, loadFailureLabel, failureBG, failureFG)
}

func (p *Processor) failureSet(keyword string) ProcessedEmoticon {
	label := keyword
	if strings.TrimSpace(label) == "" {
		label = emptyKeyword
	}

	return ProcessedEmoticon{
		Keyword:   label,
		MainImage: p.Placeholder(failureMainSize, failureMainSize, label, failureBG, failureFG),
		Thumbnail: p.Placeholder(ThumbnailSize, ThumbnailSize, label, failureBG, failureFG),
		Icon:      p.Placeholder(IconSize, IconSize, firstRunes(label, 2), failureBG, failureFG),
	}
}

// Fetch loads and decodes an image from a data URL or an http(s) URL within
// the probe timeout.
func (p *Processor) Fetch(ctx context.Context, src string) (image.Image, error) {
	return p.fetch(ctx, src)
}

func (p *Processor) fetch(ctx context.Context, src string) (image.Image, error) {
	src = strings.TrimSpace(src)

	if IsDataURL(src) {
		return DecodeImage(src)
	}

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, src)
	}

	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, p.maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFetch, err)
	}

	return img, nil
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}

	return string(r)
}
