package imaging

import (
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSize(t *testing.T, dataURL string, w, h int) {
	t.Helper()

	img := decodeDataURLImage(t, dataURL)
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{})

	assert.Equal(t, DefaultProbeTimeout, p.probeTimeout)
	assert.Equal(t, int64(DefaultMaxImageBytes), p.maxImageBytes)
	assert.Equal(t, DefaultRemoteBase, p.remoteBase)
	assert.Equal(t, DefaultWatermarkText, p.watermarkText)
	assert.NotNil(t, p.font)
	assert.NotNil(t, p.client)
}

func TestNewInvalidFont(t *testing.T) {
	var logged []string

	p := New(Config{
		FontData: []byte("not a font"),
		Logf: func(format string, args ...any) {
			logged = append(logged, fmt.Sprintf(format, args...))
		},
	})

	assert.NotNil(t, p.font, "falls back to the default typeface")
	require.Len(t, logged, 2)
	assert.Contains(t, logged[0], "parse font")
	assert.Contains(t, logged[1], "no glyphs")
}

func TestLoadImageSafely(t *testing.T) {
	png := pngBytes(t, solidImage(8, 8, red))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(png)
		case "/slow.png":
			<-r.Context().Done()
		case "/text":
			w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := New(Config{ProbeTimeout: 200 * time.Millisecond, AllowPrivateNetworks: true})
	ctx := context.Background()

	t.Run("reachable url returned unchanged", func(t *testing.T) {
		assert.Equal(t, srv.URL+"/ok.png", p.LoadImageSafely(ctx, srv.URL+"/ok.png"))
	})

	t.Run("data url returned unchanged", func(t *testing.T) {
		src := solidDataURL(t, 4, 4, red)
		assert.Equal(t, src, p.LoadImageSafely(ctx, src))
	})

	tests := []struct {
		name string
		src  string
	}{
		{name: "not found", src: srv.URL + "/missing.png"},
		{name: "not an image", src: srv.URL + "/text"},
		{name: "unreachable", src: "http://127.0.0.1:1/x.png"},
		{name: "unsupported scheme", src: "ftp://example.com/x.png"},
		{name: "empty", src: ""},
		{name: "broken data url", src: "data:image/png;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.LoadImageSafely(ctx, tt.src)
			assertSize(t, got, 512, 512)
			assert.Equal(t, coral, rgbaAt(decodeDataURLImage(t, got), 0, 0))
		})
	}

	t.Run("bounded by probe timeout", func(t *testing.T) {
		start := time.Now()
		got := p.LoadImageSafely(ctx, srv.URL+"/slow.png")

		assert.Less(t, time.Since(start), 2*time.Second)
		assertSize(t, got, 512, 512)
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("bad url never fails", func(t *testing.T) {
		p := New(Config{ProbeTimeout: 200 * time.Millisecond})

		res := p.Process(ctx, "http://127.0.0.1:1/missing.png", "开心", true)

		assert.Equal(t, "开心", res.Keyword)
		assertSize(t, res.MainImage, 512, 512)
		assertSize(t, res.Thumbnail, 120, 120)
		assertSize(t, res.Icon, 50, 50)
	})

	t.Run("keeps source dimensions", func(t *testing.T) {
		p := New(Config{})
		src := solidDataURL(t, 200, 100, red)

		res := p.Process(ctx, src, "happy", false)

		assert.Equal(t, "happy", res.Keyword)
		assertSize(t, res.MainImage, 200, 100)
		assertSize(t, res.Thumbnail, 120, 120)
		assertSize(t, res.Icon, 50, 50)

		thumb := decodeDataURLImage(t, res.Thumbnail)
		assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, rgbaAt(thumb, 60, 5))
		assertRed(t, rgbaAt(thumb, 60, 40))

		main := decodeDataURLImage(t, res.MainImage)
		assert.Equal(t, red, rgbaAt(main, 0, 0))
		assert.NotEqual(t, red, rgbaAt(main, 100, 90), "keyword band")
	})

	t.Run("watermark changes main image", func(t *testing.T) {
		p := New(Config{})
		src := solidDataURL(t, 200, 200, red)

		plain := p.Process(ctx, src, "happy", false)
		marked := p.Process(ctx, src, "happy", true)

		assert.NotEqual(t, plain.MainImage, marked.MainImage)
		assertSize(t, marked.MainImage, 200, 200)
	})

	t.Run("empty keyword", func(t *testing.T) {
		p := New(Config{})

		res := p.Process(ctx, solidDataURL(t, 64, 64, red), "  ", true)

		assert.Equal(t, "错误", res.Keyword)
		assertSize(t, res.MainImage, 240, 240)
		assertSize(t, res.Thumbnail, 120, 120)
		assertSize(t, res.Icon, 50, 50)
		assert.Equal(t, coral, rgbaAt(decodeDataURLImage(t, res.MainImage), 0, 0))
	})

	t.Run("failure placeholders in remote mode", func(t *testing.T) {
		p := New(Config{Placeholder: PlaceholderRemote})

		res := p.Process(ctx, "", "开心表情", true)

		assert.Equal(t, "开心表情", res.Keyword)
		assert.Equal(t, "https://via.placeholder.com/240x240/ff6b6b/ffffff?text=%E5%BC%80%E5%BF%83%E8%A1%A8%E6%83%85", res.MainImage)
		assert.True(t, strings.HasPrefix(res.Thumbnail, "https://via.placeholder.com/120x120/"))
		assert.Equal(t, "https://via.placeholder.com/50x50/ff6b6b/ffffff?text=%E5%BC%80%E5%BF%83", res.Icon)
	})

	t.Run("concurrent use", func(t *testing.T) {
		p := New(Config{})
		src := solidDataURL(t, 64, 64, blue)

		var wg sync.WaitGroup
		results := make([]ProcessedEmoticon, 8)

		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = p.Process(ctx, src, fmt.Sprintf("kw%d", i), true)
			}()
		}

		wg.Wait()

		for i, res := range results {
			assert.Equal(t, fmt.Sprintf("kw%d", i), res.Keyword)
			assertSize(t, res.MainImage, 64, 64)
		}
	})
}

func TestFirstRunes(t *testing.T) {
	assert.Equal(t, "开心", firstRunes("开心表情", 2))
	assert.Equal(t, "a", firstRunes("a", 2))
	assert.Equal(t, "", firstRunes("", 2))
}
