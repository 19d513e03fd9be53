package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/hmacsig"
	"github.com/vitalvas/stickergen/imaging"
	"github.com/vitalvas/stickergen/payment"
	"github.com/vitalvas/stickergen/provider"
)

const (
	testAccessKey = "AKLTtest"
	testSecretKey = "c2VjcmV0"
)

var testNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeGenerator struct {
	mu    sync.Mutex
	creds []hmacsig.Credentials

	image string
	fail  map[string]error
}

func (f *fakeGenerator) GenerateImage(_ context.Context, req provider.ImageRequest) (*provider.ImageResponse, error) {
	switch {
	case strings.Contains(req.Prompt, "risk"):
		return nil, &provider.ContentPolicyError{Code: 50411, Message: "Risk Not Pass"}
	case strings.Contains(req.Prompt, "down"):
		return nil, &provider.TransportError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}
	}

	return &provider.ImageResponse{
		Code:      provider.CodeSuccess,
		RequestID: "req-test",
		Data:      provider.ImageData{ImageURLs: []string{"https://example.com/a.png"}},
	}, nil
}

func (f *fakeGenerator) GenerateBatchFunc(_ context.Context, _ string, keywords []string, onResult func(provider.BatchResult)) []provider.BatchResult {
	results := make([]provider.BatchResult, len(keywords))

	for i, kw := range keywords {
		res := provider.BatchResult{Index: i, Keyword: kw}
		if err, ok := f.fail[kw]; ok {
			res.Err = err
		} else {
			res.ImageData = f.image
			res.RequestID = "req-" + kw
		}

		results[i] = res

		if onResult != nil {
			onResult(res)
		}
	}

	return results
}

func (f *fakeGenerator) lastCreds() hmacsig.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.creds) == 0 {
		return hmacsig.Credentials{}
	}

	return f.creds[len(f.creds)-1]
}

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	gen      *fakeGenerator
	payments *payment.Store
}

func smallPNG(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	s, err := imaging.EncodeDataURL(img)
	require.NoError(t, err)

	return s
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.UseRealAPI = true
	cfg.Credentials = hmacsig.NewCredentials(testAccessKey, testSecretKey)
	cfg.Processing.ProbeTimeout = time.Second

	for _, m := range mutate {
		m(cfg)
	}

	env := &testEnv{
		gen: &fakeGenerator{
			image: smallPNG(t),
			fail: map[string]error{
				"生气": &provider.ContentPolicyError{Code: 50412, Message: "risk"},
				"无聊": &provider.TransportError{StatusCode: 500, Message: "boom"},
			},
		},
		payments: payment.NewStore(func() time.Time { return testNow }),
	}

	srv, err := New(Options{
		Config:    cfg,
		Processor: imaging.New(imaging.Config{ProbeTimeout: time.Second}),
		Payments:  env.payments,
		NewGenerator: func(creds hmacsig.Credentials) (Generator, error) {
			env.gen.mu.Lock()
			env.gen.creds = append(env.gen.creds, creds)
			env.gen.mu.Unlock()

			return env.gen, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return testNow },
	})
	require.NoError(t, err)

	h, err := srv.Handler()
	require.NoError(t, err)

	env.srv = srv
	env.ts = httptest.NewServer(h)
	t.Cleanup(env.ts.Close)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	require.NoError(t, err)

	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func TestNew(t *testing.T) {
	t.Run("requires config", func(t *testing.T) {
		_, err := New(Options{})
		assert.Error(t, err)
	})

	t.Run("not configured without credentials", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.Credentials = hmacsig.Credentials{} })
		assert.ErrorIs(t, env.srv.generatorErr, ErrNotConfigured)
	})

	t.Run("not configured when real api disabled", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.UseRealAPI = false })
		assert.ErrorIs(t, env.srv.generatorErr, ErrNotConfigured)
	})

	t.Run("default generator", func(t *testing.T) {
		cfg := config.Default()
		cfg.UseRealAPI = true
		cfg.Credentials = hmacsig.NewCredentials(testAccessKey, testSecretKey)

		srv, err := New(Options{Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		require.NoError(t, err)
		require.NoError(t, srv.generatorErr)
		assert.IsType(t, &provider.Client{}, srv.generator)
	})

	t.Run("clients share one limiter", func(t *testing.T) {
		env := newTestEnv(t)

		a := env.srv.providerConfig(hmacsig.NewCredentials("AKLTone", "secret-one"))
		b := env.srv.providerConfig(hmacsig.NewCredentials("AKLTtwo", "secret-two"))

		require.NotNil(t, a.Limiter)
		assert.Same(t, a.Limiter, b.Limiter)
	})

	t.Run("warns about fonts without cjk glyphs", func(t *testing.T) {
		var logs bytes.Buffer

		_, err := New(Options{
			Config:    config.Default(),
			Processor: imaging.New(imaging.Config{}),
			Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		})
		require.NoError(t, err)
		assert.Contains(t, logs.String(), "level=ERROR")
		assert.Contains(t, logs.String(), "processing.font_file")
	})
}

func TestErrorResponses(t *testing.T) {
	env := newTestEnv(t)

	t.Run("not found", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/nope", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, codeNotFound, decodeBody[ErrorResponse](t, resp).Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp := env.do(t, http.MethodDelete, "/api/generate-emoticons", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
