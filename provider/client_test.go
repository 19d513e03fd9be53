package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/stickergen/hmacsig"
	"golang.org/x/time/rate"
)

const (
	testAccessKey = "AKLTtest"
	testSecretKey = "c2VjcmV0"
)

type fakeAPI struct {
	srv *httptest.Server
	png []byte

	mu     sync.Mutex
	bodies []generateBody
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	f := &fakeAPI{png: buf.Bytes()}

	mw, err := hmacsig.Middleware(hmacsig.MiddlewareConfig{
		Verify: hmacsig.VerifyConfig{
			Resolver: func(_ *http.Request, accessKeyID string) (string, error) {
				if accessKeyID != testAccessKey {
					return "", errors.New("unknown access key")
				}

				return testSecretKey, nil
			},
			Region:          hmacsig.DefaultRegion,
			Service:         hmacsig.DefaultService,
			RequiredHeaders: []string{"x-content-sha256", "content-type"},
		},
		OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ImageResponse{
				ResponseMetadata: &ResponseMetadata{
					Error: &GatewayError{Code: "SignatureDoesNotMatch", Message: err.Error()},
				},
			})
		},
	})
	require.NoError(t, err)

	router := mux.NewRouter()
	router.HandleFunc("/images/{name}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["name"] != "ok.png" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(f.png)
	}).Methods(http.MethodGet)

	api := router.Methods(http.MethodPost).Queries("Action", ActionCVProcess, "Version", APIVersion).Subrouter()
	api.Use(mw)
	api.HandleFunc("/", f.handle)

	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	resp := ImageResponse{Code: CodeSuccess, Message: "Success", Status: CodeSuccess, RequestID: "req-1"}
	status := http.StatusOK

	switch {
	case strings.Contains(body.Prompt, "risk"):
		resp = ImageResponse{Code: 50411, Message: "Pre Img Risk Not Pass"}
	case strings.Contains(body.Prompt, "crash"):
		status = http.StatusInternalServerError
		resp = ImageResponse{Code: 50500, Message: "Internal Error"}
	case strings.Contains(body.Prompt, "binary"):
		resp.Data.BinaryDataBase64 = []string{base64.StdEncoding.EncodeToString(f.png)}
	case strings.Contains(body.Prompt, "nourl"):
	case strings.Contains(body.Prompt, "broken"):
		resp.Data.ImageURLs = []string{f.srv.URL + "/images/missing.png"}
	default:
		resp.Data.ImageURLs = []string{f.srv.URL + "/images/ok.png"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, f *fakeAPI, mutate ...func(*Config)) *Client {
	t.Helper()

	cfg := Config{
		Endpoint:    f.srv.URL,
		Credentials: hmacsig.NewCredentials(testAccessKey, testSecretKey),
		Limiter:     rate.NewLimiter(rate.Inf, 1),
	}

	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)

	return c
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := New(Config{Credentials: hmacsig.NewCredentials("ak", "sk")})
		require.NoError(t, err)

		assert.Equal(t, "https://visual.volcengineapi.com/?Action=CVProcess&Version=2022-08-31", c.URL())
		assert.Equal(t, DefaultReqKey, c.reqKey)
		assert.Equal(t, DefaultSize, c.width)
		assert.Equal(t, DefaultSize, c.height)
		assert.Equal(t, 1, c.concurrency)
		assert.NotNil(t, c.limiter)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := New(Config{Credentials: hmacsig.NewCredentials(`""`, "sk")})
		assert.ErrorIs(t, err, hmacsig.ErrMissingCredentials)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		_, err := New(Config{
			Endpoint:    "visual.volcengineapi.com",
			Credentials: hmacsig.NewCredentials("ak", "sk"),
		})
		assert.Error(t, err)
	})
}

func TestGenerateImage(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	t.Run("signed request body", func(t *testing.T) {
		resp, err := c.GenerateImage(ctx, ImageRequest{Prompt: "cat", Seed: RandomSeed})
		require.NoError(t, err)

		assert.Equal(t, "req-1", resp.RequestID)
		assert.True(t, resp.HasImage())

		f.mu.Lock()
		body := f.bodies[len(f.bodies)-1]
		f.mu.Unlock()

		assert.Equal(t, DefaultReqKey, body.ReqKey)
		assert.Equal(t, "cat", body.Prompt)
		assert.Equal(t, int64(-1), body.Seed)
		assert.Equal(t, 512, body.Width)
		assert.Equal(t, 512, body.Height)
		assert.True(t, body.UsePreLLM)
		assert.True(t, body.UseSR)
		assert.True(t, body.ReturnURL)
		assert.Equal(t, defaultLogoInfo, body.LogoInfo)
		assert.Equal(t, defaultAIGCMeta, body.AIGCMeta)
	})

	t.Run("wrong secret rejected by gateway", func(t *testing.T) {
		bad := newTestClient(t, f, func(cfg *Config) {
			cfg.Credentials = hmacsig.NewCredentials(testAccessKey, "wrong")
		})

		_, err := bad.GenerateImage(ctx, ImageRequest{Prompt: "cat"})

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
		assert.Contains(t, te.Message, "SignatureDoesNotMatch")
	})

	t.Run("content policy", func(t *testing.T) {
		_, err := c.GenerateImage(ctx, ImageRequest{Prompt: "risk"})

		var cpe *ContentPolicyError
		require.ErrorAs(t, err, &cpe)
		assert.Equal(t, 50411, cpe.Code)
		assert.Equal(t, ReasonRiskCheckFailed, Reason(err))
		assert.True(t, IsContentPolicy(err))
	})

	t.Run("server error", func(t *testing.T) {
		_, err := c.GenerateImage(ctx, ImageRequest{Prompt: "crash"})

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		assert.Equal(t, 50500, te.Code)
		assert.Equal(t, "Internal Error", te.Message)
		assert.False(t, IsContentPolicy(err))
	})

	t.Run("network failure", func(t *testing.T) {
		down := newTestClient(t, f, func(cfg *Config) {
			cfg.Endpoint = "http://127.0.0.1:1"
		})

		_, err := down.GenerateImage(ctx, ImageRequest{Prompt: "cat"})

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Zero(t, te.StatusCode)
		assert.NotNil(t, te.Unwrap())
	})

	t.Run("empty prompt", func(t *testing.T) {
		_, err := c.GenerateImage(ctx, ImageRequest{Prompt: "  "})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("custom round tripper kept", func(t *testing.T) {
		rt := &countingTransport{next: http.DefaultTransport}

		custom := newTestClient(t, f, func(cfg *Config) {
			cfg.HTTPClient = &http.Client{Transport: rt}
		})

		resp, err := custom.GenerateImage(ctx, ImageRequest{Prompt: "cat"})
		require.NoError(t, err)

		_, err = custom.ImageDataURL(ctx, resp)
		require.NoError(t, err)

		assert.Equal(t, int32(2), rt.calls.Load(), "signed call and image download")
		assert.NotEmpty(t, rt.lastAuth.Load(), "signature added before the custom transport")
	})
}

type countingTransport struct {
	next     http.RoundTripper
	calls    atomic.Int32
	lastAuth atomic.Value
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if c.calls.Add(1) == 1 {
		c.lastAuth.Store(r.Header.Get(hmacsig.HeaderAuthorization))
	}

	return c.next.RoundTrip(r)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
		policy  bool
	}{
		{name: "risk code", code: 50511, message: "Post Img Not Pass", policy: true},
		{name: "risk message", code: 50400, message: "Text Risk Not Pass", policy: true},
		{name: "chinese message", code: 1, message: "内容包含敏感信息", policy: true},
		{name: "post text check", code: 50413, message: "Post Text Risk Not Pass", policy: true},
		{name: "rate limited", code: 50429, message: "Request Has Reached API Limit", policy: false},
		{name: "internal", code: 50500, message: "Internal Error", policy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(http.StatusOK, tt.code, tt.message)
			assert.Equal(t, tt.policy, IsContentPolicy(err))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t,
		"一只橘猫做出开心的可爱表情, 卡通动画风格, 萌系设计, 简洁背景, 高品质插画, 色彩鲜明, 细节精美, 纯图像设计, 表情符号风格",
		BuildPrompt(" 一只橘猫 ", "开心"))
}
