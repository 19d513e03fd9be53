package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vitalvas/stickergen/hmacsig"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://visual.volcengineapi.com"
	DefaultReqKey   = "jimeng_high_aes_general_v21_L"
	DefaultSize     = 512
	DefaultInterval = 500 * time.Millisecond
	DefaultTimeout  = 60 * time.Second

	ActionCVProcess = "CVProcess"
	APIVersion      = "2022-08-31"

	// CodeSuccess is the provider code of a successful generation.
	CodeSuccess = 10000

	maxResponseBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	// Endpoint is the API base URL. Defaults to DefaultEndpoint.
	Endpoint string

	// Credentials sign every call. Required.
	Credentials hmacsig.Credentials

	// Region and Service form the credential scope. Default to
	// cn-north-1 and cv.
	Region  string
	Service string

	// ReqKey selects the model. Defaults to DefaultReqKey.
	ReqKey string

	// Width and Height of generated images. Default to 512.
	Width  int
	Height int

	// HTTPClient carries timeout and transport settings. Its transport is
	// wrapped by the signing transport.
	HTTPClient *http.Client

	// Limiter paces calls. Defaults to one call per 500ms.
	Limiter *rate.Limiter

	// Concurrency bounds in-flight calls of a batch. Defaults to 1.
	Concurrency int

	// Clock is used for request signing. Defaults to time.Now.
	Clock func() time.Time

	// Logf receives diagnostic messages. Optional.
	Logf func(format string, args ...any)
}

// Client calls the image-generation API. It is safe for concurrent use.
type Client struct {
	endpoint    string
	reqKey      string
	width       int
	height      int
	signed      *http.Client
	plain       *http.Client
	limiter     *rate.Limiter
	concurrency int
	logFn       func(format string, args ...any)
}

// New creates a Client. It fails when the credentials are incomplete or the
// endpoint is not an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	signer, err := hmacsig.NewSigner(hmacsig.Config{
		Credentials: cfg.Credentials,
		Region:      cfg.Region,
		Service:     cfg.Service,
		Clock:       cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if u, err := url.Parse(endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("provider: invalid endpoint %q", cfg.Endpoint)
	}

	c := &Client{
		endpoint:    endpoint,
		reqKey:      cfg.ReqKey,
		width:       cfg.Width,
		height:      cfg.Height,
		limiter:     cfg.Limiter,
		concurrency: cfg.Concurrency,
		logFn:       cfg.Logf,
	}

	if c.reqKey == "" {
		c.reqKey = DefaultReqKey
	}

	if c.width <= 0 {
		c.width = DefaultSize
	}

	if c.height <= 0 {
		c.height = DefaultSize
	}

	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
	}

	if c.concurrency <= 0 {
		c.concurrency = 1
	}

	base := &http.Client{Timeout: DefaultTimeout}
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient
	}

	signedClient := *base
	signedClient.Transport = hmacsig.WrapTransport(base.Transport, signer)
	c.signed = &signedClient
	c.plain = base

	return c, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logFn != nil {
		c.logFn(format, args...)
	}
}

// URL returns the CVProcess endpoint.
func (c *Client) URL() string {
	q := url.Values{}
	q.Set("Action", ActionCVProcess)
	q.Set("Version", APIVersion)

	return c.endpoint + "/?" + q.Encode()
}

// GenerateImage performs one signed generation call. Non-2xx responses and
// provider codes other than CodeSuccess are returned as *TransportError, or
// *ContentPolicyError when the content check rejected the prompt or image.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	body := generateBody{
		ReqKey:    c.reqKey,
		Prompt:    req.Prompt,
		Seed:      req.Seed,
		Width:     req.Width,
		Height:    req.Height,
		UsePreLLM: true,
		UseSR:     true,
		ReturnURL: true,
		LogoInfo:  defaultLogoInfo,
		AIGCMeta:  defaultAIGCMeta,
	}

	if body.Width <= 0 {
		body.Width = c.width
	}

	if body.Height <= 0 {
		body.Height = c.height
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.signed.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	var out ImageResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, out.Code, errorMessage(&out, raw, resp.Status))
	}

	if decodeErr != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}

	if out.Code != CodeSuccess {
		return nil, classify(resp.StatusCode, out.Code, errorMessage(&out, raw, resp.Status))
	}

	return &out, nil
}

// errorMessage picks the most specific message of an error response.
func errorMessage(out *ImageResponse, raw []byte, status string) string {
	switch {
	case out.ResponseMetadata != nil && out.ResponseMetadata.Error != nil:
		return out.ResponseMetadata.Error.Code + ": " + out.ResponseMetadata.Error.Message
	case out.Message != "":
		return out.Message
	case out.Data.AlgorithmBaseResp.StatusMessage != "":
		return out.Data.AlgorithmBaseResp.StatusMessage
	case len(raw) > 0 && len(raw) <= 256:
		return strings.TrimSpace(string(raw))
	default:
		return status
	}
}

// ImageDataURL returns the first image of resp as a data URL, downloading
// it when the response carries only a URL.
func (c *Client) ImageDataURL(ctx context.Context, resp *ImageResponse) (string, error) {
	if len(resp.Data.ImageURLs) > 0 {
		return c.download(ctx, resp.Data.ImageURLs[0])
	}

	if len(resp.Data.BinaryDataBase64) > 0 {
		data, err := base64.StdEncoding.DecodeString(resp.Data.BinaryDataBase64[0])
		if err != nil {
			return "", fmt.Errorf("provider: decode image: %w", err)
		}

		return dataURL(data), nil
	}

	return "", ErrNoImage
}

func (c *Client) download(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	resp, err := c.plain.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{StatusCode: resp.StatusCode, Message: "download image: " + resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if len(data) == 0 {
		return "", ErrNoImage
	}

	return dataURL(data), nil
}

func dataURL(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
