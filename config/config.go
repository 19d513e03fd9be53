// Package config loads stickergen settings from a YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitalvas/stickergen/hmacsig"
	"github.com/vitalvas/stickergen/imaging"
	"github.com/vitalvas/stickergen/provider"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvUseRealAPI = "USE_REAL_JIMENG_API"
	EnvListenAddr = "LISTEN_ADDR"
	EnvEndpoint   = "JIMENG_ENDPOINT"

	// DefaultEnvFile is loaded when no env files are given.
	DefaultEnvFile = ".env"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete service configuration.
type Config struct {
	Listen     string     `yaml:"listen"`
	UseRealAPI bool       `yaml:"use_real_api"`
	Provider   Provider   `yaml:"provider"`
	Processing Processing `yaml:"processing"`
	Limits     Limits     `yaml:"limits"`
	Payment    Payment    `yaml:"payment"`

	// Credentials come only from the environment.
	Credentials hmacsig.Credentials `yaml:"-"`
}

// Provider configures the image-generation client.
type Provider struct {
	Endpoint    string        `yaml:"endpoint"`
	Region      string        `yaml:"region"`
	Service     string        `yaml:"service"`
	ReqKey      string        `yaml:"req_key"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Processing configures the image post-processor.
type Processing struct {
	WatermarkText string          `yaml:"watermark_text"`
	ProbeTimeout  time.Duration   `yaml:"probe_timeout"`
	Placeholder   PlaceholderMode `yaml:"placeholder"`
	RemoteBase    string          `yaml:"remote_base"`
	FontFile      string          `yaml:"font_file"`

	// AllowPrivateNetworks lets source images be fetched from loopback,
	// private and link-local addresses.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// Limits bounds API requests.
type Limits struct {
	MaxKeywords  int   `yaml:"max_keywords"`
	MinKeywords  int   `yaml:"min_keywords"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Payment configures the simulated payment flow.
type Payment struct {
	Amount       int64         `yaml:"amount"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// PlaceholderMode is an imaging.PlaceholderMode read from its name.
type PlaceholderMode struct {
	imaging.PlaceholderMode
}

// UnmarshalYAML accepts "raster", "vector" or "remote".
func (m *PlaceholderMode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: placeholder must be a string", ErrInvalid)
	}

	mode, err := imaging.ParsePlaceholderMode(node.Value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	m.PlaceholderMode = mode

	return nil
}

// MarshalYAML writes the mode name.
func (m PlaceholderMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Provider: Provider{
			Endpoint:    provider.DefaultEndpoint,
			Region:      hmacsig.DefaultRegion,
			Service:     hmacsig.DefaultService,
			ReqKey:      provider.DefaultReqKey,
			Width:       provider.DefaultSize,
			Height:      provider.DefaultSize,
			Interval:    provider.DefaultInterval,
			Concurrency: 1,
			Timeout:     provider.DefaultTimeout,
		},
		Processing: Processing{
			WatermarkText: imaging.DefaultWatermarkText,
			ProbeTimeout:  imaging.DefaultProbeTimeout,
			RemoteBase:    imaging.DefaultRemoteBase,
		},
		Limits: Limits{
			MaxKeywords:  24,
			MinKeywords:  1,
			MaxBodyBytes: 32 << 20,
		},
		Payment: Payment{
			Amount:       990,
			PollInterval: 3 * time.Second,
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty), the env files (".env" when none are given; missing
// files are ignored) and the environment. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ak, _ := lookup(hmacsig.EnvAccessKeyID)
	sk, _ := lookup(hmacsig.EnvSecretAccessKey)
	c.Credentials = hmacsig.NewCredentials(ak, sk)

	if v, ok := lookup(EnvUseRealAPI); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvUseRealAPI, v)
		}

		c.UseRealAPI = b
	}

	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Listen = v
	}

	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		c.Provider.Endpoint = v
	}

	return nil
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Listen != "", "listen must not be empty")
	check(strings.HasPrefix(c.Provider.Endpoint, "http://") || strings.HasPrefix(c.Provider.Endpoint, "https://"),
		"provider.endpoint %q must be an http(s) url", c.Provider.Endpoint)
	check(c.Provider.Width > 0 && c.Provider.Height > 0, "provider size %dx%d", c.Provider.Width, c.Provider.Height)
	check(c.Provider.Interval >= 0, "provider.interval must not be negative")
	check(c.Provider.Concurrency >= 1, "provider.concurrency must be at least 1")
	check(c.Processing.ProbeTimeout > 0, "processing.probe_timeout must be positive")
	check(c.Limits.MinKeywords >= 1, "limits.min_keywords must be at least 1")
	check(c.Limits.MaxKeywords >= c.Limits.MinKeywords, "limits.max_keywords %d is below min_keywords %d",
		c.Limits.MaxKeywords, c.Limits.MinKeywords)
	check(c.Limits.MaxBodyBytes > 0, "limits.max_body_bytes must be positive")
	check(c.Payment.Amount > 0, "payment.amount must be positive")
	check(c.Payment.PollInterval > 0, "payment.poll_interval must be positive")

	return errors.Join(errs...)
}

// fontSearchPaths are tried when no font file is configured.
var fontSearchPaths = imaging.SystemFontPaths

// ProcessorConfig returns the imaging configuration. A configured FontFile
// must cover the watermark text. Without one, the first installed CJK font
// from imaging.SystemFontPaths is used.
func (c *Config) ProcessorConfig(logf func(string, ...any)) (imaging.Config, error) {
	out := imaging.Config{
		ProbeTimeout:         c.Processing.ProbeTimeout,
		Placeholder:          c.Processing.Placeholder.PlaceholderMode,
		RemoteBase:           c.Processing.RemoteBase,
		WatermarkText:        c.Processing.WatermarkText,
		AllowPrivateNetworks: c.Processing.AllowPrivateNetworks,
		Logf:                 logf,
	}

	text := out.WatermarkText
	if text == "" {
		text = imaging.DefaultWatermarkText
	}

	if c.Processing.FontFile != "" {
		data, err := os.ReadFile(c.Processing.FontFile)
		if err != nil {
			return imaging.Config{}, fmt.Errorf("config: font: %w", err)
		}

		if err := imaging.CheckFont(data, text); err != nil {
			return imaging.Config{}, fmt.Errorf("%w: processing.font_file %s: %w", ErrInvalid, c.Processing.FontFile, err)
		}

		out.FontData = data

		return out, nil
	}

	data, path, err := imaging.FindFont(fontSearchPaths, text)
	if err != nil {
		if logf != nil {
			logf("config: no installed font can draw %q, CJK text will render as boxes; set processing.font_file", text)
		}

		return out, nil
	}

	if logf != nil {
		logf("config: using font %s", path)
	}

	out.FontData = data

	return out, nil
}

// NewLimiter returns a limiter pacing provider calls at Provider.Interval.
// A zero interval does not limit.
func (c *Config) NewLimiter() *rate.Limiter {
	limit := rate.Inf
	if c.Provider.Interval > 0 {
		limit = rate.Every(c.Provider.Interval)
	}

	return rate.NewLimiter(limit, 1)
}

// ProviderConfig returns the image-generation client configuration for
// creds. Clients built with the same limiter share its pacing; a nil limiter
// is replaced by NewLimiter.
func (c *Config) ProviderConfig(creds hmacsig.Credentials, limiter *rate.Limiter, logf func(string, ...any)) provider.Config {
	if limiter == nil {
		limiter = c.NewLimiter()
	}

	return provider.Config{
		Endpoint:    c.Provider.Endpoint,
		Credentials: creds,
		Region:      c.Provider.Region,
		Service:     c.Provider.Service,
		ReqKey:      c.Provider.ReqKey,
		Width:       c.Provider.Width,
		Height:      c.Provider.Height,
		HTTPClient:  &http.Client{Timeout: c.Provider.Timeout},
		Limiter:     limiter,
		Concurrency: c.Provider.Concurrency,
		Logf:        logf,
	}
}
