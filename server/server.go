// Package server exposes sticker generation, processing, packaging and the
// simulated payment flow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/hmacsig"
	"github.com/vitalvas/stickergen/imaging"
	"github.com/vitalvas/stickergen/payment"
	"github.com/vitalvas/stickergen/provider"
	"golang.org/x/time/rate"
)

// Version is reported by the health endpoint.
const Version = "1.1.0"

// ErrNotConfigured is returned by generation when the real API is disabled
// or no credentials are available.
var ErrNotConfigured = errors.New("server: image generation is not configured")

// Generator is the part of *provider.Client the handlers use.
type Generator interface {
	GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.ImageResponse, error)
	GenerateBatchFunc(ctx context.Context, subject string, keywords []string, onResult func(provider.BatchResult)) []provider.BatchResult
}

// GeneratorFunc builds a Generator for a credential pair.
type GeneratorFunc func(creds hmacsig.Credentials) (Generator, error)

// Options configures a Server. Config is required.
type Options struct {
	Config *config.Config

	// Processor defaults to one built from Config.
	Processor *imaging.Processor

	// Payments defaults to an empty in-memory store.
	Payments *payment.Store

	// NewGenerator defaults to provider.New with Config.ProviderConfig.
	NewGenerator GeneratorFunc

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	cfg          *config.Config
	processor    *imaging.Processor
	payments     *payment.Store
	newGenerator GeneratorFunc
	logger       *slog.Logger
	clock        func() time.Time
	upgrader     websocket.Upgrader
	limiter      *rate.Limiter

	// generator is built once for the configured credentials.
	generator    Generator
	generatorErr error
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}

	s := &Server{
		cfg:          opts.Config,
		processor:    opts.Processor,
		payments:     opts.Payments,
		newGenerator: opts.NewGenerator,
		logger:       opts.Logger,
		clock:        opts.Clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.clock == nil {
		s.clock = time.Now
	}

	if s.payments == nil {
		s.payments = payment.NewStore(s.clock)
	}

	if s.processor == nil {
		pcfg, err := s.cfg.ProcessorConfig(s.logf)
		if err != nil {
			return nil, err
		}

		s.processor = imaging.New(pcfg)
	}

	if missing := s.processor.MissingGlyphs(s.processor.WatermarkText()); len(missing) > 0 {
		s.logger.Error("font cannot draw Chinese labels, emoticon text will render as boxes; set processing.font_file to a CJK font",
			slog.String("missing", string(missing)),
		)
	}

	s.limiter = s.cfg.NewLimiter()

	if s.newGenerator == nil {
		s.newGenerator = func(creds hmacsig.Credentials) (Generator, error) {
			return provider.New(s.providerConfig(creds))
		}
	}

	if s.cfg.UseRealAPI && s.cfg.Credentials.Validate() == nil {
		s.generator, s.generatorErr = s.newGenerator(s.cfg.Credentials)
	} else {
		s.generatorErr = ErrNotConfigured
	}

	return s, nil
}

// providerConfig builds a client configuration for creds. Every client
// shares the server's limiter, so override credentials do not bypass pacing.
func (s *Server) providerConfig(creds hmacsig.Credentials) provider.Config {
	return s.cfg.ProviderConfig(creds, s.limiter, s.logf)
}

func (s *Server) logf(format string, args ...any) {
	s.logger.Warn(fmt.Sprintf(format, args...))
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() (http.Handler, error) {
	limit, err := BodyLimit(s.cfg.Limits.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(RequestID(false), AccessLog(s.logger), Recovery(s.logger), limit)

	api := r.PathPrefix("/api").Subrouter()

	gen := api.PathPrefix("/generate-emoticons").Subrouter()
	gen.HandleFunc("", s.handleGenerateInfo).Methods(http.MethodGet)
	gen.HandleFunc("", s.handleGenerate).Methods(http.MethodPost)
	gen.HandleFunc("/stream", s.handleGenerateStream).Methods(http.MethodGet)

	api.HandleFunc("/test-jimeng", s.handleDiagnostics).Methods(http.MethodGet)
	api.HandleFunc("/test-jimeng", s.handleTestGeneration).Methods(http.MethodPost)

	api.HandleFunc("/emoticons/process", s.handleProcess).Methods(http.MethodPost)
	api.HandleFunc("/emoticons/package", s.handlePackage).Methods(http.MethodPost)

	api.HandleFunc("/payments", s.handleCreatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id}", s.handleGetPayment).Methods(http.MethodGet)
	api.HandleFunc("/payments/{id}/confirm", s.handleConfirmPayment).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r, nil
}

// credentials returns the override pair from the request headers, or the
// configured pair.
func (s *Server) credentials(r *http.Request) (hmacsig.Credentials, bool) {
	if c, ok := hmacsig.CredentialsFromHeader(r.Header); ok {
		return c, true
	}

	return s.cfg.Credentials, false
}

// generatorFor returns the Generator for the request. Override headers
// enable generation even when the configured pair is missing.
func (s *Server) generatorFor(r *http.Request) (Generator, error) {
	creds, override := s.credentials(r)
	if !override {
		return s.generator, s.generatorErr
	}

	if !s.cfg.UseRealAPI {
		return nil, ErrNotConfigured
	}

	return s.newGenerator(creds)
}
