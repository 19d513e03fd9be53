package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-errors/errors"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/server"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand runs the HTTP API until interrupted.
type ServeCommand struct {
	*Meta
}

func (c *ServeCommand) Run(args []string) int {
	fs := c.flagSet("serve", c.Help())
	cfgPath := fs.String("config", "", "")
	envFile := fs.String("env", config.DefaultEnvFile, "")
	listen := fs.String("listen", "", "")

	if !c.parse(fs, args) {
		return 1
	}

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		return c.fail(err)
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := server.New(server.Options{Config: cfg, Logger: logger})
	if err != nil {
		return c.fail(err)
	}

	handler, err := srv.Handler()
	if err != nil {
		return c.fail(err)
	}

	ctx, stop := signalContext()
	defer stop()

	hs := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()

	logger.Info("listening",
		slog.String("addr", cfg.Listen),
		slog.Bool("real_api", cfg.UseRealAPI),
		slog.String("credentials", cfg.Credentials.String()),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return c.fail(err)
		}

		return 0
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := hs.Shutdown(shutdownCtx); err != nil {
		return c.fail(err)
	}

	return 0
}

func (c *ServeCommand) Help() string {
	return `
Usage: stickergen serve [options]

  Runs the HTTP API.

Options:

  -config=path   YAML configuration file.
  -env=path      Environment file loaded before the environment (default .env).
  -listen=addr   Overrides the listen address.
`
}

func (c *ServeCommand) Synopsis() string {
	return "Runs the HTTP API."
}
