package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitalvas/stickergen/bundle"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/imaging"
)

// ProcessCommand renders the three variants of one image.
type ProcessCommand struct {
	*Meta
}

func (c *ProcessCommand) Run(args []string) int {
	fs := c.flagSet("process", c.Help())
	cfgPath := fs.String("config", "", "")
	envFile := fs.String("env", config.DefaultEnvFile, "")
	src := fs.String("src", "", "")
	keyword := fs.String("keyword", "", "")
	outDir := fs.String("out", ".", "")
	watermark := fs.Bool("watermark", false, "")

	if !c.parse(fs, args) {
		return 1
	}

	if *src == "" || strings.TrimSpace(*keyword) == "" {
		c.UI.Error("-src and -keyword are required")
		fs.Usage()

		return 1
	}

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		return c.fail(err)
	}

	pcfg, err := cfg.ProcessorConfig(func(format string, args ...any) {
		c.UI.Warn(fmt.Sprintf(format, args...))
	})
	if err != nil {
		return c.fail(err)
	}

	source, err := sourceURL(*src)
	if err != nil {
		return c.fail(err)
	}

	ctx, stop := signalContext()
	defer stop()

	res := imaging.New(pcfg).Process(ctx, source, *keyword, *watermark)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return c.fail(err)
	}

	base := bundle.SafeKeyword(res.Keyword)

	for _, v := range []struct{ suffix, data string }{
		{"main", res.MainImage},
		{"thumb", res.Thumbnail},
		{"icon", res.Icon},
	} {
		data, err := imaging.DataURLToBytes(v.data)
		if err != nil {
			return c.fail(err)
		}

		path := filepath.Join(*outDir, base+"-"+v.suffix+extension(v.data))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return c.fail(err)
		}

		c.UI.Output(path)
	}

	return 0
}

// sourceURL passes URLs through and turns a local file into a data URL.
func sourceURL(src string) (string, error) {
	if imaging.IsDataURL(src) || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}

	return imaging.BytesToDataURL(http.DetectContentType(data), data), nil
}

// extension is ".svg" for vector placeholders and ".png" otherwise.
func extension(dataURL string) string {
	if strings.HasPrefix(dataURL, "data:"+imaging.MIMESVG) {
		return ".svg"
	}

	return ".png"
}

func (c *ProcessCommand) Help() string {
	return `
Usage: stickergen process -src=URL|path -keyword=TEXT [options]

  Labels an image with a keyword and writes the main image, the 120x120
  thumbnail and the 50x50 icon.

Options:

  -src=URL|path     http(s) URL, data URL or local file.
  -keyword=TEXT     Label drawn on the image.
  -watermark        Adds the preview watermark.
  -out=dir          Output directory (default .).
  -config=path      YAML configuration file.
  -env=path         Environment file (default .env).
`
}

func (c *ProcessCommand) Synopsis() string {
	return "Processes a single image."
}
