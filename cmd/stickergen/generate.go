package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/vitalvas/stickergen/bundle"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/imaging"
	"github.com/vitalvas/stickergen/provider"
)

var errNoImages = errors.Errorf("no image was generated")

// GenerateCommand generates, processes and packages a sticker set.
type GenerateCommand struct {
	*Meta
}

func (c *GenerateCommand) Run(args []string) int {
	fs := c.flagSet("generate", c.Help())
	cfgPath := fs.String("config", "", "")
	envFile := fs.String("env", config.DefaultEnvFile, "")
	subject := fs.String("subject", "", "")
	keywordList := fs.String("keywords", "", "")
	title := fs.String("title", "", "")
	editionName := fs.String("edition", string(bundle.EditionWatermarked), "")
	out := fs.String("out", "", "")
	banner := fs.Bool("banner", true, "")

	if !c.parse(fs, args) {
		return 1
	}

	keywords := splitList(*keywordList)
	if strings.TrimSpace(*subject) == "" || len(keywords) == 0 {
		c.UI.Error("-subject and -keywords are required")
		fs.Usage()

		return 1
	}

	edition, err := bundle.ParseEdition(*editionName)
	if err != nil {
		return c.fail(err)
	}

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		return c.fail(err)
	}

	if len(keywords) > cfg.Limits.MaxKeywords {
		return c.fail(fmt.Errorf("at most %d keywords are allowed, got %d", cfg.Limits.MaxKeywords, len(keywords)))
	}

	logf := func(format string, args ...any) {
		if c.Debug {
			c.UI.Warn(fmt.Sprintf(format, args...))
		}
	}

	client, err := provider.New(cfg.ProviderConfig(cfg.Credentials, nil, logf))
	if err != nil {
		return c.fail(err)
	}

	pcfg, err := cfg.ProcessorConfig(logf)
	if err != nil {
		return c.fail(err)
	}

	processor := imaging.New(pcfg)

	ctx, stop := signalContext()
	defer stop()

	done := 0
	results := client.GenerateBatchFunc(ctx, *subject, keywords, func(res provider.BatchResult) {
		done++

		if res.OK() {
			c.UI.Info(fmt.Sprintf("[%d/%d] %s: ok", done, len(keywords), res.Keyword))
		} else {
			c.UI.Warn(fmt.Sprintf("[%d/%d] %s: %s", done, len(keywords), res.Keyword, provider.Reason(res.Err)))
		}
	})

	if err := ctx.Err(); err != nil {
		return c.fail(err)
	}

	watermark := edition == bundle.EditionWatermarked

	var emoticons []imaging.ProcessedEmoticon
	for _, res := range results {
		if res.OK() {
			emoticons = append(emoticons, processor.Process(ctx, res.ImageData, res.Keyword, watermark))
		}
	}

	if len(emoticons) == 0 {
		return c.fail(errNoImages)
	}

	pkg := bundle.Package{
		Title:     *title,
		Edition:   edition,
		Emoticons: emoticons,
		Created:   time.Now(),
	}

	if *banner && edition != bundle.EditionSimple {
		if pkg.Banner, err = processor.CreateBanner(ctx, emoticons, *title); err != nil {
			c.UI.Warn("banner: " + err.Error())
		}
	}

	path := *out
	if path == "" {
		path = bundle.Filename(pkg.Title, edition, len(emoticons), pkg.Created)
	}

	if err := writePackage(path, pkg); err != nil {
		return c.fail(err)
	}

	c.UI.Output(fmt.Sprintf("wrote %d of %d emoticons to %s", len(emoticons), len(keywords), path))

	return 0
}

func writePackage(path string, pkg bundle.Package) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := bundle.WritePackage(f, pkg); err != nil {
		f.Close()
		os.Remove(path)

		return err
	}

	return f.Close()
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(s string) []string {
	var out []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func (c *GenerateCommand) Help() string {
	return `
Usage: stickergen generate -subject=TEXT -keywords=a,b,c [options]

  Generates one image per keyword, labels them and writes a ZIP package.
  Requires ACCESS_KEY_ID and SECRET_ACCESS_KEY.

Options:

  -subject=TEXT          Subject description.
  -keywords=a,b,c        Comma-separated keywords.
  -title=TEXT            Package title.
  -edition=watermarked   watermarked, premium or simple. Only the
                         watermarked edition is watermarked.
  -banner=true           Adds a cover banner to full editions.
  -out=path              Output file. Defaults to the package file name.
  -config=path           YAML configuration file.
  -env=path              Environment file (default .env).
`
}

func (c *GenerateCommand) Synopsis() string {
	return "Generates a sticker package."
}
