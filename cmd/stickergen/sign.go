package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/vitalvas/stickergen/config"
	"github.com/vitalvas/stickergen/hmacsig"
)

// headerFlags collects repeated -header "Name: value" flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	return fmt.Sprint(map[string]string(h))
}

func (h headerFlags) Set(v string) error {
	name, value, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header %q must be Name: value", v)
	}

	h[strings.TrimSpace(name)] = strings.TrimSpace(value)

	return nil
}

// SignCommand prints the signed headers of a request.
type SignCommand struct {
	*Meta
}

func (c *SignCommand) Run(args []string) int {
	headers := headerFlags{}

	fs := c.flagSet("sign", c.Help())
	method := fs.String("method", "POST", "")
	target := fs.String("url", "", "")
	body := fs.String("body", "", "")
	bodyFile := fs.String("body-file", "", "")
	region := fs.String("region", hmacsig.DefaultRegion, "")
	service := fs.String("service", hmacsig.DefaultService, "")
	date := fs.String("date", "", "")
	envFile := fs.String("env", config.DefaultEnvFile, "")
	verbose := fs.Bool("verbose", false, "")
	fs.Var(headers, "header", "")

	if !c.parse(fs, args) {
		return 1
	}

	if *target == "" {
		c.UI.Error("-url is required")
		fs.Usage()

		return 1
	}

	payload := []byte(*body)
	if *bodyFile != "" {
		data, err := os.ReadFile(*bodyFile)
		if err != nil {
			return c.fail(err)
		}

		payload = data
	}

	cfg, err := config.Load("", *envFile)
	if err != nil {
		return c.fail(err)
	}

	creds := cfg.Credentials
	if creds.AccessKeyID == "" {
		return c.fail(hmacsig.ErrMissingCredentials)
	}

	if creds.SecretAccessKey == "" {
		if creds.SecretAccessKey, err = c.readSecret("Secret access key: "); err != nil {
			return c.fail(err)
		}
	}

	clock := time.Now
	if *date != "" {
		t, err := time.Parse(hmacsig.TimeFormat, *date)
		if err != nil {
			return c.fail(errors.WrapPrefix(err, "-date", 0))
		}

		clock = func() time.Time { return t }
	}

	signer, err := hmacsig.NewSigner(hmacsig.Config{
		Credentials: creds,
		Region:      *region,
		Service:     *service,
		Clock:       clock,
	})
	if err != nil {
		return c.fail(err)
	}

	sig, err := signer.Compute(hmacsig.Request{
		Method:  strings.ToUpper(*method),
		URL:     *target,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return c.fail(err)
	}

	if *verbose {
		c.UI.Info("Canonical request:\n" + sig.CanonicalRequest + "\n")
		c.UI.Info("String to sign:\n" + sig.StringToSign + "\n")
		c.UI.Info("Credential scope: " + sig.CredentialScope)
		c.UI.Info("Signature: " + sig.Signature + "\n")
	}

	names := make([]string, 0, len(sig.Headers))
	for k := range sig.Headers {
		names = append(names, k)
	}

	slices.Sort(names)

	for _, k := range names {
		c.UI.Output(k + ": " + sig.Headers[k])
	}

	return 0
}

func (c *SignCommand) Help() string {
	return `
Usage: stickergen sign -url=URL [options]

  Signs a request with ACCESS_KEY_ID and SECRET_ACCESS_KEY and prints the
  headers to send. The secret is prompted for when unset.

Options:

  -method=POST         HTTP method.
  -url=URL             Request URL, query included.
  -body=string         Request body.
  -body-file=path      Reads the request body from a file.
  -header="K: v"       Extra header, repeatable.
  -region=cn-north-1   Credential scope region.
  -service=cv          Credential scope service.
  -date=20060102T150405Z
                       Signs at a fixed time.
  -env=path            Environment file (default .env).
  -verbose             Prints the canonical request and string to sign.
`
}

func (c *SignCommand) Synopsis() string {
	return "Signs an API request."
}
