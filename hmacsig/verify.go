package hmacsig

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SecretResolver returns the secret access key for an access key id. The
// request is provided for context.
type SecretResolver func(r *http.Request, accessKeyID string) (string, error)

// VerifyConfig configures request signature verification.
type VerifyConfig struct {
	// Resolver looks up the secret for an access key id. Required.
	Resolver SecretResolver

	// Region and Service, when set, must match the credential scope.
	Region  string
	Service string

	// RequiredHeaders lists headers that must be covered by the signature.
	// host and x-date are always required.
	RequiredHeaders []string

	// MaxSkew is the maximum distance between X-Date and the current time.
	// Zero disables the check.
	MaxSkew time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// authorization is a parsed Authorization header.
type authorization struct {
	accessKeyID   string
	date          string
	region        string
	service       string
	signedHeaders []string
	signature     string
}

// Verify recomputes the signature of r and compares it with the one in the
// Authorization header. The body is read and restored.
func Verify(r *http.Request, cfg VerifyConfig) error {
	if cfg.Resolver == nil {
		return ErrNoResolver
	}

	raw := r.Header.Get(HeaderAuthorization)
	if raw == "" {
		return ErrSignatureNotFound
	}

	auth, err := parseAuthorization(raw)
	if err != nil {
		return err
	}

	if cfg.Region != "" && auth.region != cfg.Region {
		return fmt.Errorf("%w: region %q", ErrSignatureInvalid, auth.region)
	}

	if cfg.Service != "" && auth.service != cfg.Service {
		return fmt.Errorf("%w: service %q", ErrSignatureInvalid, auth.service)
	}

	for _, h := range append([]string{"host", "x-date"}, cfg.RequiredHeaders...) {
		if !containsFold(auth.signedHeaders, h) {
			return fmt.Errorf("%w: %s", ErrMissingHeader, strings.ToLower(h))
		}
	}

	xDate := r.Header.Get(HeaderDate)
	ts, err := time.Parse(TimeFormat, xDate)
	if err != nil {
		return fmt.Errorf("%w: invalid X-Date", ErrMalformedHeader)
	}

	if xDate[:8] != auth.date {
		return fmt.Errorf("%w: X-Date does not match credential scope", ErrMalformedHeader)
	}

	if cfg.MaxSkew > 0 {
		clock := cfg.Clock
		if clock == nil {
			clock = time.Now
		}

		skew := clock().Sub(ts)
		if skew < -cfg.MaxSkew || skew > cfg.MaxSkew {
			return ErrSignatureExpired
		}
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	bodyHash := hashHex(body)
	if claimed := r.Header.Get(HeaderContentSHA256); claimed != "" && claimed != bodyHash {
		return ErrDigestMismatch
	}

	secret, err := cfg.Resolver(r, auth.accessKeyID)
	if err != nil {
		return err
	}

	headers := make(headerSet, len(auth.signedHeaders))
	for _, name := range auth.signedHeaders {
		if name == "host" {
			headers.set(name, r.Host)
			continue
		}

		headers.set(name, strings.Join(r.Header.Values(name), ","))
	}

	sig := computeSignature(signingInput{
		method:   r.Method,
		path:     canonicalPath(r.URL),
		query:    CanonicalQuery(queryParams(r.URL)),
		headers:  headers,
		signed:   auth.signedHeaders,
		bodyHash: bodyHash,
		xDate:    xDate,
		region:   auth.region,
		service:  auth.service,
	}, Credentials{AccessKeyID: auth.accessKeyID, SecretAccessKey: secret})

	if subtle.ConstantTimeCompare([]byte(sig.Signature), []byte(auth.signature)) != 1 {
		return ErrSignatureInvalid
	}

	return nil
}

// parseAuthorization parses
// "HMAC-SHA256 Credential=<ak>/<scope>, SignedHeaders=<h1;h2>, Signature=<hex>".
func parseAuthorization(raw string) (authorization, error) {
	var auth authorization

	rest, ok := strings.CutPrefix(raw, Algorithm+" ")
	if !ok {
		return auth, fmt.Errorf("%w: unsupported algorithm", ErrMalformedHeader)
	}

	for part := range strings.SplitSeq(rest, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch key {
		case "Credential":
			fields := strings.Split(value, "/")
			if len(fields) < 5 || fields[len(fields)-1] != scopeTerminator {
				return auth, fmt.Errorf("%w: invalid credential scope", ErrMalformedHeader)
			}

			n := len(fields)
			auth.accessKeyID = strings.Join(fields[:n-4], "/")
			auth.date = fields[n-4]
			auth.region = fields[n-3]
			auth.service = fields[n-2]

		case "SignedHeaders":
			auth.signedHeaders = strings.Split(value, ";")

		case "Signature":
			auth.signature = value
		}
	}

	if auth.accessKeyID == "" || len(auth.signedHeaders) == 0 || auth.signature == "" {
		return auth, fmt.Errorf("%w: incomplete authorization", ErrMalformedHeader)
	}

	return auth, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}
