package hmacsig

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Environment variables and request headers carrying credentials.
const (
	EnvAccessKeyID     = "ACCESS_KEY_ID"
	EnvSecretAccessKey = "SECRET_ACCESS_KEY"

	HeaderAccessKeyID     = "X-Access-Key-Id"
	HeaderSecretAccessKey = "X-Secret-Access-Key"
)

// redactPrefix is the number of leading characters Redact keeps.
const redactPrefix = 4

// Credentials is a symmetric access key pair. The secret is never included
// in String or GoString output.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// NewCredentials returns a Credentials value with both fields cleaned by
// CleanCredential.
func NewCredentials(accessKeyID, secretAccessKey string) Credentials {
	return Credentials{
		AccessKeyID:     CleanCredential(accessKeyID),
		SecretAccessKey: CleanCredential(secretAccessKey),
	}
}

// CredentialsFromEnv reads ACCESS_KEY_ID and SECRET_ACCESS_KEY.
func CredentialsFromEnv() Credentials {
	return NewCredentials(os.Getenv(EnvAccessKeyID), os.Getenv(EnvSecretAccessKey))
}

// CredentialsFromHeader reads the per-request override headers. The second
// return value is false unless both headers are present and non-empty.
func CredentialsFromHeader(h http.Header) (Credentials, bool) {
	c := NewCredentials(h.Get(HeaderAccessKeyID), h.Get(HeaderSecretAccessKey))
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return Credentials{}, false
	}

	return c, true
}

// CleanCredential trims surrounding whitespace and strips a leading and a
// trailing quote character, as left behind by shell or .env quoting.
func CleanCredential(s string) string {
	s = strings.TrimSpace(s)

	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}

	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}

	return s
}

// Validate returns ErrMissingCredentials when either field is empty.
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return ErrMissingCredentials
	}

	return nil
}

// IsZero reports whether both fields are empty.
func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// String returns a redacted representation safe for logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID: %s, SecretAccessKey: %s}",
		Redact(c.AccessKeyID), Redact(c.SecretAccessKey))
}

// GoString keeps %#v from printing the secret.
func (c Credentials) GoString() string {
	return c.String()
}

// Redact returns the first four characters of s followed by its length.
// Values no longer than the prefix are reduced to their length.
func Redact(s string) string {
	if s == "" {
		return "<empty>"
	}

	r := []rune(s)
	if len(r) <= redactPrefix {
		return fmt.Sprintf("***(len=%d)", len(s))
	}

	return fmt.Sprintf("%s***(len=%d)", string(r[:redactPrefix]), len(s))
}

// Prefix returns the first four characters of s, used by diagnostics that
// expose only a key prefix.
func Prefix(s string) string {
	if r := []rune(s); len(r) > redactPrefix {
		return string(r[:redactPrefix])
	}

	return s
}
