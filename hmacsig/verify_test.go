package hmacsig

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticResolver(secrets map[string]string) SecretResolver {
	return func(_ *http.Request, accessKeyID string) (string, error) {
		secret, ok := secrets[accessKeyID]
		if !ok {
			return "", errors.New("unknown access key")
		}

		return secret, nil
	}
}

func newSignedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	require.NoError(t, newTestSigner(t).SignRequest(r))

	return r
}

func testVerifyConfig() VerifyConfig {
	return VerifyConfig{
		Resolver: staticResolver(map[string]string{testAccessKey: testSecretKey}),
		Region:   DefaultRegion,
		Service:  DefaultService,
		Clock:    fixedClock,
		MaxSkew:  5 * time.Minute,
	}
}

func TestVerify(t *testing.T) {
	t.Run("valid signature", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodPost, testEndpoint, `{"prompt":"cat"}`)
		assert.NoError(t, Verify(r, testVerifyConfig()))
	})

	t.Run("valid without body", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/items?b=2&a=1", "")
		assert.NoError(t, Verify(r, testVerifyConfig()))
	})

	t.Run("no resolver", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		assert.ErrorIs(t, Verify(r, VerifyConfig{}), ErrNoResolver)
	})

	t.Run("missing authorization", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "http://api.local/", nil)
		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrSignatureNotFound)
	})

	t.Run("tampered body", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodPost, testEndpoint, `{"prompt":"cat"}`)
		r.Body = httptest.NewRequest(http.MethodPost, testEndpoint, strings.NewReader(`{"prompt":"dog"}`)).Body

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrDigestMismatch)
	})

	t.Run("tampered signed header", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodPost, testEndpoint, `{"prompt":"cat"}`)
		r.Header.Set("Content-Type", "text/plain")

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrSignatureInvalid)
	})

	t.Run("tampered query", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/items?a=1", "")
		r.URL.RawQuery = "a=2"

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrSignatureInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.Resolver = staticResolver(map[string]string{testAccessKey: "other"})

		assert.ErrorIs(t, Verify(r, cfg), ErrSignatureInvalid)
	})

	t.Run("resolver error propagated", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.Resolver = staticResolver(nil)

		err := Verify(r, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown access key")
	})

	t.Run("region mismatch", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.Region = "cn-beijing"

		assert.ErrorIs(t, Verify(r, cfg), ErrSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.Clock = func() time.Time { return fixedClock().Add(time.Hour) }

		assert.ErrorIs(t, Verify(r, cfg), ErrSignatureExpired)
	})

	t.Run("skew check disabled", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.MaxSkew = 0
		cfg.Clock = func() time.Time { return fixedClock().Add(24 * time.Hour) }

		assert.NoError(t, Verify(r, cfg))
	})

	t.Run("required header not signed", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		cfg := testVerifyConfig()
		cfg.RequiredHeaders = []string{"X-Request-Id"}

		assert.ErrorIs(t, Verify(r, cfg), ErrMissingHeader)
	})

	t.Run("x-date changed", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		r.Header.Set(HeaderDate, "20240102T030406Z")

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrSignatureInvalid)
	})

	t.Run("x-date outside scope", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		r.Header.Set(HeaderDate, "20240103T030405Z")

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrMalformedHeader)
	})

	t.Run("malformed x-date", func(t *testing.T) {
		r := newSignedRequest(t, http.MethodGet, "http://api.local/", "")
		r.Header.Set(HeaderDate, "yesterday")

		assert.ErrorIs(t, Verify(r, testVerifyConfig()), ErrMalformedHeader)
	})
}

func TestParseAuthorization(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		auth, err := parseAuthorization("HMAC-SHA256 Credential=AK/20240102/cn-north-1/cv/request, SignedHeaders=host;x-date, Signature=abc")
		require.NoError(t, err)

		assert.Equal(t, "AK", auth.accessKeyID)
		assert.Equal(t, "20240102", auth.date)
		assert.Equal(t, "cn-north-1", auth.region)
		assert.Equal(t, "cv", auth.service)
		assert.Equal(t, []string{"host", "x-date"}, auth.signedHeaders)
		assert.Equal(t, "abc", auth.signature)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{name: "other algorithm", raw: "AWS4-HMAC-SHA256 Credential=AK/20240102/cn-north-1/cv/request, SignedHeaders=host, Signature=abc"},
		{name: "short scope", raw: "HMAC-SHA256 Credential=AK/20240102/cv/request, SignedHeaders=host, Signature=abc"},
		{name: "wrong terminator", raw: "HMAC-SHA256 Credential=AK/20240102/cn-north-1/cv/aws4_request, SignedHeaders=host, Signature=abc"},
		{name: "no signature", raw: "HMAC-SHA256 Credential=AK/20240102/cn-north-1/cv/request, SignedHeaders=host"},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAuthorization(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}
