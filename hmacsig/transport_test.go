package hmacsig

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport(t *testing.T) {
	var gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := testVerifyConfig()
		cfg.MaxSkew = 0

		if err := Verify(r, cfg); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{
		Transport: NewTransport(nil, newTestSigner(t)),
		Timeout:   5 * time.Second,
	}

	t.Run("post with body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/?Action=CVProcess&Version=2022-08-31", strings.NewReader(`{"prompt":"cat"}`))
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"prompt":"cat"}`, gotBody)
		assert.Empty(t, req.Header.Get(HeaderAuthorization), "caller request must not be mutated")
	})

	t.Run("body without GetBody", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/", io.NopCloser(strings.NewReader(`{"prompt":"dog"}`)))
		require.NoError(t, err)
		require.Nil(t, req.GetBody)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"prompt":"dog"}`, gotBody)
	})

	t.Run("get without body", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestTransportNilSigner(t *testing.T) {
	tr := NewTransport(&http.Transport{}, nil)

	req := httptest.NewRequest(http.MethodGet, "http://api.local/", nil)
	_, err := tr.RoundTrip(req)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWrapTransport(t *testing.T) {
	var seen *http.Request

	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
	})

	req := httptest.NewRequest(http.MethodPost, testEndpoint, strings.NewReader(`{}`))

	resp, err := WrapTransport(next, newTestSigner(t)).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NotNil(t, seen)
	assert.NotSame(t, req, seen)
	assert.True(t, strings.HasPrefix(seen.Header.Get(HeaderAuthorization), Algorithm+" Credential="+testAccessKey+"/"))
	assert.Empty(t, req.Header.Get(HeaderAuthorization))
}
