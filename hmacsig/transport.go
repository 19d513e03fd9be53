package hmacsig

import (
	"bytes"
	"io"
	"net/http"
)

// Transport signs each request with a Signer before handing it to the
// wrapped round tripper.
type Transport struct {
	next   http.RoundTripper
	signer *Signer
}

// NewTransport wraps base, or a private clone of http.DefaultTransport when
// base is nil.
func NewTransport(base *http.Transport, signer *Signer) *Transport {
	if base == nil {
		return WrapTransport(nil, signer)
	}

	return WrapTransport(base, signer)
}

// WrapTransport signs requests before passing them to next, which may be any
// round tripper. A nil next means a private clone of http.DefaultTransport.
func WrapTransport(next http.RoundTripper, signer *Signer) *Transport {
	if next == nil {
		next = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{next: next, signer: signer}
}

// RoundTrip leaves req untouched: the signed headers go on a clone. A body
// without GetBody is buffered once and shared by the signer and the clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.signer == nil {
		return nil, ErrMissingCredentials
	}

	out := req.Clone(req.Context())

	switch {
	case req.Body == nil || req.Body == http.NoBody:
	case req.GetBody != nil:
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		out.Body = body
	default:
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}

		out.Body = io.NopCloser(bytes.NewReader(data))
	}

	if err := t.signer.SignRequest(out); err != nil {
		return nil, err
	}

	return t.next.RoundTrip(out)
}
