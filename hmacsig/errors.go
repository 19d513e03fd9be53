package hmacsig

import (
	"errors"
	"fmt"
)

// ErrSigning is the root of every error returned while producing a
// signature. Use errors.Is(err, ErrSigning) to detect signing failures.
var ErrSigning = errors.New("hmacsig: signing failed")

// Signing errors.
var (
	// ErrMissingCredentials is returned when the access key id or the secret
	// access key is empty.
	ErrMissingCredentials = fmt.Errorf("%w: access key id and secret access key must not be empty", ErrSigning)

	// ErrMalformedURL is returned when the request URL cannot be parsed or
	// has no host.
	ErrMalformedURL = fmt.Errorf("%w: malformed request url", ErrSigning)
)

// Verification errors.
var (
	// ErrNoResolver is returned when VerifyConfig has no Resolver configured.
	ErrNoResolver = errors.New("hmacsig: secret resolver must not be nil")

	// ErrSignatureNotFound is returned when the request carries no
	// Authorization header.
	ErrSignatureNotFound = errors.New("hmacsig: signature not found")

	// ErrMalformedHeader is returned when the Authorization or X-Date header
	// cannot be parsed.
	ErrMalformedHeader = errors.New("hmacsig: malformed signature header")

	// ErrSignatureInvalid is returned when the recomputed signature does not
	// match the one presented.
	ErrSignatureInvalid = errors.New("hmacsig: signature verification failed")

	// ErrSignatureExpired is returned when X-Date is outside the allowed
	// clock skew.
	ErrSignatureExpired = errors.New("hmacsig: signature expired")

	// ErrMissingHeader is returned when a required header is not covered by
	// the signature.
	ErrMissingHeader = errors.New("hmacsig: required header missing from signature")

	// ErrDigestMismatch is returned when X-Content-Sha256 does not match the
	// request body.
	ErrDigestMismatch = errors.New("hmacsig: content digest mismatch")
)
