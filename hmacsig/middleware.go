package hmacsig

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

type accessKeyContextKey struct{}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Verify VerifyConfig

	// Skip exempts requests from verification, e.g. health checks.
	Skip func(r *http.Request) bool

	// OnError writes the rejection. Defaults to a 401 with a
	// WWW-Authenticate challenge, or 400 for malformed headers.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// AccessKeyFromContext returns the access key id of a request that passed
// Middleware.
func AccessKeyFromContext(ctx context.Context) (string, bool) {
	ak, ok := ctx.Value(accessKeyContextKey{}).(string)
	return ak, ok
}

// Middleware verifies the Authorization header of every request and stores
// the signing access key id in the request context. It returns ErrNoResolver
// without a resolver.
func Middleware(cfg MiddlewareConfig) (mux.MiddlewareFunc, error) {
	if cfg.Verify.Resolver == nil {
		return nil, ErrNoResolver
	}

	verifyCfg, skip, onError := cfg.Verify, cfg.Skip, cfg.OnError
	if onError == nil {
		onError = rejectUnsigned
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip != nil && skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			if err := Verify(r, verifyCfg); err != nil {
				onError(w, r, err)
				return
			}

			// Verify succeeded, so the header parses.
			auth, _ := parseAuthorization(r.Header.Get(HeaderAuthorization))
			ctx := context.WithValue(r.Context(), accessKeyContextKey{}, auth.accessKeyID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func rejectUnsigned(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrMalformedHeader) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("WWW-Authenticate", Algorithm)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
