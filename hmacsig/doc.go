// Package hmacsig implements the HMAC-SHA256 request signing scheme used by
// the Volcengine OpenAPI gateway. The scheme is a close relative of AWS
// Signature Version 4: a canonical request is hashed, bound to a credential
// scope of date/region/service/request and signed with a key derived through a
// chain of four HMAC operations.
//
// # Signing Requests
//
// Create a Signer once and reuse it; it holds no per-request state and is safe
// for concurrent use:
//
//	signer, err := hmacsig.NewSigner(hmacsig.Config{
//	    Credentials: hmacsig.NewCredentials(accessKeyID, secretAccessKey),
//	    Region:      "cn-north-1",
//	    Service:     "cv",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	headers, err := signer.Sign(hmacsig.Request{
//	    Method: http.MethodPost,
//	    URL:    "https://visual.volcengineapi.com/?Action=CVProcess&Version=2022-08-31",
//	    Body:   body,
//	})
//
// The returned headers contain Host, X-Date, X-Content-Sha256, Content-Type,
// any caller supplied headers and the computed Authorization header.
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that signs every outgoing request:
//
//	client := &http.Client{
//	    Transport: hmacsig.NewTransport(nil, signer),
//	}
//
// # Verifying Requests
//
// Verify recomputes the signature of an incoming request. Middleware wraps it
// for use with a gorilla/mux router:
//
//	mw, err := hmacsig.Middleware(hmacsig.MiddlewareConfig{
//	    Verify: hmacsig.VerifyConfig{
//	        Resolver: func(_ *http.Request, accessKeyID string) (string, error) {
//	            return secrets[accessKeyID], nil
//	        },
//	        MaxSkew: 15 * time.Minute,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
package hmacsig
