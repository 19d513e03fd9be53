package hmacsig

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// Scheme constants.
const (
	// Algorithm is the algorithm label in the string to sign and the
	// Authorization header.
	Algorithm = "HMAC-SHA256"

	// DefaultRegion is the region used when Config.Region is empty.
	DefaultRegion = "cn-north-1"

	// DefaultService is the service used when Config.Service is empty.
	DefaultService = "cv"

	// TimeFormat is the layout of the X-Date header.
	TimeFormat = "20060102T150405Z"

	scopeTerminator    = "request"
	defaultContentType = "application/json"
)

// Header names written by the signer.
const (
	HeaderHost          = "Host"
	HeaderDate          = "X-Date"
	HeaderContentSHA256 = "X-Content-Sha256"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
)

// DefaultSignedHeaders are the headers signed when Config.SignedHeaders is
// empty.
var DefaultSignedHeaders = []string{"host", "x-date", "x-content-sha256", "content-type"}

// Config configures a Signer.
type Config struct {
	// Credentials is the access key pair. Both fields are required.
	Credentials Credentials

	// Region is the credential scope region. Defaults to DefaultRegion.
	Region string

	// Service is the credential scope service. Defaults to DefaultService.
	Service string

	// SignedHeaders lists header names that must be covered by the
	// signature, in addition to host and x-date. Defaults to
	// DefaultSignedHeaders. Set to an empty non-nil slice to sign every
	// assembled header.
	SignedHeaders []string

	// Clock returns the signing time. Defaults to time.Now.
	Clock func() time.Time
}

// Request is the input of a signing operation.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Signature holds the result of a signing operation together with the
// intermediate strings, for diagnostics.
type Signature struct {
	XDate            string
	CredentialScope  string
	BodyHash         string
	SignedHeaders    string
	CanonicalRequest string
	StringToSign     string
	Signature        string
	Authorization    string

	// Headers is the full header set to send, Authorization included.
	Headers map[string]string
}

// Signer produces Authorization headers. It is immutable and safe for
// concurrent use.
type Signer struct {
	creds    Credentials
	region   string
	service  string
	mustSign []string
	clock    func() time.Time
}

// NewSigner validates cfg and returns a Signer. It returns
// ErrMissingCredentials when either credential field is empty.
func NewSigner(cfg Config) (*Signer, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	service := cfg.Service
	if service == "" {
		service = DefaultService
	}

	mustSign := cfg.SignedHeaders
	if mustSign == nil {
		mustSign = DefaultSignedHeaders
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Signer{
		creds:    cfg.Credentials,
		region:   region,
		service:  service,
		mustSign: append([]string(nil), mustSign...),
		clock:    clock,
	}, nil
}

// AccessKeyID returns the access key id used in the credential scope.
func (s *Signer) AccessKeyID() string { return s.creds.AccessKeyID }

// Region returns the credential scope region.
func (s *Signer) Region() string { return s.region }

// Service returns the credential scope service.
func (s *Signer) Service() string { return s.service }

// Sign returns the headers to send with req, Authorization included.
func (s *Signer) Sign(req Request) (map[string]string, error) {
	sig, err := s.Compute(req)
	if err != nil {
		return nil, err
	}

	return sig.Headers, nil
}

// Compute signs req and returns the signature with its intermediate values.
func (s *Signer) Compute(req Request) (*Signature, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}

	u, err := parseURL(req.URL)
	if err != nil {
		return nil, err
	}

	host, err := canonicalHost(u)
	if err != nil {
		return nil, err
	}

	xDate := s.clock().UTC().Format(TimeFormat)
	bodyHash := hashHex(req.Body)

	headers := make(headerSet, len(req.Headers)+4)
	headers.set(HeaderHost, host)
	headers.set(HeaderDate, xDate)
	headers.set(HeaderContentSHA256, bodyHash)
	headers.set(HeaderContentType, defaultContentType)

	for k, v := range req.Headers {
		headers.set(k, v)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	sig := computeSignature(signingInput{
		method:   method,
		path:     canonicalPath(u),
		query:    CanonicalQuery(queryParams(u)),
		headers:  headers,
		signed:   selectHeaders(headers, s.mustSign),
		bodyHash: bodyHash,
		xDate:    xDate,
		region:   s.region,
		service:  s.service,
	}, s.creds)

	out := headers.toMap()
	out[HeaderAuthorization] = sig.Authorization
	sig.Headers = out

	return sig, nil
}

// SignRequest signs r in place. The body is read and restored so that it can
// still be sent. Host is written to r.Host; every other header to r.Header.
func (s *Signer) SignRequest(r *http.Request) error {
	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	u := *r.URL
	if r.Host != "" {
		u.Host = r.Host
	}

	if u.Scheme == "" {
		u.Scheme = "http"
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		switch http.CanonicalHeaderKey(k) {
		case HeaderDate, HeaderContentSHA256, HeaderAuthorization, HeaderHost:
			continue
		}

		headers[k] = r.Header.Get(k)
	}

	headerOut, err := s.Sign(Request{
		Method:  r.Method,
		URL:     u.String(),
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return err
	}

	for k, v := range headerOut {
		if strings.EqualFold(k, HeaderHost) {
			r.Host = v
			continue
		}

		r.Header.Set(k, v)
	}

	return nil
}

// signingInput is everything the canonical request is built from.
type signingInput struct {
	method   string
	path     string
	query    string
	headers  headerSet
	signed   []string
	bodyHash string
	xDate    string
	region   string
	service  string
}

func computeSignature(in signingInput, creds Credentials) *Signature {
	date := in.xDate[:8]
	signedHeaders := strings.Join(in.signed, ";")

	canonicalRequest := strings.Join([]string{
		strings.ToUpper(in.method),
		in.path,
		in.query,
		canonicalHeaders(in.headers, in.signed),
		signedHeaders,
		in.bodyHash,
	}, "\n")

	scope := strings.Join([]string{date, in.region, in.service, scopeTerminator}, "/")

	stringToSign := strings.Join([]string{
		Algorithm,
		in.xDate,
		scope,
		hashHex([]byte(canonicalRequest)),
	}, "\n")

	key := DeriveSigningKey(creds.SecretAccessKey, date, in.region, in.service)
	signature := hexHMAC(key, stringToSign)

	return &Signature{
		XDate:            in.xDate,
		CredentialScope:  scope,
		BodyHash:         in.bodyHash,
		SignedHeaders:    signedHeaders,
		CanonicalRequest: canonicalRequest,
		StringToSign:     stringToSign,
		Signature:        signature,
		Authorization: Algorithm + " Credential=" + creds.AccessKeyID + "/" + scope +
			", SignedHeaders=" + signedHeaders + ", Signature=" + signature,
	}
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
