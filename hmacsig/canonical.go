package hmacsig

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// ignoredHeaders are never covered by a signature, whatever the caller asks.
var ignoredHeaders = map[string]struct{}{
	"authorization":     {},
	"content-length":    {},
	"user-agent":        {},
	"presigned-expires": {},
	"expect":            {},
}

const upperhex = "0123456789ABCDEF"

type headerEntry struct {
	name  string
	value string
}

// headerSet holds request headers keyed by lowercase name. The name as first
// written by the caller is kept for output.
type headerSet map[string]headerEntry

func (h headerSet) set(name, value string) {
	h[strings.ToLower(name)] = headerEntry{name: name, value: value}
}

func (h headerSet) toMap() map[string]string {
	out := make(map[string]string, len(h))
	for _, e := range h {
		out[e.name] = e.value
	}

	return out
}

// selectHeaders returns the sorted lowercase names of the headers to sign.
// An empty mustSign selects every header. host and x-date are always
// required when mustSign is set.
func selectHeaders(h headerSet, mustSign []string) []string {
	var need map[string]struct{}
	if len(mustSign) > 0 {
		need = make(map[string]struct{}, len(mustSign)+2)
		for _, k := range mustSign {
			need[strings.ToLower(k)] = struct{}{}
		}

		need["host"] = struct{}{}
		need["x-date"] = struct{}{}
	}

	names := make([]string, 0, len(h))
	for k := range h {
		if need != nil {
			if _, ok := need[k]; !ok {
				continue
			}
		}

		if _, ok := ignoredHeaders[k]; ok {
			continue
		}

		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// canonicalHeaders renders one "name:value\n" line per signed header.
func canonicalHeaders(h headerSet, names []string) string {
	var b strings.Builder

	for _, k := range names {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(trimHeaderValue(h[k].value))
		b.WriteByte('\n')
	}

	return b.String()
}

// trimHeaderValue collapses whitespace runs to a single space and strips
// leading and trailing whitespace. Unlike unicode.IsSpace, the whitespace set
// includes U+FEFF and excludes U+0085.
func trimHeaderValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, isHeaderSpace), " ")
}

func isHeaderSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}

	return r >= '\u2000' && r <= '\u200a'
}

// CanonicalQuery escapes every key and value with the strict unreserved set,
// sorts the pairs by key and joins them with '&'. Pairs with an empty key are
// dropped.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "" {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(uriEscape(k))
		b.WriteByte('=')
		b.WriteString(uriEscape(params[k]))
	}

	return b.String()
}

// queryParams flattens a URL query to one value per key; the last value
// wins.
func queryParams(u *url.URL) map[string]string {
	values := u.Query()
	out := make(map[string]string, len(values))

	for k, v := range values {
		if len(v) == 0 {
			continue
		}

		out[k] = v[len(v)-1]
	}

	return out
}

// uriEscape percent-encodes every byte outside A-Z a-z 0-9 _ . ~ - using
// uppercase hex.
func uriEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '~', c == '-':
		return true
	}

	return false
}

// canonicalPath returns the escaped path, or "/" when the URL has none.
func canonicalPath(u *url.URL) string {
	if p := u.EscapedPath(); p != "" {
		return p
	}

	return "/"
}

// canonicalHost returns the URL authority as a browser would serialise it:
// internationalised names in punycode, lowercase, default ports dropped.
func canonicalHost(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			host = "[" + ip.String() + "]"
		}
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
		}

		host = ascii
	}

	port := u.Port()
	if port == "" || (u.Scheme == "https" && port == "443") || (u.Scheme == "http" && port == "80") {
		return host, nil
	}

	return host + ":" + port, nil
}

// parseURL accepts absolute http and https URLs only.
func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	return u, nil
}
