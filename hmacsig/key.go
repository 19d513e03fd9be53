package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DeriveSigningKey computes kSigning for the given secret, UTC date
// (YYYYMMDD), region and service:
//
//	kDate    = HMAC(secret, date)
//	kRegion  = HMAC(kDate, region)
//	kService = HMAC(kRegion, service)
//	kSigning = HMAC(kService, "request")
//
// The key is date scoped and is recomputed for every signature.
func DeriveSigningKey(secret, date, region, service string) []byte {
	kDate := hmacSHA256([]byte(secret), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)

	return hmacSHA256(kService, scopeTerminator)
}

func hmacSHA256(key []byte, data string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(data))

	return m.Sum(nil)
}

func hexHMAC(key []byte, data string) string {
	return hex.EncodeToString(hmacSHA256(key, data))
}

// hashHex returns the lowercase hex SHA-256 digest of b.
func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
