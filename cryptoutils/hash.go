package cryptoutils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 UTC form with millisecond precision used
// for every timestamp that enters a hash.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256HexString is SHA256Hex over the UTF-8 bytes of s.
func SHA256HexString(s string) string {
	return SHA256Hex([]byte(s))
}

// HMACSHA256Hex computes hex HMAC-SHA256 of message under key.
func HMACSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// KeyID identifies a symmetric key without revealing it: the last 8 hex
// characters of the hex SHA-256 of the key.
func KeyID(key []byte) string {
	digest := SHA256Hex(key)
	return digest[len(digest)-8:]
}

// EqualHex compares two hex strings byte for byte in constant time with
// respect to their content. Case is significant: every hash this module
// produces is lowercase, so an upper-cased value is a different value.
func EqualHex(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// DecodeHash decodes a hex SHA-256 digest, rejecting anything that is not
// exactly 32 bytes of hex.
func DecodeHash(h string) ([]byte, error) {
	if len(h) != 2*sha256.Size {
		return nil, fmt.Errorf("expected %d hex characters, got %d", 2*sha256.Size, len(h))
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return raw, nil
}

// IsHash reports whether h is a hex-encoded SHA-256 digest.
func IsHash(h string) bool {
	_, err := DecodeHash(h)
	return err == nil
}

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// RandomHex returns n random bytes as lowercase hex.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
