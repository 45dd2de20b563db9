package seal

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
)

// Canonicalize returns the RFC 8785 form of v's JSON encoding: object keys
// sorted recursively, array order kept, no insignificant whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("could not canonicalize value: %w", err)
	}
	return canonical, nil
}

// PackDigest returns the hex SHA-256 of the canonical JSON of pack.
// PackIndex carries no seal, so the digest never covers one.
func PackDigest(pack interfaces.PackIndex) (string, error) {
	canonical, err := Canonicalize(pack)
	if err != nil {
		return "", err
	}
	return cryptoutils.SHA256Hex(canonical), nil
}
