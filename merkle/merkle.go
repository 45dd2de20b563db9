// Package merkle reduces an ordered list of SHA-256 artifact hashes to a
// single root.
//
// The tree is order-sensitive and duplicates the last node of an odd layer
// (the Bitcoin convention) instead of promoting it. Roots are only
// comparable with systems that make the same choice.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
)

// EmptyRoot is the root of an empty artifact list, SHA-256 of no bytes.
var EmptyRoot = cryptoutils.SHA256Hex(nil)

// ComputeRoot returns the hex Merkle root over hashes, taken in the given order.
// Each element must be a hex SHA-256 digest; the first one that is not is
// reported as a *interfaces.MalformedHashError.
func ComputeRoot(hashes []string) (string, error) {
	if len(hashes) == 0 {
		return EmptyRoot, nil
	}

	layer := make([][]byte, len(hashes))
	for i, h := range hashes {
		leaf, err := cryptoutils.DecodeHash(h)
		if err != nil {
			return "", &interfaces.MalformedHashError{Index: i, Value: h}
		}
		layer[i] = leaf
	}

	for len(layer) > 1 {
		layer = nextLayer(layer)
	}

	return hex.EncodeToString(layer[0]), nil
}

// nextLayer hashes adjacent pairs left to right. An odd trailing node is paired with itself.
func nextLayer(layer [][]byte) [][]byte {
	next := make([][]byte, 0, (len(layer)+1)/2)
	for i := 0; i < len(layer); i += 2 {
		left := layer[i]
		right := left
		if i+1 < len(layer) {
			right = layer[i+1]
		}
		next = append(next, hashPair(left, right))
	}
	return next
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
