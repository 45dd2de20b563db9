package cryptoutils

import (
	"errors"

	"golang.org/x/crypto/argon2"
)

// SealKeyLength is the size of keys produced by DeriveSealKey.
const SealKeyLength = 32

// DeriveSealKey stretches an operator passphrase into an HMAC seal key with
// Argon2id. The same passphrase and context always yield the same key, so a
// key can be re-derived on any host instead of being copied around.
//
// Parameters:
//   - passphrase: operator secret, at least 12 bytes
//   - context: non-secret deployment label mixed into the salt (e.g. "prod-finance")
func DeriveSealKey(passphrase []byte, context string) ([]byte, error) {
	if len(passphrase) < 12 {
		return nil, errors.New("passphrase must be at least 12 bytes")
	}
	if context == "" {
		return nil, errors.New("key derivation context is required")
	}

	salt := append([]byte("EVIDENCE-SEAL-KEY-"), []byte(context)...)

	// Parameters: time=1, memory=64*1024, threads=4, keyLen=32
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, SealKeyLength), nil
}
