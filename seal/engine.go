package seal

import (
	"errors"
	"fmt"
	"time"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/ruteri/evidence-seal/merkle"
)

// Config configures an Engine.
type Config struct {
	// Keyring supplies the signing key and any retired verification keys.
	// Nil means seals are generated unsigned.
	Keyring *kms.Keyring
	// Now is the clock used for sealedAt. Defaults to time.Now.
	Now func() time.Time
}

// Engine generates and verifies seals. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	keyring *kms.Keyring
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{keyring: cfg.Keyring, now: now}
}

type callOptions struct {
	key      []byte
	hasKey   bool
	sealedAt *time.Time
}

// Option adjusts a single Generate or Verify call.
type Option func(*callOptions)

// WithHMACKey overrides the keyring for one call. An empty key forces
// the call to behave as if no key were configured.
func WithHMACKey(key []byte) Option {
	return func(o *callOptions) {
		o.key = key
		o.hasKey = true
	}
}

// WithSealedAt fixes the seal time instead of reading the engine clock.
func WithSealedAt(t time.Time) Option {
	return func(o *callOptions) {
		o.sealedAt = &t
	}
}

func collect(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (e *Engine) signingKey(o callOptions) ([]byte, bool) {
	if o.hasKey {
		return o.key, len(o.key) > 0
	}
	key, _, ok := e.keyring.Active()
	return key, ok
}

func (e *Engine) verificationKey(o callOptions, keyID string) ([]byte, bool) {
	if o.hasKey {
		return o.key, len(o.key) > 0
	}
	if key, ok := e.keyring.Lookup(keyID); ok {
		return key, true
	}
	key, _, ok := e.keyring.Active()
	return key, ok
}

// Generate computes a seal envelope for pack. The pack is not modified.
func (e *Engine) Generate(pack interfaces.PackIndex, opts ...Option) (*interfaces.SealEnvelope, error) {
	o := collect(opts)

	for i, a := range pack.Artifacts {
		if a.SHA256 == "" {
			return nil, &interfaces.MissingArtifactHashError{Index: i}
		}
	}

	digest, err := PackDigest(pack)
	if err != nil {
		return nil, err
	}

	root, err := merkle.ComputeRoot(pack.ArtifactHashes())
	if err != nil {
		return nil, err
	}

	sealedAt := e.now()
	if o.sealedAt != nil {
		sealedAt = *o.sealedAt
	}

	envelope := &interfaces.SealEnvelope{
		SealVersion:         interfaces.SealVersion,
		Algorithm:           interfaces.SealAlgorithm,
		PackDigest:          digest,
		ArtifactsMerkleRoot: root,
		ArtifactCount:       len(pack.Artifacts),
		SealedAt:            cryptoutils.FormatTimestamp(sealedAt),
	}

	if key, ok := e.signingKey(o); ok {
		envelope.HMACSignature = cryptoutils.HMACSHA256Hex(key, digest)
		envelope.HMACKeyID = cryptoutils.KeyID(key)
	}

	return envelope, nil
}

// SealPack returns a new SealedPack holding a copy of pack and a fresh seal.
// Any earlier seal is replaced, never amended.
func (e *Engine) SealPack(pack interfaces.PackIndex, opts ...Option) (interfaces.SealedPack, error) {
	envelope, err := e.Generate(pack, opts...)
	if err != nil {
		return interfaces.SealedPack{}, err
	}
	return interfaces.SealedPack{PackIndex: pack.Clone(), Seal: envelope}, nil
}

// Verify recomputes every check of the embedded seal and reports each one.
// It never fails: tampering and malformed content show up in the result.
func (e *Engine) Verify(pack interfaces.SealedPack, opts ...Option) interfaces.VerificationResult {
	o := collect(opts)

	result := interfaces.VerificationResult{
		SignatureVerified: interfaces.SignatureUnsigned,
		Errors:            []string{},
	}

	seal := pack.Seal
	if seal == nil {
		result.Errors = append(result.Errors, "no seal found")
		return result
	}
	result.Sealed = true

	digest, err := PackDigest(pack.PackIndex)
	switch {
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("could not compute pack digest: %v", err))
	case digest == seal.PackDigest:
		result.DigestMatch = true
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("pack digest mismatch: expected %s, got %s", seal.PackDigest, digest))
	}

	root, err := merkle.ComputeRoot(pack.ArtifactHashes())
	var malformed *interfaces.MalformedHashError
	switch {
	case errors.As(err, &malformed):
		result.Errors = append(result.Errors, fmt.Sprintf("merkle root mismatch: artifact %d has malformed sha256 %q", malformed.Index, malformed.Value))
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("merkle root mismatch: %v", err))
	case root == seal.ArtifactsMerkleRoot:
		result.MerkleMatch = true
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("merkle root mismatch: expected %s, got %s", seal.ArtifactsMerkleRoot, root))
	}

	switch key, ok := e.verificationKey(o, seal.HMACKeyID); {
	case !seal.Signed():
		result.SignatureVerified = interfaces.SignatureUnsigned
	case !ok:
		result.SignatureVerified = interfaces.SignatureNoKey
		result.Errors = append(result.Errors, "seal is signed but no HMAC key is available to verify it")
	case cryptoutils.EqualHex(cryptoutils.HMACSHA256Hex(key, seal.PackDigest), seal.HMACSignature):
		result.SignatureVerified = interfaces.SignatureValid
	default:
		result.SignatureVerified = interfaces.SignatureInvalid
		result.Errors = append(result.Errors, "HMAC signature mismatch")
	}

	sigOK := result.SignatureVerified == interfaces.SignatureValid || result.SignatureVerified == interfaces.SignatureUnsigned
	result.Valid = result.DigestMatch && result.MerkleMatch && sigOK
	return result
}
