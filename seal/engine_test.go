package seal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/ruteri/evidence-seal/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hashA    = strings.Repeat("aa", 32)
	hashB    = strings.Repeat("bb", 32)
	fixedAt  = time.Date(2026, 1, 15, 10, 30, 0, 123_000_000, time.UTC)
	testKey  = []byte("evidence-test-key-0001")
	otherKey = []byte("evidence-test-key-0002")
)

func reconPack(t *testing.T) interfaces.PackIndex {
	var pack interfaces.PackIndex
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "recon-2026-01",
		"artifacts": [{"sha256": "`+hashA+`"}, {"sha256": "`+hashB+`", "name": "ledger.csv"}]
	}`), &pack))
	return pack
}

func fixedEngine(ring *kms.Keyring) *Engine {
	return NewEngine(Config{Keyring: ring, Now: func() time.Time { return fixedAt }})
}

func TestGenerate_UnsignedEndToEnd(t *testing.T) {
	engine := fixedEngine(nil)
	pack := reconPack(t)

	envelope, err := engine.Generate(pack)
	require.NoError(t, err)

	assert.Equal(t, "1.0", envelope.SealVersion)
	assert.Equal(t, "sha256", envelope.Algorithm)
	assert.Equal(t, 2, envelope.ArtifactCount)
	assert.Equal(t, "2026-01-15T10:30:00.123Z", envelope.SealedAt)
	assert.Empty(t, envelope.HMACSignature)
	assert.Empty(t, envelope.HMACKeyID)

	root, err := merkle.ComputeRoot([]string{hashA, hashB})
	require.NoError(t, err)
	assert.Equal(t, root, envelope.ArtifactsMerkleRoot)

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hmacSignature")

	result := engine.Verify(interfaces.SealedPack{PackIndex: pack, Seal: envelope})
	assert.True(t, result.Valid)
	assert.True(t, result.DigestMatch)
	assert.True(t, result.MerkleMatch)
	assert.Equal(t, interfaces.SignatureUnsigned, result.SignatureVerified)
	assert.Empty(t, result.Errors)
	assert.Equal(t, interfaces.StateVerifiedValid, result.Outcome())
}

func TestGenerate_DigestIsCanonical(t *testing.T) {
	var a, b interfaces.PackIndex
	require.NoError(t, json.Unmarshal([]byte(`{"b":{"y":1,"x":[3,1]},"a":"v","artifacts":[]}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"artifacts":[],"a":"v","b":{"x":[3,1],"y":1}}`), &b))

	da, err := PackDigest(a)
	require.NoError(t, err)
	db, err := PackDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	canonical, err := Canonicalize(a)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"v","artifacts":[],"b":{"x":[3,1],"y":1}}`, string(canonical))
	assert.Equal(t, cryptoutils.SHA256Hex(canonical), da)
}

func TestGenerate_ExistingSealIsExcluded(t *testing.T) {
	engine := fixedEngine(nil)
	pack := reconPack(t)

	first, err := engine.SealPack(pack)
	require.NoError(t, err)

	raw, err := json.Marshal(first)
	require.NoError(t, err)

	var reparsed interfaces.PackIndex
	require.NoError(t, json.Unmarshal(raw, &reparsed))

	second, err := engine.Generate(reparsed)
	require.NoError(t, err)
	assert.Equal(t, first.Seal.PackDigest, second.PackDigest)
}

func TestGenerate_Deterministic(t *testing.T) {
	engine := NewEngine(Config{})
	pack := reconPack(t)

	a, err := engine.Generate(pack, WithSealedAt(fixedAt), WithHMACKey(testKey))
	require.NoError(t, err)
	b, err := engine.Generate(pack, WithSealedAt(fixedAt), WithHMACKey(testKey))
	require.NoError(t, err)

	ra, err := json.Marshal(a)
	require.NoError(t, err)
	rb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ra), string(rb))
}

func TestGenerate_KeyIndependence(t *testing.T) {
	engine := fixedEngine(nil)
	pack := reconPack(t)

	unsigned, err := engine.Generate(pack)
	require.NoError(t, err)
	signed, err := engine.Generate(pack, WithHMACKey(testKey))
	require.NoError(t, err)

	assert.Equal(t, unsigned.PackDigest, signed.PackDigest)
	assert.Equal(t, unsigned.ArtifactsMerkleRoot, signed.ArtifactsMerkleRoot)
	assert.Equal(t, cryptoutils.HMACSHA256Hex(testKey, signed.PackDigest), signed.HMACSignature)
	assert.Equal(t, cryptoutils.KeyID(testKey), signed.HMACKeyID)
	assert.Len(t, signed.HMACKeyID, 8)
}

func TestGenerate_UsesKeyringActiveKey(t *testing.T) {
	engine := fixedEngine(kms.NewKeyring(testKey))
	envelope, err := engine.Generate(reconPack(t))
	require.NoError(t, err)
	assert.Equal(t, cryptoutils.KeyID(testKey), envelope.HMACKeyID)

	// an empty per-call key overrides the keyring
	envelope, err = engine.Generate(reconPack(t), WithHMACKey(nil))
	require.NoError(t, err)
	assert.False(t, envelope.Signed())
}

func TestGenerate_InputErrors(t *testing.T) {
	engine := fixedEngine(nil)

	var missing interfaces.PackIndex
	require.NoError(t, json.Unmarshal([]byte(`{"artifacts":[{"sha256":"`+hashA+`"},{"name":"x"}]}`), &missing))
	_, err := engine.Generate(missing)
	var missingErr *interfaces.MissingArtifactHashError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, 1, missingErr.Index)

	malformed := interfaces.PackIndex{Artifacts: []interfaces.ArtifactRef{{SHA256: "zz"}}}
	_, err = engine.Generate(malformed)
	var malformedErr *interfaces.MalformedHashError
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, 0, malformedErr.Index)
}

func TestGenerate_EmptyArtifacts(t *testing.T) {
	envelope, err := fixedEngine(nil).Generate(interfaces.PackIndex{})
	require.NoError(t, err)
	assert.Equal(t, 0, envelope.ArtifactCount)
	assert.Equal(t, merkle.EmptyRoot, envelope.ArtifactsMerkleRoot)
}

func TestVerify_NoSeal(t *testing.T) {
	result := fixedEngine(nil).Verify(interfaces.SealedPack{PackIndex: reconPack(t)})
	assert.False(t, result.Valid)
	assert.False(t, result.Sealed)
	assert.False(t, result.DigestMatch)
	assert.False(t, result.MerkleMatch)
	assert.Equal(t, interfaces.SignatureUnsigned, result.SignatureVerified)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no seal")
	assert.Equal(t, interfaces.StateUnsealed, result.Outcome())
}

func TestVerify_Tampering(t *testing.T) {
	engine := fixedEngine(kms.NewKeyring(testKey))

	tests := []struct {
		name         string
		mutate       func(p *interfaces.SealedPack)
		digestMatch  bool
		merkleMatch  bool
		signature    interfaces.SignatureStatus
		errorMention string
	}{
		{
			name: "metadata edit",
			mutate: func(p *interfaces.SealedPack) {
				p.Metadata["title"] = json.RawMessage(`"recon-2026-02"`)
			},
			merkleMatch:  true,
			signature:    interfaces.SignatureValid,
			errorMention: "pack digest mismatch",
		},
		{
			name: "artifact order swap",
			mutate: func(p *interfaces.SealedPack) {
				p.Artifacts[0], p.Artifacts[1] = p.Artifacts[1], p.Artifacts[0]
			},
			signature:    interfaces.SignatureValid,
			errorMention: "merkle root mismatch",
		},
		{
			name: "artifact hash replaced",
			mutate: func(p *interfaces.SealedPack) {
				p.Artifacts[1].SHA256 = strings.Repeat("cc", 32)
			},
			signature:    interfaces.SignatureValid,
			errorMention: "expected",
		},
		{
			name: "artifact appended",
			mutate: func(p *interfaces.SealedPack) {
				p.Artifacts = append(p.Artifacts, interfaces.ArtifactRef{SHA256: strings.Repeat("cc", 32)})
			},
			signature:    interfaces.SignatureValid,
			errorMention: "merkle root mismatch",
		},
		{
			name: "artifact removed",
			mutate: func(p *interfaces.SealedPack) {
				p.Artifacts = p.Artifacts[:1]
			},
			signature:    interfaces.SignatureValid,
			errorMention: "merkle root mismatch",
		},
		{
			name: "malformed artifact hash",
			mutate: func(p *interfaces.SealedPack) {
				p.Artifacts[1].SHA256 = "not-a-hash"
			},
			signature:    interfaces.SignatureValid,
			errorMention: "malformed",
		},
		{
			name: "forged signature",
			mutate: func(p *interfaces.SealedPack) {
				p.Seal.HMACSignature = cryptoutils.HMACSHA256Hex(otherKey, p.Seal.PackDigest)
			},
			digestMatch:  true,
			merkleMatch:  true,
			signature:    interfaces.SignatureInvalid,
			errorMention: "HMAC signature mismatch",
		},
		{
			name: "upper-cased signature",
			mutate: func(p *interfaces.SealedPack) {
				p.Seal.HMACSignature = strings.ToUpper(p.Seal.HMACSignature)
			},
			digestMatch:  true,
			merkleMatch:  true,
			signature:    interfaces.SignatureInvalid,
			errorMention: "HMAC signature mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := engine.SealPack(reconPack(t))
			require.NoError(t, err)

			tt.mutate(&sealed)
			result := engine.Verify(sealed)

			assert.False(t, result.Valid)
			assert.True(t, result.Sealed)
			assert.Equal(t, tt.digestMatch, result.DigestMatch)
			assert.Equal(t, tt.merkleMatch, result.MerkleMatch)
			assert.Equal(t, tt.signature, result.SignatureVerified)
			assert.Contains(t, strings.Join(result.Errors, "\n"), tt.errorMention)
			assert.Equal(t, interfaces.StateVerifiedInvalid, result.Outcome())
		})
	}
}

func TestVerify_NoKeyIsIndeterminate(t *testing.T) {
	signer := fixedEngine(kms.NewKeyring(testKey))
	sealed, err := signer.SealPack(reconPack(t))
	require.NoError(t, err)

	result := fixedEngine(nil).Verify(sealed)
	assert.False(t, result.Valid)
	assert.True(t, result.DigestMatch)
	assert.True(t, result.MerkleMatch)
	assert.Equal(t, interfaces.SignatureNoKey, result.SignatureVerified)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, interfaces.StateVerifiedIndeterminate, result.Outcome())

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"signatureVerified":"no-key"`)
}

func TestVerify_RetiredKeyLookup(t *testing.T) {
	sealed, err := fixedEngine(kms.NewKeyring(testKey)).SealPack(reconPack(t))
	require.NoError(t, err)

	rotated := fixedEngine(kms.NewKeyring(otherKey, testKey))
	result := rotated.Verify(sealed)
	assert.True(t, result.Valid)
	assert.Equal(t, interfaces.SignatureValid, result.SignatureVerified)

	// a per-call key wins over the keyring
	result = rotated.Verify(sealed, WithHMACKey(otherKey))
	assert.False(t, result.Valid)
	assert.Equal(t, interfaces.SignatureInvalid, result.SignatureVerified)
}

func TestVerify_DoesNotMutate(t *testing.T) {
	engine := fixedEngine(kms.NewKeyring(testKey))
	sealed, err := engine.SealPack(reconPack(t))
	require.NoError(t, err)

	before, err := json.Marshal(sealed)
	require.NoError(t, err)
	engine.Verify(sealed)
	after, err := json.Marshal(sealed)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestVerify_RoundTripThroughJSON(t *testing.T) {
	engine := fixedEngine(kms.NewKeyring(testKey))
	sealed, err := engine.SealPack(reconPack(t))
	require.NoError(t, err)

	raw, err := json.MarshalIndent(sealed, "", "  ")
	require.NoError(t, err)

	var stored interfaces.SealedPack
	require.NoError(t, json.Unmarshal(raw, &stored))

	result := engine.Verify(stored)
	assert.True(t, result.Valid, result.Errors)
	assert.Equal(t, interfaces.SignatureValid, result.SignatureVerified)
}

func TestSealPack_DoesNotAlias(t *testing.T) {
	engine := fixedEngine(nil)
	pack := reconPack(t)

	sealed, err := engine.SealPack(pack)
	require.NoError(t, err)

	pack.Artifacts[0].SHA256 = strings.Repeat("dd", 32)
	assert.Equal(t, hashA, sealed.Artifacts[0].SHA256)
	assert.True(t, engine.Verify(sealed).Valid)
}
