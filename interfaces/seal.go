package interfaces

import (
	"encoding/json"
	"fmt"
)

const (
	// SealVersion is the envelope format version written by the seal engine.
	SealVersion = "1.0"
	// SealAlgorithm names the digest algorithm used for every hash in the envelope.
	SealAlgorithm = "sha256"
)

// ArtifactRef references one immutable artifact by its content hash.
// Fields holds every other descriptive attribute exactly as supplied by the caller.
type ArtifactRef struct {
	SHA256 string
	Fields map[string]json.RawMessage
}

func (a ArtifactRef) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(a.Fields)+1)
	for k, v := range a.Fields {
		obj[k] = v
	}
	if a.SHA256 != "" {
		raw, err := json.Marshal(a.SHA256)
		if err != nil {
			return nil, err
		}
		obj["sha256"] = raw
	}
	return json.Marshal(obj)
}

func (a *ArtifactRef) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("artifact must be a JSON object: %w", err)
	}

	*a = ArtifactRef{}
	if raw, ok := obj["sha256"]; ok {
		if err := json.Unmarshal(raw, &a.SHA256); err != nil {
			return fmt.Errorf("artifact sha256 must be a string: %w", err)
		}
		delete(obj, "sha256")
	}
	if len(obj) > 0 {
		a.Fields = obj
	}
	return nil
}

// PackIndex is the digestable content of an evidence pack: caller metadata
// plus the ordered artifact list. It has no slot for a seal, so a seal can
// never be part of its own digest input.
type PackIndex struct {
	Metadata  map[string]json.RawMessage
	Artifacts []ArtifactRef
}

// SetMetadata stores v under key as JSON.
func (p *PackIndex) SetMetadata(key string, v any) error {
	if key == "artifacts" || key == "seal" {
		return fmt.Errorf("metadata key %q is reserved", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode metadata %q: %w", key, err)
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]json.RawMessage)
	}
	p.Metadata[key] = raw
	return nil
}

// ArtifactHashes returns the artifact hashes in pack order.
func (p PackIndex) ArtifactHashes() []string {
	hashes := make([]string, len(p.Artifacts))
	for i, a := range p.Artifacts {
		hashes[i] = a.SHA256
	}
	return hashes
}

// Clone returns a deep copy, so callers can mutate without touching the original.
func (p PackIndex) Clone() PackIndex {
	out := PackIndex{}
	if p.Metadata != nil {
		out.Metadata = make(map[string]json.RawMessage, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = append(json.RawMessage(nil), v...)
		}
	}
	if p.Artifacts != nil {
		out.Artifacts = make([]ArtifactRef, len(p.Artifacts))
		for i, a := range p.Artifacts {
			out.Artifacts[i].SHA256 = a.SHA256
			if a.Fields != nil {
				out.Artifacts[i].Fields = make(map[string]json.RawMessage, len(a.Fields))
				for k, v := range a.Fields {
					out.Artifacts[i].Fields[k] = append(json.RawMessage(nil), v...)
				}
			}
		}
	}
	return out
}

func (p PackIndex) object() (map[string]json.RawMessage, error) {
	obj := make(map[string]json.RawMessage, len(p.Metadata)+2)
	for k, v := range p.Metadata {
		if k == "artifacts" || k == "seal" {
			continue
		}
		obj[k] = v
	}

	artifacts := p.Artifacts
	if artifacts == nil {
		artifacts = []ArtifactRef{}
	}
	raw, err := json.Marshal(artifacts)
	if err != nil {
		return nil, err
	}
	obj["artifacts"] = raw
	return obj, nil
}

func (p PackIndex) MarshalJSON() ([]byte, error) {
	obj, err := p.object()
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func (p *PackIndex) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("pack index must be a JSON object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("pack index must be a JSON object")
	}

	*p = PackIndex{}
	if raw, ok := obj["artifacts"]; ok {
		if err := json.Unmarshal(raw, &p.Artifacts); err != nil {
			return fmt.Errorf("pack index artifacts must be an array of objects: %w", err)
		}
	}
	delete(obj, "artifacts")
	delete(obj, "seal")
	if len(obj) > 0 {
		p.Metadata = obj
	}
	return nil
}

// SealEnvelope is the tamper-evidence record attached to a pack index.
type SealEnvelope struct {
	SealVersion         string `json:"sealVersion"`
	Algorithm           string `json:"algorithm"`
	PackDigest          string `json:"packDigest"`
	ArtifactsMerkleRoot string `json:"artifactsMerkleRoot"`
	ArtifactCount       int    `json:"artifactCount"`
	SealedAt            string `json:"sealedAt"`
	HMACSignature       string `json:"hmacSignature,omitempty"`
	HMACKeyID           string `json:"hmacKeyId,omitempty"`
}

// Signed reports whether the envelope carries an HMAC signature.
func (s *SealEnvelope) Signed() bool {
	return s != nil && s.HMACSignature != ""
}

// SealedPack is a pack index together with its embedded seal, the shape
// that gets persisted and later re-verified.
type SealedPack struct {
	PackIndex
	Seal *SealEnvelope
}

func (s SealedPack) MarshalJSON() ([]byte, error) {
	obj, err := s.PackIndex.object()
	if err != nil {
		return nil, err
	}
	if s.Seal != nil {
		raw, err := json.Marshal(s.Seal)
		if err != nil {
			return nil, err
		}
		obj["seal"] = raw
	}
	return json.Marshal(obj)
}

func (s *SealedPack) UnmarshalJSON(data []byte) error {
	var pack PackIndex
	if err := json.Unmarshal(data, &pack); err != nil {
		return err
	}

	var withSeal struct {
		Seal *SealEnvelope `json:"seal"`
	}
	if err := json.Unmarshal(data, &withSeal); err != nil {
		return fmt.Errorf("invalid seal envelope: %w", err)
	}

	s.PackIndex = pack
	s.Seal = withSeal.Seal
	return nil
}

// SignatureStatus is the outcome of the HMAC sub-check. Besides pass and
// fail, a seal may be unsigned, or signed while no key is available.
type SignatureStatus int

const (
	SignatureUnsigned SignatureStatus = iota
	SignatureNoKey
	SignatureValid
	SignatureInvalid
)

func (s SignatureStatus) String() string {
	switch s {
	case SignatureUnsigned:
		return "unsigned"
	case SignatureNoKey:
		return "no-key"
	case SignatureValid:
		return "true"
	case SignatureInvalid:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as "unsigned", "no-key", true or false.
func (s SignatureStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case SignatureUnsigned:
		return []byte(`"unsigned"`), nil
	case SignatureNoKey:
		return []byte(`"no-key"`), nil
	case SignatureValid:
		return []byte(`true`), nil
	case SignatureInvalid:
		return []byte(`false`), nil
	default:
		return nil, fmt.Errorf("unknown signature status %d", int(s))
	}
}

func (s *SignatureStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"unsigned"`:
		*s = SignatureUnsigned
	case `"no-key"`:
		*s = SignatureNoKey
	case `true`:
		*s = SignatureValid
	case `false`:
		*s = SignatureInvalid
	default:
		return fmt.Errorf("invalid signature status %s", data)
	}
	return nil
}

// EvidenceState is where a pack sits in its evidentiary lifecycle.
type EvidenceState string

const (
	StateUnsealed              EvidenceState = "unsealed"
	StateVerifiedValid         EvidenceState = "verified-valid"
	StateVerifiedInvalid       EvidenceState = "verified-invalid"
	StateVerifiedIndeterminate EvidenceState = "verified-indeterminate"
)

// VerificationResult is the complete diagnostic of a seal verification.
// Every sub-check is reported even when the overall result is invalid.
type VerificationResult struct {
	Valid             bool            `json:"valid"`
	Sealed            bool            `json:"sealed"`
	DigestMatch       bool            `json:"digestMatch"`
	MerkleMatch       bool            `json:"merkleMatch"`
	SignatureVerified SignatureStatus `json:"signatureVerified"`
	Errors            []string        `json:"errors"`
}

// Outcome maps the result onto the pack lifecycle. A signature that could
// not be checked only makes the outcome indeterminate when nothing else failed.
func (r VerificationResult) Outcome() EvidenceState {
	switch {
	case !r.Sealed:
		return StateUnsealed
	case r.Valid:
		return StateVerifiedValid
	case r.DigestMatch && r.MerkleMatch && r.SignatureVerified == SignatureNoKey:
		return StateVerifiedIndeterminate
	default:
		return StateVerifiedInvalid
	}
}
