// Package interfaces defines the shared types and interfaces of the evidence
// sealing system, separating them from their implementations.
//
// # Evidence Types
//
// PackIndex: caller metadata plus an ordered artifact hash list. It has no
// seal slot, which makes the self-exclusion of a seal from its own digest a
// property of the type rather than a runtime strip.
//
// SealedPack: a PackIndex with its embedded SealEnvelope. Its JSON form is a
// single object, {...metadata, "artifacts": [...], "seal": {...}}.
//
// SealEnvelope: pack digest, artifacts Merkle root, artifact count, seal
// time and an optional HMAC signature with its key identifier.
//
// VerificationResult: the full diagnostic of a verification, including the
// three-way signature status (unsigned, no-key, true/false).
//
// # Vote Audit Types
//
// VoteMetadata and ChainEntry describe one cast ballot and its link in the
// per-session audit hash chain. AuditLedger is the persistence contract that
// owns chain serialization.
//
// # Storage Interfaces
//
// StorageBackend: content-addressed storage for sealed packs and audit
// snapshots across file, S3, IPFS and Vault backends.
//
// StorageBackendFactory: creates storage backends from URI strings and
// multi-backend configurations for redundant storage.
package interfaces
