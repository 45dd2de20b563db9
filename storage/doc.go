// Package storage keeps sealed evidence packs and audit snapshots in
// content-addressed storage with pluggable backends:
//
//   - File system storage for local deployments and tests
//   - S3-compatible object storage
//   - IPFS, through the node's mutable file system
//   - HashiCorp Vault KV v2, for evidence that must stay access-controlled
//
// # Storage URI Format
//
// Backends are selected by URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// For example:
//
//   - file:///var/lib/evidence-seal
//   - s3://bucket-name/prefix?region=eu-west-1
//   - ipfs://127.0.0.1:5001/evidence-seal
//   - vault://vault.example.com:8200/secret/evidence
//
// Several URIs can be combined with StorageBackendFactory.CreateMultiBackend,
// which writes to every available backend and reads from the first backend
// holding content whose hash matches.
//
// # Content Addressing
//
// The identifier of stored content is the SHA-256 of its bytes. Sealed packs
// (PackType) and vote audit snapshots (SnapshotType) live in separate
// namespaces. PackStore wraps a backend with the JSON encoding of
// interfaces.SealedPack and refuses to persist packs that carry no seal.
package storage
