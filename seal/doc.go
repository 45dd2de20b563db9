// Package seal produces and checks tamper-evidence seals over evidence packs.
//
// A seal binds three things: the SHA-256 of the pack's canonical JSON
// (RFC 8785), the Merkle root of the artifact hashes in pack order, and
// optionally an HMAC-SHA256 over the pack digest. The pack index type has no
// seal field, so a seal is never part of the content it covers.
//
// Verification never returns an error. Every sub-check is reported in the
// VerificationResult, and a signature that cannot be checked for lack of a
// key is reported as "no-key" rather than as a pass or a failure.
package seal
