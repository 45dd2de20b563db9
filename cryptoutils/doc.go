// Package cryptoutils provides the cryptographic primitives shared by the
// sealing and vote audit packages.
//
// Everything here is a thin, deterministic wrapper over the standard
// library's SHA-256, HMAC and CSPRNG, plus Argon2id from x/crypto:
//
//   - SHA256Hex / HMACSHA256Hex: lowercase hex digests
//   - KeyID: last 8 hex chars of SHA-256(key), a non-revealing key fingerprint
//   - EqualHex: constant-time comparison for signatures and chain hashes
//   - DecodeHash / IsHash: strict 64-hex-char SHA-256 validation
//   - RandomBytes / RandomHex: CSPRNG helpers
//   - FormatTimestamp: the millisecond ISO-8601 form fed into hashes
//   - DeriveSealKey: Argon2id passphrase stretching for seal keys
package cryptoutils
