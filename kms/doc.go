// Package kms manages the symmetric keys used to sign evidence seals.
//
// # Keyring
//
// A Keyring holds one active key, used to sign new seals, plus any number of
// retired keys kept for verifying seals made before a rotation. Keys are
// addressed by their key ID, the last 8 hex characters of the SHA-256 of the
// key, which is also what a seal carries in its hmacKeyId field.
//
// # Escrow
//
// SplitKey and CombineShares wrap Shamir's Secret Sharing so the signing key
// can be escrowed across custodians. ShareCollector accepts shares one at a
// time and reconstructs the key once the threshold is met, optionally
// checking the result against a known key ID.
package kms
