// Package main (cmd/httpserver) runs the evidence sealing service.
//
// The server seals and verifies evidence packs, persists sealed packs to the
// configured storage backends, and records ballots in a per-session audit
// hash chain kept in BadgerDB.
//
// Configuration comes from the environment:
//
//	EVIDENCE_SEAL_KEY           active HMAC seal key (empty: unsigned seals)
//	EVIDENCE_SEAL_RETIRED_KEYS  comma-separated keys accepted for verification only
//	EVIDENCE_SEAL_STORAGE       comma-separated storage URIs (file://, s3://, ipfs://, vault://)
//	EVIDENCE_SEAL_LEDGER_DIR    BadgerDB directory of the audit ledger (empty: in memory)
//
// Instead of EVIDENCE_SEAL_KEY the active key can be reconstructed from
// Shamir key shares typed in by custodians at startup, or derived from an
// operator passphrase:
//
//	seal-server --key-source=shares --unseal-threshold=3 --unseal-key-id=1a2b3c4d
//	seal-server --key-source=passphrase --key-context=prod-finance
//
// Example usage:
//
//	EVIDENCE_SEAL_KEY=... EVIDENCE_SEAL_STORAGE=file:///var/lib/seal/packs \
//	    seal-server --listen-addr=0.0.0.0:8080 --metrics-addr=0.0.0.0:8090
//
// The server shuts down gracefully on SIGINT/SIGTERM.
package main
