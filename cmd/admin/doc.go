// Package main (cmd/admin) implements seal-admin, the operator CLI of the
// evidence sealing service.
//
// Commands:
//
//	seal                    - Seal a pack index locally or with --remote
//	verify                  - Verify a sealed pack; exits non-zero unless verified-valid
//	fetch                   - Fetch a stored sealed pack by content ID
//	merkle-root             - Print the Merkle root of a list of hashes
//	election cast           - Cast a ballot
//	election audit          - Re-walk a session's audit chain
//	election confirm        - Confirm a receipt with its verification code
//	election snapshot       - Seal and store the session's audit chain
//	election verify-chain   - Verify an exported chain offline
//	election salt           - Print a fresh session salt
//	key generate            - Print a random seal key and its key ID
//	key derive              - Print the key ID of a passphrase-derived key
//	key split               - Split a seal key into Shamir shares
//	key combine             - Check that shares reconstruct the expected key
//
// Local seal and verify read keys the same way the server does, from
// EVIDENCE_SEAL_KEY and EVIDENCE_SEAL_RETIRED_KEYS or --key-source.
//
// Example workflow:
//
//  1. Generate a key and split it among three custodians:
//     seal-admin key generate > seal.key
//     seal-admin key split --shares=3 --threshold=2 < seal.key
//
//  2. Start the server from two shares:
//     seal-server --key-source=shares --unseal-threshold=2 --unseal-key-id=<id>
//
//  3. Seal and verify:
//     seal-admin seal --remote --store -i pack.json > sealed.json
//     seal-admin verify --remote -i sealed.json
package main
