// Package vote implements the cryptography behind anonymous, auditable ballots.
//
// A voter is represented by a session-scoped pseudonym derived from the real
// identity, the session ID and a random session salt. Each ballot carries a
// signature binding session, option, pseudonym and time, and an audit hash
// chaining it to the previous ballot of the session, starting from the
// "GENESIS" sentinel.
//
// Everything here is pure. Producing a well-formed chain requires the caller
// to serialize casts per session: two casts that read the same tail fork the
// chain. See the ledger package for a persistence layer that does this.
package vote
