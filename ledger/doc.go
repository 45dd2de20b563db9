// Package ledger persists per-session vote audit chains.
//
// The vote package computes chain links but cannot order concurrent casts.
// Ledgers do: Append succeeds only if the chain tail still equals the one the
// caller built its link against, and fails with interfaces.ErrStaleTail
// otherwise. Recorder wraps that in a read-tail, build, append loop with a
// bounded number of retries.
//
// MemoryLedger is for tests and single-process use. BadgerLedger stores the
// chain in BadgerDB and relies on its transaction conflict detection.
package ledger
