// Package clients provides an HTTP client for the evidence sealing service.
//
// SealClient implements both api.SealProvider and api.ElectionProvider.
// MockSealProvider and MockElectionProvider are testify mocks of the same
// interfaces for code that depends on the service.
package clients
