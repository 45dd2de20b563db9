package clients

import (
	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/stretchr/testify/mock"
)

type MockSealProvider struct {
	mock.Mock
}

func (m *MockSealProvider) Seal(pack interfaces.PackIndex, store bool) (*api.SealResponse, error) {
	args := m.Called(pack, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SealResponse), args.Error(1)
}

func (m *MockSealProvider) Verify(pack interfaces.SealedPack) (*api.VerifyResponse, error) {
	args := m.Called(pack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.VerifyResponse), args.Error(1)
}

func (m *MockSealProvider) GetPack(id interfaces.ContentID) (*api.StoredPackResponse, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.StoredPackResponse), args.Error(1)
}

type MockElectionProvider struct {
	mock.Mock
}

func (m *MockElectionProvider) CastVote(sessionID string, req api.CastVoteRequest) (*api.CastVoteResponse, error) {
	args := m.Called(sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.CastVoteResponse), args.Error(1)
}

func (m *MockElectionProvider) Audit(sessionID string) (*interfaces.ChainReport, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ChainReport), args.Error(1)
}

func (m *MockElectionProvider) ConfirmReceipt(sessionID, receiptID, code string) (bool, error) {
	args := m.Called(sessionID, receiptID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockElectionProvider) Snapshot(sessionID string) (*api.SnapshotResponse, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SnapshotResponse), args.Error(1)
}

var (
	_ api.SealProvider     = (*SealClient)(nil)
	_ api.ElectionProvider = (*SealClient)(nil)
	_ api.SealProvider     = (*MockSealProvider)(nil)
	_ api.ElectionProvider = (*MockElectionProvider)(nil)
)
