package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ruteri/evidence-seal/interfaces"
)

// PackStore persists sealed packs on a StorageBackend. Stored packs are
// content-addressed by the SHA-256 of their JSON form, so the content ID
// changes whenever the pack or its seal changes.
type PackStore struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
}

func NewPackStore(backend interfaces.StorageBackend, log *slog.Logger) *PackStore {
	return &PackStore{backend: backend, log: log}
}

// Put stores a sealed pack under the given namespace. Packs without a seal are refused.
func (s *PackStore) Put(ctx context.Context, pack interfaces.SealedPack, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	if pack.Seal == nil {
		return interfaces.ContentID{}, interfaces.ErrUnsealedPack
	}

	data, err := json.Marshal(pack)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("could not encode sealed pack: %w", err)
	}

	id, err := s.backend.Store(ctx, data, contentType)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	s.log.Info("Stored sealed pack",
		slog.String("content_id", id.String()),
		slog.String("type", contentType.String()),
		slog.String("pack_digest", pack.Seal.PackDigest),
		slog.String("backend", s.backend.Name()))
	return id, nil
}

// Get loads a sealed pack and checks that the stored bytes hash to id.
// The seal itself is not verified here.
func (s *PackStore) Get(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) (*interfaces.SealedPack, error) {
	data, err := s.backend.Fetch(ctx, id, contentType)
	if err != nil {
		return nil, err
	}

	if actual := interfaces.ComputeID(data); !actual.Equal(id) {
		return nil, fmt.Errorf("stored content hash mismatch: expected %s, got %s", id, actual)
	}

	var pack interfaces.SealedPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("could not decode sealed pack %s: %w", id, err)
	}
	return &pack, nil
}

// Available reports whether the underlying backend can be reached.
func (s *PackStore) Available(ctx context.Context) bool {
	return s.backend.Available(ctx)
}
