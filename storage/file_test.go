package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackend_StoreFetch(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	data := []byte(`{"artifacts":[]}`)
	id, err := backend.Store(ctx, data, interfaces.PackType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)

	_, err = os.Stat(filepath.Join(dir, "packs", id.String()+".json"))
	require.NoError(t, err)

	fetched, err := backend.Fetch(ctx, id, interfaces.PackType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// namespaces are separate
	_, err = backend.Fetch(ctx, id, interfaces.SnapshotType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	// storing the same content again is a no-op
	again, err := backend.Store(ctx, data, interfaces.PackType)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestFileBackend_Unavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.False(t, backend.Available(context.Background()))
}

func TestFactory(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())
	dir := t.TempDir()

	locations, err := ParseLocations([]string{"file://" + dir, " ", "s3://bucket/prefix?region=eu-west-1"})
	require.NoError(t, err)
	require.Len(t, locations, 2)

	backend, err := factory.StorageBackendFor(locations[0])
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	backend, err = factory.StorageBackendFor(locations[1])
	require.NoError(t, err)
	assert.Equal(t, "s3-bucket", backend.Name())

	ipfsLoc, err := interfaces.NewStorageBackendLocation("ipfs://127.0.0.1:5001/evidence?timeout=5s")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(ipfsLoc)
	require.NoError(t, err)
	assert.Equal(t, "ipfs-127.0.0.1-5001", backend.Name())

	vaultLoc, err := interfaces.NewStorageBackendLocation("vault://127.0.0.1:8200/secret/evidence?tls=false&token=t")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(vaultLoc)
	require.NoError(t, err)
	assert.Equal(t, "vault-secret-evidence", backend.Name())

	_, err = ParseLocations([]string{"github://owner/repo"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	multi, err := factory.CreateMultiBackend(locations)
	require.NoError(t, err)
	assert.Contains(t, multi.LocationURI(), "file://"+dir)

	_, err = factory.CreateMultiBackend(nil)
	assert.Error(t, err)
}
