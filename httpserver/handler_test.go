package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/ruteri/evidence-seal/ledger"
	"github.com/ruteri/evidence-seal/seal"
	"github.com/ruteri/evidence-seal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hashA   = strings.Repeat("aa", 32)
	hashB   = strings.Repeat("bb", 32)
	testKey = []byte("handler-test-key-0001")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, withStorage bool) http.Handler {
	log := testLogger()
	engine := seal.NewEngine(seal.Config{Keyring: kms.NewKeyring(testKey)})

	var packs *storage.PackStore
	if withStorage {
		backend, err := storage.NewFileBackend(t.TempDir(), log)
		require.NoError(t, err)
		packs = storage.NewPackStore(backend, log)
	}

	handler := NewHandler(engine, packs, ledger.NewRecorder(ledger.NewMemoryLedger(), log), log)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const packBody = `{"title":"recon","artifacts":[{"sha256":"` + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" + `"},{"sha256":"` + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" + `"}]}`

func TestHandleSeal_AndVerify(t *testing.T) {
	h := newTestRouter(t, false)

	rr := do(t, h, http.MethodPost, "/api/seal", packBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	sealed := decode[api.SealResponse](t, rr)
	require.NotNil(t, sealed.Seal)
	assert.Equal(t, 2, sealed.Seal.ArtifactCount)
	assert.True(t, sealed.Seal.Signed())
	assert.Empty(t, sealed.ContentID)
	assert.Equal(t, []string{hashA, hashB}, sealed.Pack.ArtifactHashes())

	rr = do(t, h, http.MethodPost, "/api/verify", sealed.Pack)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[api.VerifyResponse](t, rr)
	assert.True(t, result.Valid)
	assert.Equal(t, interfaces.SignatureValid, result.SignatureVerified)
	assert.Equal(t, interfaces.StateVerifiedValid, result.Outcome)

	tampered := sealed.Pack
	tampered.Artifacts = tampered.Artifacts[:1]
	rr = do(t, h, http.MethodPost, "/api/verify", tampered)
	require.Equal(t, http.StatusOK, rr.Code)
	result = decode[api.VerifyResponse](t, rr)
	assert.False(t, result.Valid)
	assert.False(t, result.DigestMatch)
	assert.Equal(t, interfaces.StateVerifiedInvalid, result.Outcome)
	assert.NotEmpty(t, result.Errors)
}

func TestHandleVerify_Unsealed(t *testing.T) {
	h := newTestRouter(t, false)

	rr := do(t, h, http.MethodPost, "/api/verify", packBody)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[api.VerifyResponse](t, rr)
	assert.False(t, result.Valid)
	assert.False(t, result.Sealed)
	assert.Equal(t, interfaces.StateUnsealed, result.Outcome)
	assert.Equal(t, []string{"no seal found"}, result.Errors)
}

func TestHandleSeal_BadInput(t *testing.T) {
	h := newTestRouter(t, false)

	testCases := []struct {
		name string
		body string
		code int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
		{"missing hash", `{"artifacts":[{"name":"x"}]}`, http.StatusBadRequest},
		{"malformed hash", `{"artifacts":[{"sha256":"zz"}]}`, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/seal", tc.body)
			assert.Equal(t, tc.code, rr.Code, rr.Body.String())
		})
	}
}

func TestHandleSeal_StoreAndGet(t *testing.T) {
	h := newTestRouter(t, true)

	rr := do(t, h, http.MethodPost, "/api/seal?store=true", packBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sealed := decode[api.SealResponse](t, rr)
	require.Len(t, sealed.ContentID, 64)

	rr = do(t, h, http.MethodGet, "/api/packs/"+sealed.ContentID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	stored := decode[api.StoredPackResponse](t, rr)
	assert.Equal(t, sealed.ContentID, stored.ContentID)
	assert.True(t, stored.Verification.Valid)
	assert.Equal(t, sealed.Seal.PackDigest, stored.Pack.Seal.PackDigest)

	rr = do(t, h, http.MethodGet, "/api/packs/"+strings.Repeat("0", 64), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/packs/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSeal_StoreWithoutStorage(t *testing.T) {
	h := newTestRouter(t, false)

	rr := do(t, h, http.MethodPost, "/api/seal?store=true", packBody)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/packs/"+strings.Repeat("0", 64), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestElectionFlow(t *testing.T) {
	h := newTestRouter(t, true)
	base := "/api/elections/board-2026"

	rr := do(t, h, http.MethodGet, base+"/audit", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var receipts []api.CastVoteResponse
	for _, voter := range []string{"alice", "bob", "carol"} {
		rr := do(t, h, http.MethodPost, base+"/votes", api.CastVoteRequest{OptionID: "yes", VoterID: voter})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		receipts = append(receipts, decode[api.CastVoteResponse](t, rr))
	}
	assert.Equal(t, uint64(3), receipts[2].Sequence)
	assert.True(t, strings.HasPrefix(receipts[0].ReceiptID, "RCPT-"))
	assert.Len(t, receipts[0].VerificationCode, 6)

	rr = do(t, h, http.MethodPost, base+"/votes", api.CastVoteRequest{OptionID: "no", VoterID: "alice"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, base+"/votes", api.CastVoteRequest{OptionID: "", VoterID: "dave"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, base+"/audit", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	report := decode[interfaces.ChainReport](t, rr)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, -1, report.BrokenAt)
	assert.Equal(t, receipts[2].AuditHash, report.Tail)

	confirmPath := base + "/receipts/" + receipts[1].ReceiptID + "/confirm"
	rr = do(t, h, http.MethodPost, confirmPath, api.ConfirmReceiptRequest{Code: strings.ToLower(receipts[1].VerificationCode)})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[api.ConfirmReceiptResponse](t, rr).Confirmed)

	rr = do(t, h, http.MethodPost, confirmPath, api.ConfirmReceiptRequest{Code: "NOTHEX"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[api.ConfirmReceiptResponse](t, rr).Confirmed)

	rr = do(t, h, http.MethodPost, base+"/receipts/RCPT-UNKNOWN/confirm", api.ConfirmReceiptRequest{Code: "ABCDEF"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, base+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snapshot := decode[api.SnapshotResponse](t, rr)
	assert.Len(t, snapshot.ContentID, 64)
	assert.True(t, snapshot.Chain.Valid)
	require.NotNil(t, snapshot.Pack.Seal)
	assert.Equal(t, 3, snapshot.Pack.Seal.ArtifactCount)
	assert.Equal(t, receipts[0].AuditHash, snapshot.Pack.Artifacts[0].SHA256)
	assert.Equal(t, snapshot.Pack.Seal.ArtifactCount, snapshot.Chain.Entries)
	assert.Equal(t, snapshot.Pack.Artifacts[2].SHA256, snapshot.Chain.Tail)

	rr = do(t, h, http.MethodPost, "/api/verify", snapshot.Pack)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[api.VerifyResponse](t, rr).Valid)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{&interfaces.MalformedHashError{Index: 0, Value: "x"}, http.StatusBadRequest},
		{&interfaces.MissingArtifactHashError{Index: 1}, http.StatusBadRequest},
		{&interfaces.InvalidVoteInputError{Field: "optionId"}, http.StatusBadRequest},
		{interfaces.ErrSessionNotFound, http.StatusNotFound},
		{interfaces.ErrContentNotFound, http.StatusNotFound},
		{interfaces.ErrAlreadyVoted, http.StatusConflict},
		{interfaces.ErrStaleTail, http.StatusConflict},
		{interfaces.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.code, statusFor(tc.err), tc.err.Error())
	}
}

func TestServer_HealthAndDrain(t *testing.T) {
	log := testLogger()
	engine := seal.NewEngine(seal.Config{})
	handler := NewHandler(engine, nil, ledger.NewRecorder(ledger.NewMemoryLedger(), log), log)

	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Log:           log,
		DrainDuration: time.Millisecond,
	}, handler)
	require.NoError(t, err)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", nil).Code)

	rr := do(t, h, http.MethodGet, "/drain", nil)
	assert.Contains(t, rr.Body.String(), `"draining"`)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", nil).Code)
	assert.Contains(t, do(t, h, http.MethodGet, "/drain", nil).Body.String(), "already draining")

	do(t, h, http.MethodGet, "/undrain", nil)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", nil).Code)

	rr = do(t, h, http.MethodPost, "/api/seal", packBody)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[api.SealResponse](t, rr).Seal.Signed())
}
