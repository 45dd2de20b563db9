package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/ledger"
	"github.com/ruteri/evidence-seal/metrics"
	"github.com/ruteri/evidence-seal/seal"
	"github.com/ruteri/evidence-seal/storage"
)

// RequestError carries the HTTP status to answer with.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// Handler processes requests for sealing, verification and vote auditing.
type Handler struct {
	engine   *seal.Engine
	packs    *storage.PackStore
	recorder *ledger.Recorder
	log      *slog.Logger
}

// NewHandler creates a Handler. packs may be nil, in which case storing
// sealed packs and snapshots is unavailable.
func NewHandler(engine *seal.Engine, packs *storage.PackStore, recorder *ledger.Recorder, log *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		packs:    packs,
		recorder: recorder,
		log:      log,
	}
}

// RegisterRoutes mounts the service routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/seal", h.HandleSeal)
	r.Post("/api/verify", h.HandleVerify)
	r.Get("/api/packs/{content_id}", h.HandleGetPack)

	r.Post("/api/elections/{session_id}/votes", h.HandleCastVote)
	r.Get("/api/elections/{session_id}/audit", h.HandleAudit)
	r.Post("/api/elections/{session_id}/receipts/{receipt_id}/confirm", h.HandleConfirmReceipt)
	r.Post("/api/elections/{session_id}/snapshot", h.HandleSnapshot)
}

// HandleSeal seals the pack index in the request body. A "seal" field in the
// body is ignored. With ?store=true the sealed pack is persisted as well.
func (h *Handler) HandleSeal(w http.ResponseWriter, r *http.Request) {
	var pack interfaces.PackIndex
	if err := decodeBody(r, &pack); err != nil {
		h.writeError(w, err)
		return
	}

	sealed, err := h.engine.SealPack(pack)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.RecordSealGenerated(sealed.Seal.Signed())

	resp := api.SealResponse{Seal: sealed.Seal, Pack: sealed}

	if store, _ := strconv.ParseBool(r.URL.Query().Get("store")); store {
		if h.packs == nil {
			h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("pack storage is not configured")})
			return
		}
		id, err := h.packs.Put(r.Context(), sealed, interfaces.PackType)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp.ContentID = id.String()
	}

	h.log.Info("Sealed evidence pack",
		slog.String("packDigest", sealed.Seal.PackDigest),
		slog.Int("artifacts", sealed.Seal.ArtifactCount),
		slog.Bool("signed", sealed.Seal.Signed()),
		slog.String("contentId", resp.ContentID))

	writeJSON(w, h.log, resp)
}

// HandleVerify verifies the sealed pack in the request body.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var pack interfaces.SealedPack
	if err := decodeBody(r, &pack); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.log, h.verify(pack))
}

func (h *Handler) verify(pack interfaces.SealedPack) api.VerifyResponse {
	resp := api.NewVerifyResponse(h.engine.Verify(pack))
	metrics.RecordVerification(string(resp.Outcome))
	if !resp.Valid {
		h.log.Warn("Seal verification failed",
			slog.String("outcome", string(resp.Outcome)),
			slog.Any("errors", resp.Errors))
	}
	return resp
}

// HandleGetPack loads a stored sealed pack and re-verifies it.
func (h *Handler) HandleGetPack(w http.ResponseWriter, r *http.Request) {
	if h.packs == nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("pack storage is not configured")})
		return
	}

	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "content_id"))
	if err != nil {
		h.writeError(w, badRequest("invalid content id: %w", err))
		return
	}

	pack, err := h.packs.Get(r.Context(), id, interfaces.PackType)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.log, api.StoredPackResponse{
		ContentID:    id.String(),
		Pack:         *pack,
		Verification: h.verify(*pack),
	})
}

// HandleCastVote records a ballot and returns the voter's receipt.
func (h *Handler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req api.CastVoteRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	entry, err := h.recorder.Cast(r.Context(), sessionID, req.OptionID, req.VoterID)
	if err != nil {
		metrics.RecordVoteCast(voteErrorClass(err))
		h.writeError(w, err)
		return
	}
	metrics.RecordVoteCast("ok")

	writeJSON(w, h.log, api.CastVoteResponse{
		ReceiptID:        entry.ReceiptID,
		VerificationCode: entry.VerificationCode,
		AuditHash:        entry.AuditHash,
		Timestamp:        entry.Timestamp,
		Sequence:         entry.Sequence,
	})
}

// HandleAudit re-walks the session's audit chain.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.recorder.Audit(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.RecordChainAudit(report.Valid)

	writeJSON(w, h.log, report)
}

// HandleConfirmReceipt checks a voter's verification code.
func (h *Handler) HandleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	var req api.ConfirmReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	confirmed, err := h.recorder.ConfirmReceipt(r.Context(), chi.URLParam(r, "session_id"), chi.URLParam(r, "receipt_id"), req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.log, api.ConfirmReceiptResponse{Confirmed: confirmed})
}

// HandleSnapshot seals the session's audit chain and stores it when storage is configured.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	snapshot, report, err := h.recorder.Snapshot(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sealed, err := h.engine.SealPack(snapshot)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.RecordSealGenerated(sealed.Seal.Signed())
	metrics.RecordChainAudit(report.Valid)

	resp := api.SnapshotResponse{Pack: sealed, Chain: report}
	if h.packs != nil {
		id, err := h.packs.Put(r.Context(), sealed, interfaces.SnapshotType)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp.ContentID = id.String()
	}

	h.log.Info("Sealed audit snapshot",
		slog.String("session", sessionID),
		slog.Int("entries", sealed.Seal.ArtifactCount),
		slog.String("merkleRoot", sealed.Seal.ArtifactsMerkleRoot),
		slog.String("contentId", resp.ContentID))

	writeJSON(w, h.log, resp)
}

func decodeBody(r *http.Request, target any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxBodySize+1))
	if err != nil {
		return badRequest("failed to read request body: %w", err)
	}
	if len(body) > api.MaxBodySize {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	if len(body) == 0 {
		return badRequest("empty request body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return badRequest("invalid JSON body: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	var reqErr *RequestError
	var malformed *interfaces.MalformedHashError
	var missing *interfaces.MissingArtifactHashError
	var invalidVote *interfaces.InvalidVoteInputError

	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.As(err, &malformed), errors.As(err, &missing), errors.As(err, &invalidVote),
		errors.Is(err, interfaces.ErrUnsealedPack):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrSessionNotFound),
		errors.Is(err, interfaces.ErrReceiptNotFound),
		errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrAlreadyVoted), errors.Is(err, interfaces.ErrStaleTail):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func voteErrorClass(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, interfaces.ErrStaleTail):
		return "contention"
	case statusFor(err) == http.StatusBadRequest:
		return "invalid"
	default:
		return "error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err, slog.Int("status", status))
	} else {
		h.log.Debug("Request rejected", "err", err, slog.Int("status", status))
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}
