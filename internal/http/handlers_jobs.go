package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
	"github.com/glasskite/darkroom/internal/service"
)

// maxRequestBody caps job submission bodies at 1 MiB.
const maxRequestBody = 1 << 20

// JobHandlers serves the public job endpoints.
type JobHandlers struct {
	Jobs        *service.JobService
	Idempotency *service.IdempotencyService
	Logger      *slog.Logger
}

// Create handles POST /v1/jobs. When an Idempotency-Key header is present the
// whole operation runs under the idempotency protocol: a replayed key returns
// the stored response byte for byte, a reused key with a different body is
// rejected with 422, and only successful (2xx) responses are ever stored.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthContext(r.Context())
	if auth == nil {
		WriteError(w, apperrors.Unauthorized("missing API key"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		WriteError(w, apperrors.Validation("request body too large or unreadable"))
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	var requestHash string
	if idemKey != "" {
		requestHash, err = service.HashRequestBody(body)
		if err != nil {
			WriteError(w, apperrors.Validation("request body is not a JSON object"))
			return
		}

		rec, lookupErr := h.Idempotency.Lookup(r.Context(), auth.UserID, idemKey, requestHash)
		if lookupErr != nil {
			WriteError(w, lookupErr)
			return
		}
		if rec != nil {
			w.Header().Set("Idempotency-Replay", "true")
			WriteRaw(w, rec.StatusCode, rec.ResponseBody)
			return
		}
	}

	var req model.CreateJobRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if decodeErr := dec.Decode(&req); decodeErr != nil {
		WriteError(w, apperrors.Wrap(decodeErr, apperrors.ErrCodeValidation,
			"request body is not valid JSON"))
		return
	}

	resp, err := h.Jobs.CreateJob(r.Context(), auth, &req)
	if err != nil {
		WriteError(w, err)
		return
	}

	respBody, err := json.Marshal(resp)
	if err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "response encoding failed"))
		return
	}

	if idemKey != "" {
		winner, recordErr := h.Idempotency.Record(r.Context(), auth.UserID, idemKey,
			requestHash, http.StatusAccepted, respBody)
		if recordErr != nil && apperrors.IsUnprocessable(recordErr) {
			WriteError(w, recordErr)
			return
		}
		if recordErr != nil {
			// The job is already created and dispatched. Failing the
			// request over a bookkeeping write would invite a retry that
			// runs the side effect twice; the next attempt just won't
			// replay.
			h.Logger.WarnContext(r.Context(), "idempotency record failed, returning response anyway",
				"user_id", auth.UserID, "err", recordErr)
		}
		if winner != nil {
			// A concurrent request with the same key committed first.
			// Its response is the canonical one; this request's job was
			// still created and will run, which is the accepted tradeoff
			// for not holding locks across dispatch.
			w.Header().Set("Idempotency-Replay", "true")
			WriteRaw(w, winner.StatusCode, winner.ResponseBody)
			return
		}
	}

	WriteRaw(w, http.StatusAccepted, respBody)
}

// Get handles GET /v1/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthContext(r.Context())
	if auth == nil {
		WriteError(w, apperrors.Unauthorized("missing API key"))
		return
	}

	resp, err := h.Jobs.GetJob(r.Context(), auth.UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}
