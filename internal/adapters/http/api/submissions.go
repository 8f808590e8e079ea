package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/redstone/internal/app"
	"github.com/okian/redstone/internal/domain/model"
	"github.com/okian/redstone/pkg/logger"
)

type submissionResponse struct {
	model.SubmissionStatus
	Duplicate bool `json:"duplicate"`
}

// SubmissionsHandler handles asynchronous writes.
type SubmissionsHandler struct {
	deps   SubmissionService
	logger logger.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionService, l logger.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps, logger: l}
}

// HandlePostSubmission handles POST /v1/submissions requests.
// A new payload is accepted with 202; a payload seen within the dedupe
// window returns the first submission's status with 200.
func (h *SubmissionsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submission"
	var req payloadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	feedIDs, err := req.FeedIDs.parse()
	if err != nil {
		writeError(w, err)
		return
	}
	sender, err := parseSender(r.Header.Get(UpdaterHeader), req.Sender)
	if err != nil {
		writeError(w, err)
		return
	}

	st, duplicate, err := h.deps.Submit(r.Context(), sender, feedIDs, req.Payload)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	status := http.StatusAccepted
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, submissionResponse{SubmissionStatus: st, Duplicate: duplicate})
}

// HandleGetSubmission handles GET /v1/submissions/{id} requests.
func (h *SubmissionsHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok := h.deps.SubmissionStatus(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", service.ErrSubmissionNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, submissionResponse{SubmissionStatus: st})
}
