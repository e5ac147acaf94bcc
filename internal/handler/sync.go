package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/bounty-portal/internal/service"
)

// Syncer is what SyncHandler needs from the service layer.
type Syncer interface {
	Sync(ctx context.Context, req service.SyncRequest) (*service.SyncResult, error)
}

// SyncHandler serves the OAuth user sync endpoint. The caller is the
// front end's OAuth callback, after it has authenticated the user upstream.
type SyncHandler struct {
	sync        Syncer
	maxBodySize int64
	logger      *slog.Logger
}

func NewSyncHandler(sync Syncer, maxBodySize int64, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, maxBodySize: maxBodySize, logger: logger}
}

type syncRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type syncResponse struct {
	Status          string `json:"status"`
	UID             string `json:"uid"`
	UUID            string `json:"uuid"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsInProjectTeam bool   `json:"is_in_project_team"`
}

// HandleSync resolves (or creates) the user and reports team membership.
//
// HTTP: POST /api/oauth/sync
// REQUEST BODY: {"email": "jane@qed42.com", "name": "Jane Doe"}
//
// A body that is not valid JSON is treated as empty, so it fails with the
// same 400 "Email is required" as a missing email. A body over the size
// limit is rejected with 413 before the service is called.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("rejecting oversized sync body", slog.Int64("limit", tooLarge.Limit))
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
			return
		}
		h.logger.Debug("ignoring undecodable sync body", slog.String("error", err.Error()))
		req = syncRequest{}
	}

	res, err := h.sync.Sync(r.Context(), service.SyncRequest{Email: req.Email, Name: req.Name})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Status:          res.Status,
		UID:             res.User.ID,
		UUID:            res.User.UUID,
		Email:           res.User.Email,
		Name:            res.User.Name,
		IsInProjectTeam: res.InProjectTeam,
	})
}
