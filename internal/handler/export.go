package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/bounty-portal/internal/service"
)

// Exporter is what ExportHandler needs from the service layer.
type Exporter interface {
	ExportCSV(ctx context.Context) (*service.CSVExport, error)
	Status(ctx context.Context) (*service.ExportStatus, error)
}

type ExportHandler struct {
	export Exporter
	logger *slog.Logger
}

func NewExportHandler(export Exporter, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{export: export, logger: logger}
}

// HandleCSV streams the published-projects CSV as a download.
//
// HTTP: GET /admin/projects/export/csv
//
// The scratch file behind the export is removed when the handler returns,
// whether or not the copy to the client finished.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	out, err := h.export.ExportCSV(r.Context())
	if err != nil {
		h.logger.Error("csv export failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	defer func() {
		if err := out.Close(); err != nil {
			h.logger.Warn("removing export scratch file", slog.String("error", err.Error()))
		}
	}()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, out); err != nil {
		// Status is already sent; the client sees a truncated download.
		h.logger.Warn("streaming csv export", slog.String("error", err.Error()))
	}
}

type exportStatusResponse struct {
	Status        string `json:"status"`
	TotalProjects int    `json:"total_projects"`
	Message       string `json:"message"`
	ExportURL     string `json:"export_url"`
	Timestamp     string `json:"timestamp"`
}

type exportStatusError struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HandleStatus reports how many projects an export would contain.
//
// HTTP: GET /admin/projects/export/status
func (h *ExportHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.export.Status(r.Context())
	if err != nil {
		h.logger.Error("export status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, exportStatusError{
			Status:    "error",
			Message:   "Unable to determine export status",
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, exportStatusResponse{
		Status:        "success",
		TotalProjects: st.TotalProjects,
		Message:       st.Message,
		ExportURL:     st.ExportURL,
		Timestamp:     st.Timestamp.Format(time.RFC3339),
	})
}
