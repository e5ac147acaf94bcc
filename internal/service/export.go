package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/sakif/bounty-portal/internal/repository"
)

const exportFilenameLayout = "2006-01-02_15-04-05"

// ExportService produces the published-projects CSV and its status summary.
type ExportService struct {
	projects    repository.ProjectRepository
	projectType string
	tempDir     string
	exportURL   string
	logger      *slog.Logger
	now         func() time.Time
}

// ExportOptions configures an ExportService. An empty TempDir means
// os.TempDir().
type ExportOptions struct {
	ProjectType string
	TempDir     string
	ExportURL   string
}

func NewExportService(projects repository.ProjectRepository, opts ExportOptions, logger *slog.Logger) *ExportService {
	return &ExportService{
		projects:    projects,
		projectType: opts.ProjectType,
		tempDir:     opts.TempDir,
		exportURL:   opts.ExportURL,
		logger:      logger,
		now:         time.Now,
	}
}

// CSVExport is a finished export backed by a scratch file. The caller must
// Close it; Close also deletes the file.
type CSVExport struct {
	file     *os.File
	Filename string
	Rows     int
}

// Read streams the CSV content from the start.
func (e *CSVExport) Read(p []byte) (int, error) {
	return e.file.Read(p)
}

// Path is the scratch file's location on disk.
func (e *CSVExport) Path() string {
	return e.file.Name()
}

// Close closes and removes the scratch file. Safe to call more than once.
func (e *CSVExport) Close() error {
	if e.file == nil {
		return nil
	}
	name := e.file.Name()
	closeErr := e.file.Close()
	removeErr := os.Remove(name)
	e.file = nil

	if closeErr != nil {
		return fmt.Errorf("export: closing scratch file: %w", closeErr)
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("export: removing scratch file: %w", removeErr)
	}
	return nil
}

var _ io.ReadCloser = (*CSVExport)(nil)

// ExportCSV writes every published project to a scratch CSV and returns it
// rewound to the start.
//
// SCRATCH FILE LIFECYCLE:
//
//	CreateTemp → write header + rows → Flush → Seek(0)
//	  any error on the way → close + remove, return error
//	  success               → caller streams it, then Close() removes it
func (s *ExportService) ExportCSV(ctx context.Context) (_ *CSVExport, err error) {
	f, err := os.CreateTemp(s.tempDir, "projects_export_*.csv")
	if err != nil {
		return nil, fmt.Errorf("export: creating scratch file: %w", err)
	}
	out := &CSVExport{
		file:     f,
		Filename: "projects_export_" + s.now().Format(exportFilenameLayout) + ".csv",
	}
	defer func() {
		if err != nil {
			out.Close()
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(ExportHeader); err != nil {
		return nil, fmt.Errorf("export: writing header: %w", err)
	}

	projects, err := s.projects.ListPublishedProjects(ctx, s.projectType)
	if err != nil {
		return nil, fmt.Errorf("export: loading projects: %w", err)
	}

	if len(projects) == 0 {
		s.logger.Warn("no project nodes found for export")
	}
	s.logger.Info("projects found for export", slog.Int("count", len(projects)))

	for _, p := range projects {
		if err := w.Write(FlattenProject(p).Record()); err != nil {
			return nil, fmt.Errorf("export: writing project %s: %w", p.ID, err)
		}
		out.Rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flushing csv: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("export: rewinding scratch file: %w", err)
	}

	s.logger.Info("projects exported", slog.Int("count", out.Rows))
	return out, nil
}

// ExportStatus summarises what an export would contain right now.
type ExportStatus struct {
	TotalProjects int
	Message       string
	ExportURL     string
	Timestamp     time.Time
}

func (s *ExportService) Status(ctx context.Context) (*ExportStatus, error) {
	n, err := s.projects.CountPublishedProjects(ctx, s.projectType)
	if err != nil {
		return nil, fmt.Errorf("export: counting projects: %w", err)
	}
	return &ExportStatus{
		TotalProjects: n,
		Message:       "Found " + strconv.Itoa(n) + " project(s) available for export",
		ExportURL:     s.exportURL,
		Timestamp:     s.now(),
	}, nil
}
