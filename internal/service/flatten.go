package service

import (
	"strconv"
	"strings"

	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/sanitize"
)

// ExportTrackColumns is how many tracks a flattened row carries. Further
// tracks are dropped.
const ExportTrackColumns = 3

// ExportHeader is the first CSV record of every export.
var ExportHeader = []string{"Title", "Execution Plan 1", "Execution Plan 2", "Execution Plan 3"}

// ExportRow is one project flattened to fixed-width columns.
type ExportRow struct {
	Title string
	Plans [ExportTrackColumns]string
}

// Record returns the row as a CSV record matching ExportHeader.
func (r ExportRow) Record() []string {
	rec := make([]string, 0, 1+ExportTrackColumns)
	rec = append(rec, r.Title)
	rec = append(rec, r.Plans[:]...)
	return rec
}

// FlattenProject normalises the title and formats the first three tracks
// in attachment order. Missing tracks leave their column empty.
func FlattenProject(p model.Project) ExportRow {
	row := ExportRow{Title: sanitize.Text(p.Title)}
	for i, track := range p.Tracks {
		if i >= ExportTrackColumns {
			break
		}
		row.Plans[i] = FormatExecutionPlan(track)
	}
	return row
}

// FormatExecutionPlan renders a track's milestones one per line, numbered
// from 1 by position. Empty milestones keep their number but emit no line.
func FormatExecutionPlan(t model.Track) string {
	lines := make([]string, 0, len(t.Plan))
	for i, m := range t.Plan {
		if line := FormatMilestone(m, i+1); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatMilestone renders "Milestone N: name - details", or just whichever
// half is non-empty. Both empty yields "".
func FormatMilestone(m model.Milestone, step int) string {
	name := sanitize.Text(m.Name)
	details := sanitize.Text(m.Details)

	var content string
	switch {
	case name != "" && details != "":
		content = name + " - " + details
	case name != "":
		content = name
	case details != "":
		content = details
	default:
		return ""
	}
	return "Milestone " + strconv.Itoa(step) + ": " + content
}
