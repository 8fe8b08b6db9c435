package model

import (
	"encoding/json"
	"time"
)

// Match is one community present in both the membership export and the
// remote dataset. The embedded Community carries the display name from
// the export when one was available.
type Match struct {
	Community

	// Detail holds the raw per-community payload returned by the
	// remote detail endpoint, when detail lookup was requested.
	// Nil when detail lookup was disabled or failed for this match.
	Detail json.RawMessage `json:"detail,omitempty"`
}

// CheckReport is the result of one check run.
// It contains everything the report writers render and everything the
// history database persists.
//
// Design decision: we use a single flat struct rather than nesting
// loader/fetch/match sub-results because the report writers and the
// database want the whole picture at once, and the field count is small.
type CheckReport struct {
	// ExportPath is the membership export file that was checked.
	ExportPath string `json:"export_path"`

	// DateChecked is when the check ran.
	DateChecked time.Time `json:"date_checked"`

	// MembershipCount is the number of communities loaded from the export.
	MembershipCount int `json:"membership_count"`

	// SkippedRecords counts export records that were skipped because
	// they were individually malformed (missing or non-numeric ID).
	SkippedRecords int `json:"skipped_records,omitempty"`

	// EmptyExport is true when the export parsed cleanly but contained
	// zero records. The check still completes with an empty result.
	EmptyExport bool `json:"empty_export,omitempty"`

	// RemoteIndexSize is the number of distinct communities the remote
	// dataset listed at fetch time.
	RemoteIndexSize int `json:"remote_index_size"`

	// PagesFetched is the number of pages retrieved from the remote
	// dataset endpoint.
	PagesFetched int `json:"pages_fetched"`

	// Matches are the communities present in both sets, sorted by ID.
	Matches []Match `json:"matches"`

	// DetailErrors counts matches whose detail lookup failed.
	// Detail failures are soft; the match itself is still reported.
	DetailErrors int `json:"detail_errors,omitempty"`

	// Elapsed is the wall-clock duration of the whole check.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// NewCheckReport creates a CheckReport for the given export path with
// the check date set to now.
func NewCheckReport(exportPath string) *CheckReport {
	return &CheckReport{
		ExportPath:  exportPath,
		DateChecked: time.Now(),
		Matches:     []Match{},
	}
}

// HasMatches reports whether any community matched.
func (r *CheckReport) HasMatches() bool {
	return len(r.Matches) > 0
}

// MatchCount returns the number of matched communities.
func (r *CheckReport) MatchCount() int {
	return len(r.Matches)
}
