package model

import "time"

// ReportEntrySeverity indicates the importance of a report entry
type ReportEntrySeverity string

const (
	SeverityInfo     ReportEntrySeverity = "info"
	SeverityWarning  ReportEntrySeverity = "warning"
	SeverityCritical ReportEntrySeverity = "critical"
)

// ReportEntryKind classifies a reconciliation report entry
type ReportEntryKind string

const (
	EntryFlagRaised       ReportEntryKind = "flag_raised"
	EntryFieldOverwritten ReportEntryKind = "field_overwritten"
	EntryMissingMandatory ReportEntryKind = "missing_mandatory_data"
	EntryScopeViolation   ReportEntryKind = "scope_violation"
	EntryIdentityHeld     ReportEntryKind = "identity_held"
	EntryLowConfidence    ReportEntryKind = "low_confidence"
	EntryUnparsedField    ReportEntryKind = "unparsed_field"
)

// ReportEntry is one user-visible line of the reconciliation report. Every
// rejected or partially-merged fragment names the offending path(s) and the
// reason, never a bare failure code.
type ReportEntry struct {
	Kind        ReportEntryKind     `json:"kind"`
	Severity    ReportEntrySeverity `json:"severity"`
	Paths       []string            `json:"paths,omitempty"`
	Description string              `json:"description"`
	Data        map[string]any      `json:"data,omitempty"`
}

// ReconcileReport is the structured outcome of merging one fragment
type ReconcileReport struct {
	Identity   string           `json:"identity,omitempty"`
	DocType    DocumentType     `json:"doc_type"`
	SourceID   string           `json:"source_id,omitempty"`
	MergedAt   time.Time        `json:"merged_at"`
	Merged     bool             `json:"merged"`
	Held       bool             `json:"held,omitempty"`
	Rejected   bool             `json:"rejected,omitempty"`
	Entries    []ReportEntry    `json:"entries,omitempty"`
	Overwrites []FieldOverwrite `json:"overwrites,omitempty"`
}

// Add appends an entry to the report
func (r *ReconcileReport) Add(e ReportEntry) {
	r.Entries = append(r.Entries, e)
}

// MissingMandatory returns the paths of all missing-mandatory entries
func (r *ReconcileReport) MissingMandatory() []string {
	var paths []string
	for _, e := range r.Entries {
		if e.Kind == EntryMissingMandatory {
			paths = append(paths, e.Paths...)
		}
	}
	return paths
}
