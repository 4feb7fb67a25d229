package model

import "time"

// PopulationState tracks how complete a master loan state is
type PopulationState string

const (
	StateEmpty              PopulationState = "empty"
	StatePartiallyPopulated PopulationState = "partially_populated"
	StateReadyForClosing    PopulationState = "ready_for_closing"
)

// FlagState is orthogonal to population state
type FlagState string

const (
	FlagStateClean   FlagState = "clean"
	FlagStateFlagged FlagState = "flagged_for_review"
)

// FlagType identifies a reasonableness-check outcome
type FlagType string

const (
	FlagReUnderwriteRequired  FlagType = "re_underwrite_required"
	FlagJustificationRequired FlagType = "justification_required"
	FlagLargeDepositFound     FlagType = "large_deposit_found"
)

// ReconciliationFlag is a structured marker raised by a reasonableness check.
// Flags are never cleared automatically.
type ReconciliationFlag struct {
	Type     FlagType       `json:"type"`
	RaisedAt time.Time      `json:"raised_at"`
	DocType  DocumentType   `json:"doc_type"`
	Reason   string         `json:"reason"`
	Data     map[string]any `json:"data,omitempty"`
}

// FieldOverwrite records one field replaced during a merge
type FieldOverwrite struct {
	Path     string `json:"path"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Reason   string `json:"reason"`
}

// MergeRecord is one audit-trail entry on the master loan state
type MergeRecord struct {
	ID         string           `json:"id"`
	DocType    DocumentType     `json:"doc_type"`
	SourceID   string           `json:"source_id,omitempty"`
	MergedAt   time.Time        `json:"merged_at"`
	Overwrites []FieldOverwrite `json:"overwrites,omitempty"`
	Flags      []FlagType       `json:"flags_raised,omitempty"`
}

// MasterLoanState is the accumulated canonical document for one loan across
// all processed documents. It is created on the first document for an
// identity and only ever appended to.
type MasterLoanState struct {
	Identity  string          `json:"identity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	State     PopulationState `json:"state"`
	FlagState FlagState       `json:"flag_state"`

	Canonical CanonicalDocument    `json:"canonical"`
	Flags     []ReconciliationFlag `json:"flags,omitempty"`
	Audit     []MergeRecord        `json:"audit"`
}

// HasFlag reports whether a flag of the given type has been raised
func (m *MasterLoanState) HasFlag(t FlagType) bool {
	for _, f := range m.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// RaiseFlag appends a flag and moves the flag-state to flagged
func (m *MasterLoanState) RaiseFlag(f ReconciliationFlag) {
	m.Flags = append(m.Flags, f)
	m.FlagState = FlagStateFlagged
}
