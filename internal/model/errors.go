package model

import (
	"fmt"
	"strings"
)

// RuleConfigError reports a malformed rule or schema at load time. It is
// fatal: processing never starts on a bad configuration.
type RuleConfigError struct {
	File   string
	RuleID string
	Reason string
}

func (e *RuleConfigError) Error() string {
	parts := []string{"rule config"}
	if e.File != "" {
		parts = append(parts, e.File)
	}
	if e.RuleID != "" {
		parts = append(parts, "rule "+e.RuleID)
	}
	return strings.Join(parts, ": ") + ": " + e.Reason
}

// ScopeViolationError reports an assembled document touching canonical
// sections its document type is not permitted to populate. The fragment is
// rejected (or clipped, per policy); sibling documents continue.
type ScopeViolationError struct {
	DocType DocumentType
	Paths   []string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("scope violation: document type %q may not populate %s",
		e.DocType, strings.Join(e.Paths, ", "))
}

// IdentityAmbiguousError reports a fragment that cannot be attributed to a
// single master loan state. The fragment is held for manual resolution,
// never merged blindly.
type IdentityAmbiguousError struct {
	Identity string
	Reason   string
}

func (e *IdentityAmbiguousError) Error() string {
	return fmt.Sprintf("identity ambiguous for %q: %s", e.Identity, e.Reason)
}
