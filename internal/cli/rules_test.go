package cli

import (
	"testing"

	"github.com/mortgageiq/loanforge/internal/rules"
)

func TestGroupRulesByTargetResolutionOrder(t *testing.T) {
	set := &rules.Set{Rules: []*rules.Rule{
		{ID: "fallback", Target: "terms.loan_amount", Priority: 2},
		{ID: "preferred", Target: "terms.loan_amount", Priority: 1},
		{ID: "purpose", Target: "loan.purpose"},
		{ID: "purposeAlt", Target: "loan.purpose"},
	}}

	groups := groupRulesByTarget(set)
	if len(groups) != 2 {
		t.Fatalf("groups = %d", len(groups))
	}

	// Targets keep the declaration order of their first rule
	if groups[0].target != "terms.loan_amount" || groups[1].target != "loan.purpose" {
		t.Errorf("targets = %q, %q", groups[0].target, groups[1].target)
	}

	// Within a target, ascending priority wins
	if groups[0].rules[0].ID != "preferred" || groups[0].rules[1].ID != "fallback" {
		t.Errorf("loan amount order = %s, %s", groups[0].rules[0].ID, groups[0].rules[1].ID)
	}

	// Equal priorities keep declaration order
	if groups[1].rules[0].ID != "purpose" || groups[1].rules[1].ID != "purposeAlt" {
		t.Errorf("purpose order = %s, %s", groups[1].rules[0].ID, groups[1].rules[1].ID)
	}
}
