package cli

import (
	"fmt"
	"sort"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/rules"
	"github.com/spf13/cobra"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate extraction rule sets",
	Long: `Rule sets are declarative YAML files, one per document type. A rule
names a pattern (or literal label), a canonical target path, a priority,
and an optional value transform. Rule sets ship built in and can be
overridden per document type from a rules directory.`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate rule sets without processing anything",
	Long: `Validate compiles every rule set and reports the first configuration
error: a bad pattern, an unparseable target path, an unknown transform, or
a malformed repeat group. With no argument only the built-in rules are
checked.

Example:
  loanforge rules validate
  loanforge rules validate ./rules`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}

		ruleset, err := rules.Load(dir)
		if err != nil {
			return err
		}

		total := 0
		for _, set := range ruleset {
			total += len(set.Rules)
		}
		fmt.Printf("✓ %d rule sets valid (%d rules)\n", len(ruleset), total)
		return nil
	},
}

var rulesListDir string

var rulesListCmd = &cobra.Command{
	Use:   "list [docType]",
	Short: "List the resolved priority order per target path",
	Long: `List prints, per target path, the rules competing for it in the order
the mapper resolves them: ascending priority number, declaration order
breaking ties. With no argument every document type is listed.

Example:
  loanforge rules list
  loanforge rules list bank_statement
  loanforge rules list w2 --rules-dir ./rules`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleset, err := rules.Load(rulesListDir)
		if err != nil {
			return err
		}

		var types []string
		if len(args) == 1 {
			if _, ok := ruleset[model.DocumentType(args[0])]; !ok {
				return fmt.Errorf("no rule set for document type %q", args[0])
			}
			types = []string{args[0]}
		} else {
			for t := range ruleset {
				types = append(types, string(t))
			}
			sort.Strings(types)
		}

		for _, t := range types {
			set := ruleset[model.DocumentType(t)]
			fmt.Printf("%s (version %s, %d rules)\n", t, set.Version, len(set.Rules))
			for _, g := range groupRulesByTarget(set) {
				fmt.Printf("  %s\n", g.target)
				for _, r := range g.rules {
					switch {
					case r.Repeat != nil:
						fmt.Printf("    %-24s repeat %s_*\n", r.ID, r.Repeat.Prefix)
					default:
						fmt.Printf("    %-24s p%d\n", r.ID, r.EffectivePriority())
					}
				}
			}
			fmt.Println()
		}
		return nil
	},
}

// targetGroup is one target path with its competing rules in resolution
// order
type targetGroup struct {
	target string
	rules  []*rules.Rule
}

// groupRulesByTarget orders each target's rules the way the mapper resolves
// them. Targets appear in declaration order of their first rule.
func groupRulesByTarget(set *rules.Set) []targetGroup {
	index := make(map[string]int)
	var groups []targetGroup
	for _, r := range set.Rules {
		gi, ok := index[r.Target]
		if !ok {
			gi = len(groups)
			index[r.Target] = gi
			groups = append(groups, targetGroup{target: r.Target})
		}
		groups[gi].rules = append(groups[gi].rules, r)
	}
	for gi := range groups {
		rs := groups[gi].rules
		sort.SliceStable(rs, func(a, b int) bool {
			return rs[a].EffectivePriority() < rs[b].EffectivePriority()
		})
	}
	return groups
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)

	rulesListCmd.Flags().StringVar(&rulesListDir, "rules-dir", "", "directory of YAML rule sets (default: built-in rules)")
}
