package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect validation rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the validation rules sent with every chunk",
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	rules, err := estimateService.Rules(cmd.Context())
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		cmd.Println("No rules configured. Set rules.path to a .xlsx, .yaml or .json file.")
		return nil
	}

	groups, order := groupRules(rules)
	for _, g := range order {
		cmd.Printf("[%s]\n", g)
		for _, r := range groups[g] {
			cmd.Printf("  %s  %s\n", r.ID, r.ValidationCriteria)
			if r.Description != "" {
				cmd.Printf("      %s\n", r.Description)
			}
		}
		cmd.Println()
	}
	cmd.Printf("%d rules\n", len(rules))
	return nil
}

// groupRules buckets rules by check group in first-seen order. Rules
// without a group are listed last under "Other Rules".
func groupRules(rules []domain.Rule) (map[string][]domain.Rule, []string) {
	const other = "Other Rules"
	groups := make(map[string][]domain.Rule)
	var order []string
	for _, r := range rules {
		g := r.CheckGroup
		if g == "" {
			g = other
		}
		if _, ok := groups[g]; !ok && g != other {
			order = append(order, g)
		}
		groups[g] = append(groups[g], r)
	}
	if _, ok := groups[other]; ok {
		order = append(order, other)
	}
	return groups, order
}
