package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

func TestRulesList(t *testing.T) {
	ts := setupTestServices(t)
	ts.estimate.rules = []domain.Rule{
		{ID: "CEILING_HE_001", CheckGroup: "Ceiling Height", ValidationCriteria: "height present", Description: "Every room has a ceiling height"},
		{ID: "RULE_002", ValidationCriteria: "no group"},
		{ID: "QUANTITYMA_003", CheckGroup: "Quantity Match", ValidationCriteria: "SF matches"},
	}

	out, err := executeCommand(t, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CEILING_HE_001  height present")
	assert.Contains(t, out, "Every room has a ceiling height")
	assert.Contains(t, out, "3 rules")

	ceiling := strings.Index(out, "[Ceiling Height]")
	quantity := strings.Index(out, "[Quantity Match]")
	other := strings.Index(out, "[Other Rules]")
	assert.True(t, ceiling >= 0 && ceiling < quantity && quantity < other)
}

func TestRulesList_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No rules configured.")
}

func TestGroupRules(t *testing.T) {
	groups, order := groupRules([]domain.Rule{
		{ID: "1", CheckGroup: "B"},
		{ID: "2"},
		{ID: "3", CheckGroup: "A"},
		{ID: "4", CheckGroup: "B"},
	})
	assert.Equal(t, []string{"B", "A", "Other Rules"}, order)
	assert.Len(t, groups["B"], 2)
	assert.Len(t, groups["Other Rules"], 1)
}
