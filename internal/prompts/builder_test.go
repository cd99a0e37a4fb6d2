package prompts

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// mapStore is an in-memory PromptStore.
type mapStore map[string]string

func (m mapStore) Load(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return "", errors.New("missing")
}

func (m mapStore) Reload() {}

func chunk(index int, first, last bool) domain.Chunk {
	return domain.Chunk{Index: index, Text: "CONTENT-" + string(rune('A'+index)), IsFirst: first, IsLast: last}
}

func TestBuild_Single(t *testing.T) {
	p, err := New(nil).Build(Request{
		Chunk:    chunk(0, true, true),
		Total:    1,
		FileName: "estimate.pdf",
	})

	require.NoError(t, err)
	assert.NotContains(t, p.System, "CHUNKING MODE")
	assert.Contains(t, p.System, `"rule_validations"`)
	assert.Contains(t, p.User, "Source File: estimate.pdf")
	assert.Contains(t, p.User, "CONTENT-A")
	assert.Contains(t, p.User, NoRulesText)
	assert.Contains(t, p.User, "FINISH")
	assert.NotContains(t, p.User, "CHUNK CONTEXT")
	assert.NotContains(t, p.System+p.User, "{{")
}

func TestBuild_ChunkPositions(t *testing.T) {
	tests := []struct {
		name  string
		chunk domain.Chunk
		want  string
	}{
		{"first", chunk(0, true, false), "Extract the document metadata"},
		{"middle", chunk(2, false, false), "Do not extract metadata or totals"},
		{"last", chunk(4, false, true), "(final chunk)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(nil).Build(Request{Chunk: tt.chunk, Total: 5, Chunked: true, FileName: "x.pdf"})

			require.NoError(t, err)
			assert.Contains(t, p.User, tt.want)
			assert.Contains(t, p.User, "chunk "+string(rune('0'+tt.chunk.Number()))+" of 5")
			assert.Contains(t, p.System, "CHUNKING MODE")
			assert.NotContains(t, p.User, "FINISH")
		})
	}
}

func TestBuild_UsesStoreTemplates(t *testing.T) {
	store := mapStore{
		driven.PromptExtractionUser: "FILE={{FILE_NAME}} BODY={{CONTENT}} RULES={{RULES}}",
	}

	p, err := New(store).Build(Request{Chunk: chunk(0, true, true), Total: 1, FileName: "a.txt"})

	require.NoError(t, err)
	assert.Equal(t, "FILE=a.txt BODY=CONTENT-A RULES="+NoRulesText, p.User)
	assert.Contains(t, p.System, "forensic estimate auditor")
}

func TestBuild_ContentIsNotExpanded(t *testing.T) {
	c := domain.Chunk{Text: "literal {{RULES}} in the estimate", IsFirst: true, IsLast: true}

	p, err := New(nil).Build(Request{Chunk: c, Total: 1})

	require.NoError(t, err)
	assert.Contains(t, p.User, "literal {{RULES}} in the estimate")
}

func TestFormatRules(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, NoRulesText, FormatRules(nil))
	})

	t.Run("grouped and ungrouped", func(t *testing.T) {
		rules := []domain.Rule{
			{ID: "SCOPE_001", CheckGroup: "Scope", Description: "Drywall needs texture"},
			{ID: "MISC_001", Description: "General check", ValidationCriteria: "look closely"},
			{ID: "QTY_001", CheckGroup: "Quantity", Description: "Paint vs walls", ValidationCriteria: "paint <= walls"},
		}

		got := FormatRules(rules)

		want := strings.Join([]string{
			"\n### Quantity",
			"**QTY_001**: Paint vs walls\n  Logic: paint <= walls",
			"\n### Scope",
			"**SCOPE_001**: Drywall needs texture",
			"\n### Other Rules",
			"**MISC_001**: General check\n  Logic: look closely",
		}, "\n")
		assert.Equal(t, want, got)
	})

	t.Run("only ungrouped has no heading", func(t *testing.T) {
		got := FormatRules([]domain.Rule{{ID: "A_001"}})
		assert.Equal(t, "**A_001**", got)
	})
}

func TestSchema_IsValidJSON(t *testing.T) {
	assert.True(t, json.Valid([]byte(Schema())))
}

func TestDefaultTemplates_Complete(t *testing.T) {
	names := []string{
		driven.PromptExtractionSystem, driven.PromptChunkNote, driven.PromptChunkFirst,
		driven.PromptChunkMiddle, driven.PromptChunkLast, driven.PromptExtractionUser,
		driven.PromptInstructionsChunk, driven.PromptInstructionsSingle,
	}
	defaults := DefaultTemplates()
	for _, n := range names {
		assert.NotEmpty(t, defaults[n], n)
	}
	defaults[driven.PromptChunkNote] = "changed"
	orig, _ := DefaultTemplate(driven.PromptChunkNote)
	assert.NotEqual(t, "changed", orig)
}
