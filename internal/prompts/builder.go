// Package prompts assembles the system and user prompts sent to the
// extraction oracle for each chunk.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

//go:embed target_schema.json
var targetSchema string

// NoRulesText is rendered in place of an empty rule list.
const NoRulesText = "No specific validation rules provided."

// otherRulesHeading groups rules without a check group.
const otherRulesHeading = "Other Rules"

// Schema returns the target JSON structure embedded in the system prompt.
func Schema() string {
	return strings.TrimSpace(targetSchema)
}

// Request describes one oracle call.
type Request struct {
	Chunk    domain.Chunk
	Total    int
	Chunked  bool
	FileName string
	Rules    []domain.Rule
}

// Prompt is a rendered system and user prompt pair.
type Prompt struct {
	System string
	User   string
}

// Builder renders prompts from templates held in a PromptStore.
type Builder struct {
	store driven.PromptStore
}

// New creates a builder. A nil store uses the built-in templates only.
func New(store driven.PromptStore) *Builder {
	return &Builder{store: store}
}

// Build renders the prompts for req.
func (b *Builder) Build(req Request) (Prompt, error) {
	chunkNote := ""
	chunkContext := ""
	instructions := driven.PromptInstructionsSingle

	if req.Chunked {
		vars := map[string]string{
			"CHUNK_NUMBER": strconv.Itoa(req.Chunk.Number()),
			"TOTAL_CHUNKS": strconv.Itoa(req.Total),
		}
		note, err := b.render(driven.PromptChunkNote, vars)
		if err != nil {
			return Prompt{}, err
		}
		chunkNote = note

		chunkContext, err = b.render(contextPrompt(req.Chunk), vars)
		if err != nil {
			return Prompt{}, err
		}
		instructions = driven.PromptInstructionsChunk
	}

	system, err := b.render(driven.PromptExtractionSystem, map[string]string{
		"CHUNK_NOTE": chunkNote,
		"SCHEMA":     Schema(),
	})
	if err != nil {
		return Prompt{}, err
	}

	steps, err := b.render(instructions, nil)
	if err != nil {
		return Prompt{}, err
	}

	user, err := b.render(driven.PromptExtractionUser, map[string]string{
		"FILE_NAME":     req.FileName,
		"CHUNK_CONTEXT": chunkContext,
		"RULES":         FormatRules(req.Rules),
		"CONTENT":       req.Chunk.Text,
		"INSTRUCTIONS":  steps,
	})
	if err != nil {
		return Prompt{}, err
	}

	return Prompt{System: system, User: user}, nil
}

// contextPrompt picks the chunk-position template. A chunk that is both
// first and last uses the first-chunk context.
func contextPrompt(c domain.Chunk) string {
	switch {
	case c.IsFirst:
		return driven.PromptChunkFirst
	case c.IsLast:
		return driven.PromptChunkLast
	default:
		return driven.PromptChunkMiddle
	}
}

// render loads the named template and substitutes {{NAME}} placeholders
// in a single pass, so substituted text is never re-expanded.
func (b *Builder) render(name string, vars map[string]string) (string, error) {
	tmpl, err := b.load(name)
	if err != nil {
		return "", err
	}
	if len(vars) == 0 {
		return tmpl, nil
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

func (b *Builder) load(name string) (string, error) {
	if b.store != nil {
		if tmpl, err := b.store.Load(name); err == nil {
			return tmpl, nil
		}
	}
	if tmpl, ok := DefaultTemplate(name); ok {
		return tmpl, nil
	}
	return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
}

// FormatRules renders rules grouped by check group in sorted order.
// Rules without a group follow under "Other Rules", a heading emitted
// only when grouped rules precede them.
func FormatRules(rules []domain.Rule) string {
	if len(rules) == 0 {
		return NoRulesText
	}

	grouped := make(map[string][]domain.Rule)
	var ungrouped []domain.Rule
	for _, r := range rules {
		group := strings.TrimSpace(r.CheckGroup)
		if group == "" {
			ungrouped = append(ungrouped, r)
			continue
		}
		grouped[group] = append(grouped[group], r)
	}

	groups := make([]string, 0, len(grouped))
	for g := range grouped {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var lines []string
	for _, g := range groups {
		lines = append(lines, "\n### "+g)
		lines = append(lines, formatRuleList(grouped[g])...)
	}
	if len(ungrouped) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "\n### "+otherRulesHeading)
		}
		lines = append(lines, formatRuleList(ungrouped)...)
	}
	return strings.Join(lines, "\n")
}

func formatRuleList(rules []domain.Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		text := "**" + r.ID + "**"
		if r.Description != "" {
			text += ": " + r.Description
		}
		if r.ValidationCriteria != "" {
			text += "\n  Logic: " + r.ValidationCriteria
		}
		out = append(out, text)
	}
	return out
}
