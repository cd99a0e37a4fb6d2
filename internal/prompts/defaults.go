package prompts

import (
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// defaultTemplates are the built-in prompt templates. Placeholders use the
// {{NAME}} form and are filled by Builder.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultTemplates = map[string]string{
	driven.PromptExtractionSystem: `You are a forensic estimate auditor. Convert the estimate into JSON without losing any data.
{{CHUNK_NOTE}}
### TARGET JSON STRUCTURE
Output a single JSON object using exactly the keys below (dimensions, line_items, sub_areas, architectural_features, rule_validations).
Omit fields that are null, 0 or 0.00. Output raw JSON only, without code fences.

{{SCHEMA}}

### 1. HIERARCHY
* GROUPING: headers such as "Main Level" or "Exterior" with no dimensions and no line items set the grouping of the rooms that follow.
* ROOM: a header followed by dimensions (SF/LF) starts a room. Extract its dimensions.
* SUB-AREA: closets, alcoves, stairs and similar headers nested under a room go into that room's sub_areas with their own name, dimensions and line_items. Never create a top-level room for them and never put their items in the parent's line_items.
* ORPHAN ITEMS: items with no room header (permits, debris removal) go into a room named "General Items". Do not skip them.

### 2. LINE ITEMS
* Extract every line item. Keep depreciation exactly as printed, e.g. "<50.00>" or "(50.00)".
* Set subcategory_group to the nearest section header above the item, or null when there is none.
* Process the text page by page until the end.

### 3. ARCHITECTURAL FEATURES
* Standalone labels such as "Door", "Window" or "Missing Wall" are the feature_type.
* The dimension line and the "Opens into ..." line that follow a label belong to that feature as dimensions_raw and action_description.
* "Opens into ..." is never a feature_type.

### 4. VALIDATION
* Every room carries a rule_validations array. Check each room against all applicable rules and use the exact rule_id.
* status must agree with details: when your own calculation shows a failure, status is "FLAGGED".
* Put the evidence (quantities, calculations, missing items) in details. Include severity when the rule has one.

### 5. UNMAPPED DATA
* Put text that fits nowhere else in unmapped.`,

	driven.PromptChunkNote: `### CHUNKING MODE
You are processing chunk {{CHUNK_NUMBER}} of {{TOTAL_CHUNKS}} of a large document.
- Extract only what appears in this chunk: every room and line item in this text segment.
- Extract totals and summaries whenever they appear in this chunk.`,

	driven.PromptChunkFirst: `### CHUNK CONTEXT
This is chunk {{CHUNK_NUMBER}} of {{TOTAL_CHUNKS}} of a large document.
- Extract the document metadata and every room or area in this chunk.
- Extract totals and summaries if present; they may span several chunks.
- A room header near the end may continue in the next chunk. Extract it normally.`,

	driven.PromptChunkMiddle: `### CHUNK CONTEXT
This is chunk {{CHUNK_NUMBER}} of {{TOTAL_CHUNKS}} of a large document.
- Extract only the rooms and areas in this chunk.
- Do not extract metadata or totals.
- The start and end of this chunk overlap the adjacent chunks. Extract rooms normally; duplicates are merged later.`,

	driven.PromptChunkLast: `### CHUNK CONTEXT
This is chunk {{CHUNK_NUMBER}} of {{TOTAL_CHUNKS}} (final chunk).
- Extract every room and area AND the totals: grand_total_areas, summary_for_dwelling and all recap tables.
- The start of this chunk overlaps the previous chunk. Extract rooms normally.`,

	driven.PromptExtractionUser: `### CONTEXT
Source File: {{FILE_NAME}}
{{CHUNK_CONTEXT}}
### STEP 1: VALIDATION RULES
{{RULES}}

### STEP 2: RAW ESTIMATE CONTENT
{{CONTENT}}

### INSTRUCTION
Process the content in this order:
{{INSTRUCTIONS}}

Exclude all null fields so the output fits.`,

	driven.PromptInstructionsChunk: `1. METADATA (first chunk only): company, adjuster, insured.
2. AREAS: for each section capture the room and all of its sub-areas, each sub-area with its own line_items.
3. LINE ITEMS: then extract the room's own line_items. Items of a sub-area stay in that sub-area.
4. VALIDATION: every room gets rule_validations checked against all applicable rules from step 1. status must match details.
5. TOTALS: map "Summary for Dwelling" and "Grand Total Areas" tables if they are in this chunk. Dotted leaders ("Subtotal ..... 1,234.56") separate label and value.`,

	driven.PromptInstructionsSingle: `1. METADATA: company, adjuster, insured.
2. AREAS: for each section capture the room and all of its sub-areas, each sub-area with its own line_items.
3. LINE ITEMS: then extract the room's own line_items. Do not write totals before the items of the last page are extracted.
4. VALIDATION: every room gets rule_validations checked against all applicable rules from step 1. status must match details.
5. TOTALS: after the last page, map the "Summary for Dwelling" and "Grand Total Areas" tables. Dotted leaders ("Subtotal ..... 1,234.56") separate label and value.
6. FINISH: close the JSON properly.`,
}

// DefaultTemplates returns a copy of the built-in templates keyed by name.
func DefaultTemplates() map[string]string {
	out := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		out[k] = v
	}
	return out
}

// DefaultTemplate returns the built-in template for name.
func DefaultTemplate(name string) (string, bool) {
	t, ok := defaultTemplates[name]
	return t, ok
}
