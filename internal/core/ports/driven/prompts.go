package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptExtractionSystem is the extraction protocol. It expects a
	// {{CHUNK_NOTE}} and a {{SCHEMA}} placeholder.
	PromptExtractionSystem = "extraction_system"

	// PromptChunkNote is inserted into the system prompt in chunking mode.
	// It expects {{CHUNK_NUMBER}} and {{TOTAL_CHUNKS}}.
	PromptChunkNote = "chunk_note"

	// PromptChunkFirst, PromptChunkMiddle and PromptChunkLast position a
	// chunk in the user prompt. They expect {{CHUNK_NUMBER}} and {{TOTAL_CHUNKS}}.
	PromptChunkFirst  = "chunk_first"
	PromptChunkMiddle = "chunk_middle"
	PromptChunkLast   = "chunk_last"

	// PromptExtractionUser carries the document. It expects {{FILE_NAME}},
	// {{CHUNK_CONTEXT}}, {{RULES}}, {{CONTENT}} and {{INSTRUCTIONS}}.
	PromptExtractionUser = "extraction_user"

	// PromptInstructionsChunk and PromptInstructionsSingle are the closing
	// step lists for chunked and whole-document calls.
	PromptInstructionsChunk  = "instructions_chunk"
	PromptInstructionsSingle = "instructions_single"
)
