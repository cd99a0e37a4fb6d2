package domain

// Rule is a validation rule passed through to the oracle unchanged.
// Only ID and the rule count are interpreted after extraction.
type Rule struct {
	// ID is the identifier the oracle echoes in rule_validations.
	ID string `json:"rule_id" yaml:"rule_id"`

	// CheckGroup groups rules in the prompt (e.g. "Quantity Match").
	CheckGroup string `json:"check_group,omitempty" yaml:"check_group,omitempty"`

	// Description is the business rule text.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ValidationCriteria is the logic the oracle applies.
	ValidationCriteria string `json:"validation_criteria" yaml:"validation_criteria"`
}
