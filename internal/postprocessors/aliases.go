package postprocessors

import (
	"context"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// defaultAliases maps camelCase keys some models emit to the schema keys.
var defaultAliases = map[string]string{
	"documentMetadata":      domain.KeyDocumentMetadata,
	"validationSummary":     domain.KeyValidationSummary,
	"grandTotalAreas":       domain.KeyGrandTotalAreas,
	"summaryForDwelling":    domain.KeySummaryForDwelling,
	"recapByCategory":       domain.KeyCategoryRecap,
	"reviewFindings":        domain.KeyReviewFindings,
	"totalRulesChecked":     domain.KeyTotalRulesChecked,
	"criticalFlags":         domain.KeyCriticalFlags,
	"lineItems":             domain.KeyLineItems,
	"subAreas":              domain.KeySubAreas,
	"architecturalFeatures": domain.KeyArchitecturalFeatures,
	"ruleValidations":       domain.KeyRuleValidations,
	"featureType":           domain.KeyFeatureType,
	"dimensionsRaw":         domain.KeyDimensionsRaw,
	"actionDescription":     domain.KeyActionDescription,
}

// AliasProcessor renames alias keys to their canonical form at every
// depth. A rename is skipped when the canonical key is already present.
type AliasProcessor struct {
	aliases map[string]string
}

var _ driven.PostProcessor = (*AliasProcessor)(nil)

// NewAliasProcessor creates an alias processor. extra adds to, and may
// override, the built-in alias table.
func NewAliasProcessor(extra map[string]string) *AliasProcessor {
	aliases := make(map[string]string, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[k] = v
	}
	return &AliasProcessor{aliases: aliases}
}

// Name returns the processor name.
func (p *AliasProcessor) Name() string {
	return NameAliases
}

// Process renames keys in place and returns obj.
func (p *AliasProcessor) Process(_ context.Context, obj *domain.Object) (*domain.Object, error) {
	p.rename(domain.ObjectValue(obj))
	return obj, nil
}

func (p *AliasProcessor) rename(v domain.Value) {
	switch v.Kind() {
	case domain.KindObject:
		obj, _ := v.AsObject()
		for _, k := range obj.Keys() {
			if to, ok := p.aliases[k]; ok {
				obj.Rename(k, to)
			}
		}
		for _, k := range obj.Keys() {
			child, _ := obj.Get(k)
			p.rename(child)
		}
	case domain.KindList:
		items, _ := v.AsList()
		for _, item := range items {
			p.rename(item)
		}
	}
}
