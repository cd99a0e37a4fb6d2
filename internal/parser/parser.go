// Package parser turns raw oracle responses into structured objects.
//
// Responses are often malformed: wrapped in code fences, surrounded by
// prose, carrying trailing commas, or cut off at the token limit. The
// parser tries an ordered chain of strategies and never fails; when
// nothing works it returns the raw text in an unparsed envelope.
package parser

import (
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// UnparsedWarning marks a response no strategy could decode.
const UnparsedWarning = "could not parse structured JSON response; raw response preserved"

// Result is the outcome of parsing one response.
type Result struct {
	// Object is the decoded, unwrapped response. Nil when unparsed.
	Object *domain.Object

	// Strategy names the strategy that succeeded, or StrategyUnparsed.
	Strategy string

	// Truncated echoes the oracle's truncation signal.
	Truncated bool

	// Unparsed carries the raw text when every strategy failed.
	Unparsed *domain.UnparsedResponse
}

// OK reports whether a strategy succeeded.
func (r Result) OK() bool {
	return r.Object != nil
}

// Parser applies a strategy chain.
type Parser struct {
	strategies []Strategy
}

// New creates a parser. With no strategies the default chain is used.
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// Strategies returns the chain in order.
func (p *Parser) Strategies() []Strategy {
	out := make([]Strategy, len(p.strategies))
	copy(out, p.strategies)
	return out
}

// Parse decodes raw, accepting the first strategy that succeeds.
// truncated is the oracle's truncation signal.
func (p *Parser) Parse(raw string, truncated bool) Result {
	res := Result{Truncated: truncated}

	for _, s := range p.strategies {
		obj, ok := s.Attempt(raw, res.Truncated)
		if !ok {
			continue
		}
		res.Object = UnwrapObject(obj)
		res.Strategy = s.Name
		return res
	}

	res.Strategy = StrategyUnparsed
	res.Unparsed = &domain.UnparsedResponse{Warning: UnparsedWarning, Raw: raw}
	return res
}

// ParseDocument parses raw straight into a PartialDocument.
func (p *Parser) ParseDocument(raw string, truncated bool) domain.PartialDocument {
	res := p.Parse(raw, truncated)
	if !res.OK() {
		return domain.PartialDocument{Unparsed: res.Unparsed}
	}
	return domain.DecodePartial(res.Object)
}
