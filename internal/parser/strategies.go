package parser

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// Strategy is one attempt at turning a raw oracle response into an object.
type Strategy struct {
	// Name identifies the strategy in logs and run reports.
	Name string

	// Attempt returns the decoded object, or false when the strategy does
	// not apply. truncated carries the oracle's truncation signal.
	Attempt func(raw string, truncated bool) (*domain.Object, bool)
}

// Strategy names.
const (
	StrategyDirect     = "direct"
	StrategyFenced     = "fenced"
	StrategyBraces     = "braces"
	StrategyRepair     = "repair"
	StrategyDropMember = "drop_member"
	StrategyUnparsed   = "unparsed"
)

// DefaultStrategies returns the standard chain in the order it is tried.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyDirect, Attempt: attemptDirect},
		{Name: StrategyFenced, Attempt: attemptFenced},
		{Name: StrategyBraces, Attempt: attemptBraces},
		{Name: StrategyRepair, Attempt: attemptRepair},
		{Name: StrategyDropMember, Attempt: attemptDropMember},
	}
}

// decodeObject strictly decodes s and requires an object at the root.
func decodeObject(s string) (*domain.Object, bool) {
	v, err := domain.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return v.AsObject()
}

func attemptDirect(raw string, _ bool) (*domain.Object, bool) {
	return decodeObject(strings.TrimSpace(raw))
}

// fenceOpen matches an opening code fence with an optional language tag.
var fenceOpen = regexp.MustCompile("```[A-Za-z]*[ \t]*\r?\n?")

func attemptFenced(raw string, _ bool) (*domain.Object, bool) {
	loc := fenceOpen.FindStringIndex(raw)
	if loc == nil {
		return nil, false
	}
	rest := raw[loc[1]:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	return decodeObject(strings.TrimSpace(rest[:end]))
}

// braceSpan returns the text from the first '{' to the last '}'.
func braceSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func attemptBraces(raw string, _ bool) (*domain.Object, bool) {
	span, ok := braceSpan(raw)
	if !ok {
		return nil, false
	}
	return decodeObject(span)
}

// attemptRepair strips trailing commas and, when the text is or looks
// truncated, cuts it after the last complete value and closes every
// container still open.
func attemptRepair(raw string, truncated bool) (*domain.Object, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, false
	}
	text := stripTrailingCommas(raw[start:])

	if span, ok := braceSpan(text); ok {
		if obj, ok := decodeObject(span); ok {
			return obj, true
		}
	}

	if !truncated && !LooksTruncated(text) {
		return nil, false
	}
	return cutAndClose(text)
}

// cutAndClose truncates text after its last complete value and closes it.
func cutAndClose(text string) (*domain.Object, bool) {
	cut, ok := lastCompleteCut(text)
	if !ok {
		return nil, false
	}
	return decodeObject(text[:cut.end] + cut.closers)
}

// keySearchWindow bounds how far before the last closer a key is sought.
const keySearchWindow = 500

// attemptDropMember deletes the last key/value pair before the final
// closing bracket and re-balances what remains.
func attemptDropMember(raw string, _ bool) (*domain.Object, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, false
	}
	text := raw[start:]

	closer := strings.LastIndexAny(text, "}]")
	if closer <= 0 {
		return nil, false
	}
	from := max(0, closer-keySearchWindow)
	colon := strings.LastIndexByte(text[from:closer], ':')
	if colon < 0 {
		return nil, false
	}
	colon += from

	keyEnd := strings.LastIndexByte(text[:colon], '"')
	if keyEnd <= 0 {
		return nil, false
	}
	keyStart := strings.LastIndexByte(text[:keyEnd], '"')
	if keyStart < 0 {
		return nil, false
	}

	prefix := strings.TrimRight(text[:keyStart], " \t\r\n")
	prefix = strings.TrimSuffix(prefix, ",")
	return cutAndClose(stripTrailingCommas(prefix))
}
