// Package reconcile merges the partial documents produced for each chunk
// into one canonical document.
//
// Reconciliation is a sequential fold in chunk order. It never fails: a
// field of an unexpected shape is skipped for that field only.
package reconcile

import (
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

// Reconciler folds partial documents into a canonical document.
type Reconciler struct {
	merger *RoomMerger
	log    *logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New creates a reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.merger = NewRoomMerger(r.log)
	return r
}

// Reconcile merges partials, which must be in chunk order, into one
// document. rules is the rule list the chunks were validated against.
func (r *Reconciler) Reconcile(partials []domain.PartialDocument, rules []domain.Rule) *domain.CanonicalDocument {
	doc := domain.NewCanonicalDocument()

	recaps := map[string]*recapList{}
	for _, name := range []string{domain.KeyTaxRecap, domain.KeyRoomRecap, domain.KeyCategoryRecap, domain.KeyReviewFindings} {
		recaps[name] = newRecapList(name)
	}

	var rooms []domain.Room
	var chunkSummary domain.ValidationSummary
	usable := 0

	for i, p := range partials {
		if p.Unparsed != nil {
			u := *p.Unparsed
			doc.Unparsed = append(doc.Unparsed, u)
			r.log.Warn("reconcile.chunk.unparsed", "chunk", i+1)
			continue
		}
		if p.IsEmpty() {
			r.log.Warn("reconcile.chunk.empty", "chunk", i+1)
			continue
		}
		usable++

		if i == 0 && p.Metadata != nil {
			doc.Metadata = p.Metadata.Clone()
		}
		rooms = append(rooms, p.Rooms...)

		if p.Summary != nil {
			chunkSummary.TotalRulesChecked += p.Summary.TotalRulesChecked
			chunkSummary.CriticalFlags += p.Summary.CriticalFlags
		}
		if p.GrandTotalAreas != nil {
			fillTotals(doc.GrandTotalAreas, p.GrandTotalAreas)
		}
		if p.SummaryForDwelling != nil {
			fillTotals(doc.SummaryForDwelling, p.SummaryForDwelling)
		}
		recaps[domain.KeyTaxRecap].add(p.TaxRecap)
		recaps[domain.KeyRoomRecap].add(p.RoomRecap)
		recaps[domain.KeyCategoryRecap].add(p.CategoryRecap)
		recaps[domain.KeyReviewFindings].add(p.ReviewFindings)
	}

	doc.Rooms = r.merger.Merge(rooms)
	doc.TaxRecap = recaps[domain.KeyTaxRecap].items
	doc.RoomRecap = recaps[domain.KeyRoomRecap].items
	doc.CategoryRecap = recaps[domain.KeyCategoryRecap].items
	doc.ReviewFindings = recaps[domain.KeyReviewFindings].items

	switch {
	case usable == 0:
		doc.Summary = domain.ValidationSummary{Status: domain.StatusPassed}
	case len(rules) > 0:
		doc.Summary = domain.ValidationSummary{
			TotalRulesChecked: len(rules),
			CriticalFlags:     CountFlags(doc.Rooms),
		}
	default:
		doc.Summary = chunkSummary
	}
	doc.Summary.Status = domain.StatusPassed
	if doc.Summary.CriticalFlags > 0 {
		doc.Summary.Status = domain.StatusFlagged
	}

	r.log.Info("reconcile.done",
		"chunks", len(partials),
		"usable", usable,
		"unparsed", len(doc.Unparsed),
		"rooms", len(doc.Rooms),
		"rules_checked", doc.Summary.TotalRulesChecked,
		"critical_flags", doc.Summary.CriticalFlags,
	)
	return doc
}

// CountFlags counts FLAGGED validations across rooms.
func CountFlags(rooms []domain.Room) int {
	n := 0
	for i := range rooms {
		for j := range rooms[i].Validations {
			if rooms[i].Validations[j].IsFlagged() {
				n++
			}
		}
	}
	return n
}
