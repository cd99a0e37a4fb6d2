package reconcile

import (
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// seedFeatures prepares the feature list of a room or sub-area seen for
// the first time. Fragments are folded into the feature they belong to;
// nothing else is deduplicated.
func seedFeatures(features []domain.Feature) []domain.Feature {
	if features == nil {
		return nil
	}
	out := make([]domain.Feature, 0, len(features))
	for _, f := range features {
		if f.IsOpensIntoFragment() {
			out, _ = attachFragment(out, f)
			continue
		}
		out = append(out, f.Clone())
	}
	return out
}

// mergeFeatures folds incoming into existing. It returns the updated list
// and the number of incoming features appended.
func mergeFeatures(existing, incoming []domain.Feature) ([]domain.Feature, int) {
	added := 0
	for _, f := range incoming {
		if f.IsOpensIntoFragment() {
			if fragmentPresent(existing, f) {
				continue
			}
			existing, _ = attachFragment(existing, f)
			continue
		}
		if hasSignature(existing, f.Signature()) || subsumed(existing, f) {
			continue
		}
		if fillPartial(existing, f) {
			continue
		}
		existing = append(existing, f.Clone())
		added++
	}
	return existing, added
}

// fragmentAction is the action text a fragment carries: its own action
// description or, failing that, its mis-tagged feature type.
func fragmentAction(f domain.Feature) string {
	if f.HasAction() {
		return strings.TrimSpace(*f.ActionDescription)
	}
	if f.FeatureType == nil {
		return ""
	}
	return strings.TrimSpace(*f.FeatureType)
}

// attachFragment fills the most recent feature missing its dimensions or
// action from fragment f. The fragment is discarded either way; ok is
// false when no feature could take it.
func attachFragment(features []domain.Feature, f domain.Feature) ([]domain.Feature, bool) {
	for i := len(features) - 1; i >= 0; i-- {
		target := &features[i]
		if target.HasDimensions() && target.HasAction() {
			continue
		}
		if !target.HasDimensions() && f.HasDimensions() {
			target.DimensionsRaw = domain.StringPtr(*f.DimensionsRaw)
		}
		if !target.HasAction() {
			if action := fragmentAction(f); action != "" {
				target.ActionDescription = domain.StringPtr(action)
			}
		}
		return features, true
	}
	return features, false
}

// fragmentPresent reports whether an existing feature already carries
// everything fragment f would contribute.
func fragmentPresent(features []domain.Feature, f domain.Feature) bool {
	action := fragmentAction(f)
	for i := range features {
		e := &features[i]
		if !e.HasAction() || !strings.EqualFold(strings.TrimSpace(*e.ActionDescription), action) {
			continue
		}
		if !f.HasDimensions() || (e.HasDimensions() && e.Signature().Dimensions == f.Signature().Dimensions) {
			return true
		}
	}
	return false
}

func hasSignature(features []domain.Feature, sig domain.FeatureSignature) bool {
	for i := range features {
		if features[i].Signature() == sig {
			return true
		}
	}
	return false
}

// subsumed reports whether an existing feature of the same type already
// carries every field f has.
func subsumed(features []domain.Feature, f domain.Feature) bool {
	for i := range features {
		e := &features[i]
		if e.TypeKey() != f.TypeKey() {
			continue
		}
		if f.HasDimensions() && (!e.HasDimensions() || e.Signature().Dimensions != f.Signature().Dimensions) {
			continue
		}
		if f.HasAction() && (!e.HasAction() || !strings.EqualFold(
			strings.TrimSpace(*e.ActionDescription), strings.TrimSpace(*f.ActionDescription))) {
			continue
		}
		return true
	}
	return false
}

// fillPartial completes the first same-type feature that is missing a
// field f supplies. It reports whether one was found.
func fillPartial(features []domain.Feature, f domain.Feature) bool {
	for i := range features {
		e := &features[i]
		if e.TypeKey() != f.TypeKey() {
			continue
		}
		fillsDims := !e.HasDimensions() && f.HasDimensions()
		fillsAction := !e.HasAction() && f.HasAction()
		if !fillsDims && !fillsAction {
			continue
		}
		// A feature with different dimensions is a different feature.
		if e.HasDimensions() && f.HasDimensions() {
			continue
		}
		if fillsDims {
			e.DimensionsRaw = domain.StringPtr(*f.DimensionsRaw)
		}
		if fillsAction {
			e.ActionDescription = domain.StringPtr(*f.ActionDescription)
		}
		return true
	}
	return false
}
