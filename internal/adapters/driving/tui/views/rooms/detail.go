package rooms

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// renderRoom formats one room for the detail pane.
func renderRoom(s *styles.Styles, room *domain.Room, width int) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(list.RoomTitle(room)))
	b.WriteString("\n")
	if room.Grouping != nil && *room.Grouping != "" {
		b.WriteString(s.Muted.Render(*room.Grouping))
		b.WriteString("\n")
	}
	if dims := dimensionsText(room.Dimensions); dims != "" {
		b.WriteString(s.Label.Render("Dimensions: "))
		b.WriteString(truncate(dims, width-12))
		b.WriteString("\n")
	}

	section(&b, s, "Line items", len(room.LineItems))
	writeLineItems(&b, s, room.LineItems, "  ", width)

	if len(room.SubAreas) > 0 {
		section(&b, s, "Sub-areas", len(room.SubAreas))
		for i := range room.SubAreas {
			sa := &room.SubAreas[i]
			name := "(unnamed)"
			if sa.Name != nil && *sa.Name != "" {
				name = *sa.Name
			}
			b.WriteString("  " + s.Subtitle.Render(name) + "\n")
			writeLineItems(&b, s, sa.LineItems, "    ", width)
			writeFeatures(&b, s, sa.Features, "    ", width)
		}
	}

	section(&b, s, "Features", len(room.Features))
	writeFeatures(&b, s, room.Features, "  ", width)

	if flagged := list.FlaggedCount(room); flagged > 0 {
		section(&b, s, fmt.Sprintf("Validations (%d flagged)", flagged), len(room.Validations))
	} else {
		section(&b, s, "Validations", len(room.Validations))
	}
	for i := range room.Validations {
		v := &room.Validations[i]
		status := strings.ToUpper(strings.TrimSpace(deref(v.Status)))
		line := fmt.Sprintf("  %-14s ", v.RuleKey()) + s.Status(status).Render(status)
		b.WriteString(line + "\n")
		if d := v.Details.Text(); d != "" {
			b.WriteString(s.Muted.Render(indent(truncate(d, width-6), "    ")) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, s *styles.Styles, title string, n int) {
	b.WriteString("\n")
	b.WriteString(s.Label.Render(fmt.Sprintf("%s (%d)", title, n)))
	b.WriteString("\n")
}

func writeLineItems(b *strings.Builder, s *styles.Styles, items []domain.LineItem, prefix string, width int) {
	for _, li := range items {
		desc := li.Description().Text()
		if desc == "" {
			desc = "(no description)"
		}
		qty := li.Quantity().Text()
		line := prefix + truncate(desc, width-len(prefix)-14)
		if qty != "" {
			line += "  " + s.Muted.Render(qty)
		}
		b.WriteString(line + "\n")
	}
}

func writeFeatures(b *strings.Builder, s *styles.Styles, features []domain.Feature, prefix string, width int) {
	for i := range features {
		f := &features[i]
		line := prefix + deref(f.FeatureType)
		if f.HasDimensions() {
			line += " " + s.Muted.Render(*f.DimensionsRaw)
		}
		b.WriteString(line + "\n")
		if f.HasAction() {
			b.WriteString(s.Muted.Render(prefix+"  "+truncate(*f.ActionDescription, width-len(prefix)-2)) + "\n")
		}
	}
}

// dimensionsText renders an object of measurements as "k: v" pairs.
func dimensionsText(v domain.Value) string {
	if obj, ok := v.AsObject(); ok {
		parts := make([]string, 0, obj.Len())
		for _, k := range obj.Keys() {
			val, _ := obj.Get(k)
			if val.IsBlank() {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.Text()))
		}
		return strings.Join(parts, ", ")
	}
	return v.Text()
}

func truncate(s string, n int) string {
	if n < 8 {
		n = 8
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
