package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePartial(t *testing.T) {
	p := DecodePartial(decodeObject(t, `{
	  "document_metadata": {"claim": "C-1"},
	  "validation_summary": {"total_rules_checked": "3", "critical_flags": 1.0, "status": "flagged"},
	  "rooms": [{"name": "Kitchen"}, 7],
	  "grand_total_areas": {"total_sf": 900},
	  "summary_for_dwelling": "oops",
	  "Recap by Room": [{"room_name": "Kitchen"}],
	  "review_findings": []
	}`))

	require.NotNil(t, p.Metadata)
	require.Len(t, p.Rooms, 1)
	assert.NotNil(t, p.GrandTotalAreas)
	assert.Nil(t, p.SummaryForDwelling)
	assert.Len(t, p.RoomRecap, 1)
	assert.NotNil(t, p.ReviewFindings)
	assert.Nil(t, p.TaxRecap)
	require.NotNil(t, p.Summary)
	assert.Equal(t, ValidationSummary{TotalRulesChecked: 3, CriticalFlags: 1, Status: StatusFlagged}, *p.Summary)
	assert.False(t, p.IsEmpty())
}

func TestDecodePartial_AreasFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"rooms absent", `{"areas": [{"name": "Porch"}]}`, []string{"Porch"}},
		{"rooms null", `{"rooms": null, "areas": [{"name": "Porch"}]}`, []string{"Porch"}},
		{"rooms empty", `{"rooms": [], "areas": [{"name": "Porch"}]}`, []string{"Porch"}},
		{"rooms without objects", `{"rooms": ["Kitchen"], "areas": [{"name": "Porch"}]}`, []string{"Porch"}},
		{"rooms win", `{"rooms": [{"name": "Kitchen"}], "areas": [{"name": "Porch"}]}`, []string{"Kitchen"}},
		{"both empty", `{"rooms": [], "areas": null}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DecodePartial(decodeObject(t, tt.raw))
			require.NotNil(t, p.Rooms)
			names := []string{}
			for _, r := range p.Rooms {
				names = append(names, *r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDecodePartial_Empty(t *testing.T) {
	p := DecodePartial(nil)
	assert.True(t, p.IsEmpty())

	q := DecodePartial(NewObject())
	assert.True(t, q.IsEmpty())
}

func TestCanonicalDocument_KeyOrder(t *testing.T) {
	d := NewCanonicalDocument()
	d.Rooms = []Room{{Name: StringPtr("Kitchen")}}
	d.Unparsed = []UnparsedResponse{{ChunkIndex: 2, Warning: "w", Raw: "r"}}
	d.Run = NewObject()
	d.Run.Set("run_id", String("abc"))

	obj := d.ToObject()
	assert.Equal(t, []string{
		KeyDocumentMetadata, KeyValidationSummary, KeyRooms, KeyGrandTotalAreas, KeySummaryForDwelling,
		KeyTaxRecap, KeyRoomRecap, KeyCategoryRecap, KeyReviewFindings, KeyUnparsedResponses, KeyMetadata,
	}, obj.Keys())
}

func TestCanonicalDocument_MarshalIndent(t *testing.T) {
	d := NewCanonicalDocument()
	raw, err := d.MarshalIndent()
	require.NoError(t, err)

	assert.Contains(t, string(raw), "\n  \"validation_summary\": {\n    \"total_rules_checked\": 0,")
	assert.Equal(t, byte('\n'), raw[len(raw)-1])
	assert.NotContains(t, string(raw), KeyUnparsedResponses)
}

func TestDecodeCanonical_RoundTrip(t *testing.T) {
	d := NewCanonicalDocument()
	d.Metadata.Set("claim", String("C-9"))
	d.Summary = ValidationSummary{TotalRulesChecked: 4, CriticalFlags: 1, Status: StatusFlagged}
	d.Rooms = []Room{{Name: StringPtr("Kitchen"), LineItems: []LineItem{}, SubAreas: []SubArea{}, Validations: []Validation{}}}
	d.ReviewFindings = []Value{String("check roof")}
	d.Unparsed = []UnparsedResponse{{ChunkIndex: 1, Warning: "w", Raw: "raw text"}}
	d.Run = NewObject()
	d.Run.Set("run_id", String("abc"))

	raw, err := d.MarshalJSON()
	require.NoError(t, err)
	v, err := DecodeValue(raw)
	require.NoError(t, err)
	obj, _ := v.AsObject()

	back := DecodeCanonical(obj)
	again, err := back.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again))
	assert.Equal(t, d.Summary, back.Summary)
	require.Len(t, back.Unparsed, 1)
	assert.Equal(t, "raw text", back.Unparsed[0].Raw)
}

func TestParseCanonical(t *testing.T) {
	doc, err := ParseCanonical([]byte(`{"validation_summary":{"status":"FLAGGED","critical_flags":2},"rooms":[{"name":"Den"}]}`))
	require.NoError(t, err)
	assert.Equal(t, StatusFlagged, doc.Summary.Status)
	assert.Equal(t, 2, doc.Summary.CriticalFlags)
	require.Len(t, doc.Rooms, 1)
	assert.Equal(t, "den", doc.Rooms[0].NameKey())

	_, err = ParseCanonical([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseCanonical([]byte(`{"rooms":`))
	assert.Error(t, err)
}
