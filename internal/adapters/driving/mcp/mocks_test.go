package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// mockEstimateService is a mock implementation of driving.EstimateService.
type mockEstimateService struct {
	err          error
	rules        []domain.Rule
	gotName      string
	gotResponses []string
}

func (m *mockEstimateService) Pending(_ context.Context) ([]string, error) { return nil, m.err }

func (m *mockEstimateService) Process(ctx context.Context, name string) (*driving.ProcessResult, error) {
	return m.ProcessText(ctx, name, "")
}

func (m *mockEstimateService) ProcessText(_ context.Context, name, _ string) (*driving.ProcessResult, error) {
	m.gotName = name
	if m.err != nil {
		return nil, m.err
	}
	doc := domain.NewCanonicalDocument()
	doc.Rooms = []domain.Room{{Name: domain.StringPtr("Kitchen")}}
	return &driving.ProcessResult{
		Run: &domain.Run{
			ID: "run-1", DocumentName: name, OutputName: "estimate.json",
			ChunkCount: 2, UnparsedChunks: []int{1}, RoomCount: 1,
			Status: domain.RunStatusPartial,
		},
		Document: doc,
	}, nil
}

func (m *mockEstimateService) Plan(_ string) domain.ChunkPlan { return domain.ChunkPlan{} }

func (m *mockEstimateService) Parse(_ context.Context, raw string, _ bool) driving.ParsedResponse {
	if raw == "garbage" {
		return driving.ParsedResponse{Strategy: "unparsed"}
	}
	obj := domain.NewObject()
	obj.Set(domain.KeyRooms, domain.List())
	return driving.ParsedResponse{
		Strategy: "direct",
		Object:   obj,
		Partial:  domain.PartialDocument{Rooms: []domain.Room{{}}},
	}
}

func (m *mockEstimateService) Reconcile(_ context.Context, responses []string) (*domain.CanonicalDocument, error) {
	m.gotResponses = responses
	if m.err != nil {
		return nil, m.err
	}
	doc := domain.NewCanonicalDocument()
	doc.Summary = domain.ValidationSummary{TotalRulesChecked: 3, CriticalFlags: 1, Status: domain.StatusFlagged}
	return doc, nil
}

func (m *mockEstimateService) Rules(_ context.Context) ([]domain.Rule, error) {
	return m.rules, m.err
}

// mockRunService is a mock implementation of driving.RunService.
type mockRunService struct {
	runs []domain.Run
	err  error
}

func (m *mockRunService) List(_ context.Context, limit int) ([]domain.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockRunService) Get(_ context.Context, id string) (*domain.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunService) ListByDocument(_ context.Context, name string) ([]domain.Run, error) {
	var out []domain.Run
	for _, r := range m.runs {
		if r.DocumentName == name {
			out = append(out, r)
		}
	}
	return out, m.err
}

func sampleRuns() []domain.Run {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Run{
		{ID: "r3", DocumentName: "b.txt", OutputName: "b.json", Status: domain.RunStatusCompleted, StartedAt: start.Add(2 * time.Hour)},
		{ID: "r2", DocumentName: "a.txt", OutputName: "a.json", Status: domain.RunStatusPartial, StartedAt: start.Add(time.Hour)},
		{ID: "r1", DocumentName: "a.txt", OutputName: "a.json", Status: domain.RunStatusCompleted,
			RoomCount: 2, CriticalFlags: 1, StartedAt: start, Canonical: []byte(`{"rooms":[]}`)},
	}
}
