package httpapi

import (
	"context"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

type mockEstimateService struct {
	processErr   error
	reconcileErr error
	rulesErr     error
	rules        []domain.Rule
	gotName      string
	gotText      string
	gotResponses []string
}

func (m *mockEstimateService) Pending(_ context.Context) ([]string, error) { return nil, nil }

func (m *mockEstimateService) Process(ctx context.Context, name string) (*driving.ProcessResult, error) {
	return m.ProcessText(ctx, name, "")
}

func (m *mockEstimateService) ProcessText(_ context.Context, name, text string) (*driving.ProcessResult, error) {
	m.gotName, m.gotText = name, text
	if m.processErr != nil {
		return nil, m.processErr
	}
	doc := domain.NewCanonicalDocument()
	doc.Rooms = []domain.Room{{Name: domain.StringPtr("Kitchen")}}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &driving.ProcessResult{
		Run: &domain.Run{
			ID: "run-1", DocumentName: name, OutputName: "estimate.json", Model: "mock-model",
			ChunkCount: 1, RoomCount: 1, Status: domain.RunStatusCompleted,
			StartedAt: start, FinishedAt: start.Add(time.Second),
		},
		Document: doc,
		Chunks:   []driving.ChunkReport{{Index: 0, Strategy: "direct", Attempts: 1, Rooms: 1}},
	}, nil
}

func (m *mockEstimateService) Plan(_ string) domain.ChunkPlan { return domain.ChunkPlan{} }

func (m *mockEstimateService) Parse(_ context.Context, raw string, _ bool) driving.ParsedResponse {
	if raw == "garbage" {
		return driving.ParsedResponse{Strategy: "unparsed"}
	}
	obj := domain.NewObject()
	obj.Set("rooms", domain.List())
	return driving.ParsedResponse{Strategy: "direct", Object: obj}
}

func (m *mockEstimateService) Reconcile(_ context.Context, responses []string) (*domain.CanonicalDocument, error) {
	m.gotResponses = responses
	if m.reconcileErr != nil {
		return nil, m.reconcileErr
	}
	return domain.NewCanonicalDocument(), nil
}

func (m *mockEstimateService) Rules(_ context.Context) ([]domain.Rule, error) {
	return m.rules, m.rulesErr
}

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
	return out, nil
}
