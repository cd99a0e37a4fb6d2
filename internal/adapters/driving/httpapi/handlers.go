package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// ProcessRequest is the body of POST /v1/estimates.
type ProcessRequest struct {
	// Name is the source document name, used for the output name.
	Name string `json:"name"`

	// Text is the extracted estimate text.
	Text string `json:"text" binding:"required"`
}

// ReconcileRequest is the body of POST /v1/reconcile.
type ReconcileRequest struct {
	// Responses are raw chunk responses in chunk order.
	Responses []string `json:"responses" binding:"required,min=1"`
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Raw       string `json:"raw" binding:"required"`
	Truncated bool   `json:"truncated"`
}

// RunView is the JSON form of a run.
type RunView struct {
	ID             string           `json:"id"`
	Document       string           `json:"document"`
	Output         string           `json:"output"`
	Model          string           `json:"model"`
	Status         domain.RunStatus `json:"status"`
	Chunked        bool             `json:"chunked"`
	ChunkCount     int              `json:"chunk_count"`
	FailedChunks   []int            `json:"failed_chunks"`
	UnparsedChunks []int            `json:"unparsed_chunks"`
	Rooms          int              `json:"rooms"`
	CriticalFlags  int              `json:"critical_flags"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// NewRunView converts a run.
func NewRunView(r *domain.Run) RunView {
	return RunView{
		ID:             r.ID,
		Document:       r.DocumentName,
		Output:         r.OutputName,
		Model:          r.Model,
		Status:         r.Status,
		Chunked:        r.Chunked,
		ChunkCount:     r.ChunkCount,
		FailedChunks:   ints(r.FailedChunks),
		UnparsedChunks: ints(r.UnparsedChunks),
		Rooms:          r.RoomCount,
		CriticalFlags:  r.CriticalFlags,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

// processResponse keeps the canonical document's key order.
type processResponse struct {
	Run      RunView               `json:"run"`
	Chunks   []driving.ChunkReport `json:"chunks"`
	Document json.RawMessage       `json:"document"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) processEstimate(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "estimate.txt"
	}
	res, err := s.ports.Estimate.ProcessText(c.Request.Context(), name, req.Text)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	doc, err := res.Document.MarshalJSON()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "encode", err)
		return
	}
	body, err := json.Marshal(processResponse{
		Run:      NewRunView(res.Run),
		Chunks:   res.Chunks,
		Document: doc,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "encode", err)
		return
	}
	respondRaw(c, http.StatusOK, body)
}

func (s *Server) reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	doc, err := s.ports.Estimate.Reconcile(c.Request.Context(), req.Responses)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "encode", err)
		return
	}
	respondRaw(c, http.StatusOK, data)
}

func (s *Server) parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res := s.ports.Estimate.Parse(c.Request.Context(), req.Raw, req.Truncated)
	obj := []byte("null")
	if res.Object != nil {
		data, err := res.Object.MarshalJSON()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "encode", err)
			return
		}
		obj = data
	}
	body, err := json.Marshal(struct {
		Strategy string          `json:"strategy"`
		Object   json.RawMessage `json:"object"`
	}{res.Strategy, obj})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "encode", err)
		return
	}
	respondRaw(c, http.StatusOK, body)
}

func (s *Server) listRules(c *gin.Context) {
	rules, err := s.ports.Estimate.Rules(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if rules == nil {
		rules = []domain.Rule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.ports.Runs == nil {
		respondError(c, http.StatusNotImplemented, "no_run_store", errors.New("run history is not enabled"))
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	var (
		runs []domain.Run
		err  error
	)
	if doc := c.Query("document"); doc != "" {
		runs, err = s.ports.Runs.ListByDocument(c.Request.Context(), doc)
	} else {
		runs, err = s.ports.Runs.List(c.Request.Context(), limit)
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := make([]RunView, len(runs))
	for i := range runs {
		out[i] = NewRunView(&runs[i])
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) getRun(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewRunView(run))
}

func (s *Server) getRunDocument(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	if len(run.Canonical) == 0 {
		respondError(c, http.StatusNotFound, "not_found", errors.New("run has no saved document"))
		return
	}
	respondRaw(c, http.StatusOK, run.Canonical)
}

func (s *Server) lookupRun(c *gin.Context) (*domain.Run, bool) {
	if s.ports.Runs == nil {
		respondError(c, http.StatusNotImplemented, "no_run_store", errors.New("run history is not enabled"))
		return nil, false
	}
	run, err := s.ports.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return nil, false
	}
	return run, true
}

func ints(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}
