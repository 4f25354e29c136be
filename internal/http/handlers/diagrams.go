package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"diagramgen/internal/domain"
)

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobStatusResponse struct {
	JobID       string            `json:"job_id"`
	Status      domain.JobStatus  `json:"status"`
	Progress    int               `json:"progress"`
	Stage       string            `json:"stage"`
	DiagramType string            `json:"diagram_type"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Result      *domain.JobResult `json:"result,omitempty"`
	Error       *domain.JobError  `json:"error,omitempty"`
}

// Generate submits a diagram generation request and returns the job id
// for polling. Validation failures are rejected here, before any job
// exists.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.DiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	jobID, err := a.Conductor.Submit(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) || errors.Is(err, domain.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.json(w, http.StatusAccepted, jobResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}

// Status returns the job snapshot for polling.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Store.Get(jobID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job "+jobID+" not found")
		return
	}

	resp := jobStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Stage:       job.Stage,
		DiagramType: job.Request.DiagramType,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		Result:      job.Result,
		Error:       job.Error,
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		resp.CompletedAt = &completed
	}
	a.json(w, http.StatusOK, resp)
}

// Stats reports the job census and conductor counters.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"job_stats": a.Store.Stats(),
		"generator": a.Conductor.Metrics(),
	})
}

type typeInfo struct {
	Type       string                  `json:"type"`
	Name       string                  `json:"name"`
	Method     domain.GenerationMethod `json:"method"`
	MinGrid    domain.GridSize         `json:"min_grid"`
	NodeLimits map[string]int          `json:"node_limits"`
}

// Types lists the supported diagram catalog.
func (a *App) Types(w http.ResponseWriter, r *http.Request) {
	titler := cases.Title(language.English)
	entries := a.Catalog.All()

	out := make([]typeInfo, 0, len(entries))
	for name, spec := range entries {
		out = append(out, typeInfo{
			Type:    name,
			Name:    titler.String(strings.ReplaceAll(name, "_", " ")),
			Method:  spec.Method,
			MinGrid: spec.MinGrid,
			NodeLimits: map[string]int{
				"small":  spec.NodeLimits.Small,
				"medium": spec.NodeLimits.Medium,
				"large":  spec.NodeLimits.Large,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

	a.json(w, http.StatusOK, map[string]any{"types": out})
}
