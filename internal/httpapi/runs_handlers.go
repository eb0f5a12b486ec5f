package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/orchestrator"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

type RunsHandler struct {
	Orch *orchestrator.Orchestrator
}

type startRunRequest struct {
	Scraper string            `json:"scraper"`
	Params  map[string]string `json:"params,omitempty"`
	Wait    bool              `json:"wait,omitempty"`
}

// Start handles POST /runs. The caller identity travels in X-Triggered-By;
// auth itself lives outside this service.
func (h RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Scraper) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "scraper is required")
		return
	}
	triggeredBy := r.Header.Get("X-Triggered-By")
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	run, err := h.Orch.StartRun(r.Context(), req.Scraper, triggeredBy, scrape.Params(req.Params), req.Wait)
	switch {
	case errors.Is(err, domain.ErrRunConflict):
		writeError(w, http.StatusConflict, "run_conflict", err.Error())
	case errors.Is(err, domain.ErrScraperNotFound):
		writeError(w, http.StatusNotFound, "scraper_not_found", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	default:
		writeJSON(w, http.StatusAccepted, toRunResponse(run))
	}
}

// GetByPath handles GET /runs/{id} and POST /runs/{id}/cancel.
func (h RunsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id, ok := strings.CutSuffix(rest, "/cancel"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.cancel(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, err := h.Orch.GetRun(r.Context(), rest)
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run_not_found", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	default:
		writeJSON(w, http.StatusOK, toRunResponse(run))
	}
}

func (h RunsHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	err := h.Orch.CancelRun(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run_not_found", err.Error())
	case err != nil:
		writeError(w, http.StatusConflict, "cancel_rejected", err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "id": id})
	}
}

// List handles GET /runs?scraper=&status=&limit=.
func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.RunFilter{
		ScraperName: r.URL.Query().Get("scraper"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := domain.ParseRunStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		f.Status = status
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			f.Limit = n
		}
	}

	runs, err := h.Orch.ListHistory(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats handles GET /stats.
func (h RunsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Orch.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type runResponse struct {
	ID                   string  `json:"id"`
	ScraperName          string  `json:"scraper_name"`
	Status               string  `json:"status"`
	StartedAt            *string `json:"started_at,omitempty"`
	CompletedAt          *string `json:"completed_at,omitempty"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	JobsFound            int     `json:"jobs_found"`
	JobsNew              int     `json:"jobs_new"`
	JobsUpdated          int     `json:"jobs_updated"`
	JobsDuplicates       int     `json:"jobs_duplicates"`
	JobsErrors           int     `json:"jobs_errors"`
	ErrorMessage         string  `json:"error_message,omitempty"`
	TriggeredBy          string  `json:"triggered_by"`
}

func toRunResponse(run domain.ScraperJob) runResponse {
	resp := runResponse{
		ID:                   run.ID,
		ScraperName:          run.ScraperName,
		Status:               string(run.Status),
		ExecutionTimeSeconds: run.ExecutionTimeSeconds,
		JobsFound:            run.Counts.Found,
		JobsNew:              run.Counts.New,
		JobsUpdated:          run.Counts.Updated,
		JobsDuplicates:       run.Counts.Duplicates,
		JobsErrors:           run.Counts.Errors,
		ErrorMessage:         run.ErrorMessage,
		TriggeredBy:          run.TriggeredBy,
	}
	if run.StartedAt != nil {
		s := run.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
