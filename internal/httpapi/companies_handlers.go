package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

type CompaniesHandler struct {
	Companies *store.CompanyStore
}

type companyResponse struct {
	NormalizedName string  `json:"normalized_name"`
	OperationType  string  `json:"operation_type"`
	CountryCode    string  `json:"country_code,omitempty"`
	TotalJobs      int     `json:"total_jobs"`
	ActiveJobs     int     `json:"active_jobs"`
	LastJobDate    *string `json:"last_job_date,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ListUnknown serves the manual classification review queue.
func (h CompaniesHandler) ListUnknown(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	mappings, err := h.Companies.ListUnknown(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "listing unknown companies failed")
		return
	}

	out := make([]companyResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, toCompanyResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}

func toCompanyResponse(m domain.CompanyMapping) companyResponse {
	resp := companyResponse{
		NormalizedName: m.NormalizedName,
		OperationType:  string(m.OperationType),
		CountryCode:    m.CountryCode,
		TotalJobs:      m.TotalJobs,
		ActiveJobs:     m.ActiveJobs,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.LastJobDate != nil {
		s := m.LastJobDate.UTC().Format(time.RFC3339)
		resp.LastJobDate = &s
	}
	return resp
}
