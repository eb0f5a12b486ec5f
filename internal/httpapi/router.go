package httpapi

import (
	"net/http"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/events"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/orchestrator"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

type Deps struct {
	Orch      *orchestrator.Orchestrator
	Companies *store.CompanyStore
	Hub       *events.Hub
}

// NewMux wires the caller-boundary endpoints. The transport layer stays thin:
// handlers translate HTTP to orchestrator calls and back, nothing more.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	rh := RunsHandler{Orch: d.Orch}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  rh.List,
		http.MethodPost: rh.Start,
	}))
	mux.HandleFunc("/runs/", rh.GetByPath) // /runs/{id}, /runs/{id}/cancel
	mux.HandleFunc("/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Stats,
	}))

	ch := CompaniesHandler{Companies: d.Companies}
	mux.HandleFunc("/companies/unknown", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.ListUnknown,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
	})

	return mux
}
