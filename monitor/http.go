package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/clearwatch/clears"
	"github.com/hazyhaar/clearwatch/idgen"
	"github.com/hazyhaar/clearwatch/shield"
)

// Cell is one persisted clear as served by /state.
type Cell struct {
	Player string `json:"player"`
	Map    string `json:"map"`
	Value  string `json:"value"`
}

// Cells flattens a snapshot in player then map order.
func Cells(s clears.Snapshot) []Cell {
	out := make([]Cell, 0, len(s))
	for _, k := range s.Keys() {
		out = append(out, Cell{Player: k.Player, Map: k.Map, Value: s[k]})
	}
	return out
}

// Routes returns the status API:
//
//	GET /healthz       last run outcome
//	GET /runs?limit=N  run log, newest first
//	GET /state         persisted snapshot
func (m *Monitor) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(shield.RequestID(idgen.UUIDv7()))
	r.Use(shield.SecurityHeaders(shield.APIHeaders()))
	r.Use(shield.HeadToGet)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		last := m.Last()
		if last == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "starting"})
			return
		}
		code := http.StatusOK
		if last.Error != "" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":      last.Status,
			"run_id":      last.RunID,
			"finished_at": last.FinishedAt,
			"error":       last.Error,
		})
	})

	r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := m.Runs(r.Context(), queryInt(r, "limit", 20))
		if errors.Is(err, ErrNoRunLog) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.State(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, Cells(snap))
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
