package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
)

// ResultReader lists persisted results for a session.
type ResultReader interface {
	ListResults(ctx context.Context, code string) ([]domain.ResultRecord, error)
}

// RESTHandler serves read-only views of live and finalized sessions.
type RESTHandler struct {
	coordinator *app.Coordinator
	results     ResultReader
}

func NewRESTHandler(coordinator *app.Coordinator, results ResultReader) *RESTHandler {
	return &RESTHandler{coordinator: coordinator, results: results}
}

// Register mounts the REST routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/results/{code}", h.ServeResults)
	mux.HandleFunc("GET /api/sessions/{code}/leaderboard", h.ServeLeaderboard)
}

func (h *RESTHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	records, err := h.results.ListResults(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionCode": code,
		"results":     records,
	})
}

func (h *RESTHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.coordinator.Snapshot(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStateConflict):
		status = http.StatusConflict
	default:
		log.Printf("rest request failed: %v", err)
	}
	writeJSON(w, status, domain.NewErrorPayload(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
