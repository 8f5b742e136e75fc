package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/handlers/response"
)

type problemLister interface {
	ListProblems(ctx context.Context) ([]domain.ProblemSummary, error)
}

// HealthHandler reports liveness and the catalog size
type HealthHandler struct {
	problems problemLister
}

func NewHealthHandler(problems problemLister) *HealthHandler {
	return &HealthHandler{problems: problems}
}

func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.problems.ListProblems(r.Context())
	if err != nil {
		response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	response.WriteSuccess(w, map[string]interface{}{
		"status":   "ok",
		"problems": len(summaries),
	})
}
