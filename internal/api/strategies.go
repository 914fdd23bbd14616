package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/pagination"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

// ErrContentRequired is returned when a strategy body has no content.
var ErrContentRequired = errors.New("content required")

type strategyRequest struct {
	Content string `json:"content"`
}

type strategyResponse struct {
	Role    string                          `json:"role"`
	Current *store.Strategy                 `json:"current"`
	History pagination.List[store.Strategy] `json:"history"`
}

type strategiesHandler struct {
	rt     *Runtime
	logger *slog.Logger
}

func newStrategiesHandler(rt *Runtime) *strategiesHandler {
	return &strategiesHandler{
		rt:     rt,
		logger: rt.Logger.With("handler", "strategies"),
	}
}

func (h *strategiesHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/strategies",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{role}", Summary: "Current strategy and history", Handler: h.get},
			{Method: "POST", Pattern: "/{role}", Summary: "Store a strategy version", Handler: h.set},
		},
	}
}

func (h *strategiesHandler) get(w http.ResponseWriter, r *http.Request) {
	role, err := agents.ParseRole(r.PathValue("role"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	limit, err := pagination.Limit(r.URL.Query(), h.rt.Pagination)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	s := h.rt.Store("")
	resp := strategyResponse{Role: string(role)}

	current, err := s.CurrentStrategy(r.Context(), string(role))
	switch {
	case err == nil:
		resp.Current = &current
	case !errors.Is(err, store.ErrNotFound):
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	history, err := s.StrategyHistory(r.Context(), string(role), limit)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}
	resp.History = pagination.NewList(history, limit)

	handlers.RespondJSON(w, http.StatusOK, resp)
}

func (h *strategiesHandler) set(w http.ResponseWriter, r *http.Request) {
	role, err := agents.ParseRole(r.PathValue("role"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var req strategyRequest
	if err := handlers.DecodeJSON(r, h.rt.MaxBodySize, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrContentRequired)
		return
	}

	st, err := h.rt.Store("").SetStrategy(r.Context(), string(role), req.Content)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, st)
}
