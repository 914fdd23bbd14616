package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/pagination"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

type recordsHandler struct {
	rt     *Runtime
	logger *slog.Logger
}

func newRecordsHandler(rt *Runtime) *recordsHandler {
	return &recordsHandler{
		rt:     rt,
		logger: rt.Logger.With("handler", "records"),
	}
}

func (h *recordsHandler) routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/checkpoints", Summary: "Checkpoints", Handler: listHandler(h, (*store.Store).ListCheckpoints)},
			{Method: "GET", Pattern: "/outcomes", Summary: "Run outcomes", Handler: listHandler(h, (*store.Store).RecentOutcomes)},
			{Method: "GET", Pattern: "/verified", Summary: "Verified memory", Handler: listHandler(h, (*store.Store).RecentVerified)},
			{Method: "GET", Pattern: "/audit", Summary: "Governance audit log", Handler: listHandler(h, (*store.Store).AuditLog)},
		},
	}
}

func listHandler[T any](h *recordsHandler, list func(*store.Store, context.Context, int) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := pagination.Limit(r.URL.Query(), h.rt.Pagination)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}

		rows, err := list(h.rt.Store(""), r.Context(), limit)
		if err != nil {
			handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
			return
		}

		handlers.RespondJSON(w, http.StatusOK, pagination.NewList(rows, limit))
	}
}
