package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/moltblock/internal/governance"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

type moltRequest struct {
	Trigger      string   `json:"trigger,omitempty"`
	ArtifactRefs []string `json:"artifact_refs,omitempty"`
}

type governanceHandler struct {
	rt     *Runtime
	gov    *governance.Governor
	logger *slog.Logger
}

func newGovernanceHandler(rt *Runtime, gov *governance.Governor) *governanceHandler {
	return &governanceHandler{
		rt:     rt,
		gov:    gov,
		logger: rt.Logger.With("handler", "governance"),
	}
}

func (h *governanceHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/governance",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Summary: "Governance status", Handler: h.status},
			{Method: "POST", Pattern: "/pause", Summary: "Pause under human veto", Handler: h.pause},
			{Method: "POST", Pattern: "/resume", Summary: "Lift the human veto", Handler: h.resume},
			{Method: "POST", Pattern: "/molt", Summary: "Molt into a new checkpoint", Handler: h.molt},
		},
	}
}

func (h *governanceHandler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.gov.Status(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, governance.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, st)
}

func (h *governanceHandler) pause(w http.ResponseWriter, r *http.Request) {
	if err := h.gov.Pause(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, governance.MapHTTPStatus(err), err)
		return
	}
	h.status(w, r)
}

func (h *governanceHandler) resume(w http.ResponseWriter, r *http.Request) {
	if err := h.gov.Resume(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, governance.MapHTTPStatus(err), err)
		return
	}
	h.status(w, r)
}

// molt triggers a molt. Denials respond 409 with the decision.
func (h *governanceHandler) molt(w http.ResponseWriter, r *http.Request) {
	var req moltRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(r, h.rt.MaxBodySize, &req); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
	}

	res, err := h.rt.Molt(r.Context(), req.Trigger, req.ArtifactRefs)
	if err != nil {
		handlers.RespondError(w, h.logger, mapMoltStatus(err), err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusConflict
	}
	handlers.RespondJSON(w, status, res)
}

func mapMoltStatus(err error) int {
	if status := store.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return governance.MapHTTPStatus(err)
}
