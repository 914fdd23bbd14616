package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/moltblock/internal/gateway"
	"github.com/JaimeStill/moltblock/internal/governance"
	"github.com/JaimeStill/moltblock/internal/runner"
	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

var (
	// ErrTaskRequired is returned when a run request has no task.
	ErrTaskRequired = errors.New("task required")
	// ErrTestCodeDisabled is returned when a run request carries test code
	// and api.allow_test_code is off.
	ErrTestCodeDisabled = errors.New("test code is not accepted over HTTP; set api.allow_test_code to enable")
)

type runRequest struct {
	Task            string `json:"task"`
	TestCode        string `json:"test_code,omitempty"`
	WriteCheckpoint bool   `json:"write_checkpoint,omitempty"`
	ContinueOnError bool   `json:"continue_on_error,omitempty"`
}

type runsHandler struct {
	rt     *Runtime
	exec   runner.Executor
	gov    *governance.Governor
	logger *slog.Logger
}

func newRunsHandler(rt *Runtime, exec runner.Executor, gov *governance.Governor) *runsHandler {
	return &runsHandler{
		rt:     rt,
		exec:   exec,
		gov:    gov,
		logger: rt.Logger.With("handler", "runs"),
	}
}

func (h *runsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Summary: "Run a task", Handler: h.create},
		},
	}
}

func (h *runsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := handlers.DecodeJSON(r, h.rt.MaxBodySize, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrTaskRequired)
		return
	}

	if req.TestCode != "" && !h.rt.AllowTestCode {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrTestCodeDisabled)
		return
	}

	if err := h.gov.RequireActive(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, governance.MapHTTPStatus(err), err)
		return
	}

	mem, err := h.exec.Run(r.Context(), req.Task, runner.Options{
		TestCode:             req.TestCode,
		Store:                h.rt.Store(""),
		EntityVersion:        h.rt.Config.Entity.Version,
		WriteCheckpointAfter: req.WriteCheckpoint,
		ContinueOnError:      req.ContinueOnError,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, mapRunStatus(err), fmt.Errorf("run: %w", err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, runner.NewResult(mem))
}

func mapRunStatus(err error) int {
	var te *gateway.TransportError
	switch {
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.Is(err, governance.ErrPaused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
