package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/moltblock/internal/handoff"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/pagination"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

// ErrRecipientRequired is returned when a handoff names no recipient.
var ErrRecipientRequired = errors.New("recipient required")

type sendRequest struct {
	Recipient   string `json:"recipient"`
	Content     string `json:"content"`
	ArtifactRef string `json:"artifact_ref,omitempty"`
}

type sendResponse struct {
	Recipient   string `json:"recipient"`
	ArtifactRef string `json:"artifact_ref"`
}

type inboxHandler struct {
	rt     *Runtime
	logger *slog.Logger
}

func newInboxHandler(rt *Runtime) *inboxHandler {
	return &inboxHandler{
		rt:     rt,
		logger: rt.Logger.With("handler", "inbox"),
	}
}

func (h *inboxHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/inbox",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Summary: "Received artifacts", Handler: h.list},
			{Method: "POST", Pattern: "", Summary: "Send a signed artifact", Handler: h.send},
		},
	}
}

// list returns this entity's inbox. Signatures are checked unless verify=false.
func (h *inboxHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.Limit(r.URL.Query(), h.rt.Pagination)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	skip := false
	if v := r.URL.Query().Get("verify"); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		skip = !verify
	}

	artifacts, err := handoff.Receive(r.Context(), h.rt.Store(""), handoff.ReceiveOptions{
		Limit:      limit,
		SkipVerify: skip,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pagination.NewList(artifacts, limit))
}

// send signs content as this entity and delivers it to the recipient's inbox.
func (h *inboxHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := handlers.DecodeJSON(r, h.rt.MaxBodySize, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if req.Recipient == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrRecipientRequired)
		return
	}

	ref, err := handoff.Send(
		r.Context(),
		h.rt.Config.Entity.ID,
		h.rt.Store(req.Recipient),
		req.Content,
		req.ArtifactRef,
	)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, sendResponse{Recipient: req.Recipient, ArtifactRef: ref})
}
