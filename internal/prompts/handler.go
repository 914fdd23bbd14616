package prompts

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

const maxPromptBody = 256 << 10

// Handler provides HTTP endpoints for the domain prompt registry.
type Handler struct {
	registry *Registry
	logger   *slog.Logger
}

// DomainPrompts is the response type for a single domain.
type DomainPrompts struct {
	Domain string `json:"domain"`
	Prompts
}

// NewHandler creates a Handler over registry.
func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger.With("handler", "prompts"),
	}
}

// Routes returns the route group definition for prompt endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/prompts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Summary: "Prompt domains", Handler: h.List},
			{Method: "GET", Pattern: "/{domain}", Summary: "Domain prompts", Handler: h.Find},
			{Method: "PUT", Pattern: "/{domain}", Summary: "Register domain prompts", Handler: h.Register},
			{Method: "DELETE", Pattern: "/{domain}", Summary: "Remove a domain", Handler: h.Remove},
		},
	}
}

// List returns the registered domain names.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.registry.List())
}

// Find returns the prompts registered for a domain.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")

	p, err := h.registry.Lookup(domain)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, DomainPrompts{Domain: domain, Prompts: p})
}

// Register adds or replaces the prompts for a domain.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")

	var p Prompts
	if err := handlers.DecodeJSON(r, maxPromptBody, &p); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.registry.Register(domain, p); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, DomainPrompts{Domain: domain, Prompts: h.registry.Get(domain)})
}

// Remove deletes a registered domain.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Remove(r.PathValue("domain")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
