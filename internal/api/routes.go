package api

import (
	"net/http"

	"github.com/JaimeStill/moltblock/pkg/handlers"
	"github.com/JaimeStill/moltblock/pkg/routes"
)

type index struct {
	EntityID  string            `json:"entity_id"`
	Version   string            `json:"version"`
	Endpoints []routes.Endpoint `json:"endpoints"`
}

func registerRoutes(mux *http.ServeMux, rt *Runtime, domain *Domain) {
	groups := []routes.Group{
		domain.Runs.routes(),
		domain.Strategies.routes(),
		domain.Records.routes(),
		domain.Governance.routes(),
		domain.Inbox.routes(),
		domain.Prompts.Routes(),
	}
	routes.Register(mux, groups...)

	idx := index{
		EntityID:  rt.Config.Entity.ID,
		Version:   rt.Config.Entity.Version,
		Endpoints: routes.Describe(groups...),
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, idx)
	})
}
