package api

import (
	"fmt"

	"github.com/JaimeStill/moltblock/internal/prompts"
)

// Domain holds the handlers that comprise the API.
type Domain struct {
	Runs       *runsHandler
	Strategies *strategiesHandler
	Records    *recordsHandler
	Governance *governanceHandler
	Inbox      *inboxHandler
	Prompts    *prompts.Handler
}

// NewDomain creates all handlers from the API runtime. The run executor is
// built once and shared by every request.
func NewDomain(runtime *Runtime) (*Domain, error) {
	exec, err := runtime.Executor(runtime.Prompts, "")
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}

	gov := runtime.Governor()

	return &Domain{
		Runs:       newRunsHandler(runtime, exec, gov),
		Strategies: newStrategiesHandler(runtime),
		Records:    newRecordsHandler(runtime),
		Governance: newGovernanceHandler(runtime, gov),
		Inbox:      newInboxHandler(runtime),
		Prompts:    prompts.NewHandler(runtime.Prompts, runtime.Logger),
	}, nil
}
