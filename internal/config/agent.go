package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/gateway"
)

const (
	EnvAgentGraph     = "MOLTBLOCK_GRAPH"
	EnvAgentParallel  = "MOLTBLOCK_PARALLEL"
	EnvAgentMaxTokens = "MOLTBLOCK_MAX_TOKENS"

	EnvZAIAPIKey    = "MOLTBLOCK_ZAI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Default endpoints used when no bindings are configured.
const (
	LocalBaseURL  = "http://localhost:1234/v1"
	ZAIBaseURL    = "https://api.z.ai/api/paas/v4"
	ZAIModel      = "glm-4.7-flash"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "gpt-4o-mini"

	BackendLocal  = "local"
	BackendZAI    = "zai"
	BackendOpenAI = "openai"
)

// AgentConfig holds model bindings and execution settings for pipeline and
// graph runs. Bindings are keyed by role name or by the binding key a graph
// node names.
type AgentConfig struct {
	Bindings  map[string]gateway.Binding `toml:"bindings"`
	Graph     string                     `toml:"graph"`
	Parallel  int                        `toml:"parallel"`
	MaxTokens int                        `toml:"max_tokens"`
}

// Finalize fills in detected default bindings when none are configured,
// applies per-role environment overrides, and validates every binding.
func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Bindings present in both are
// merged field by field.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Graph != "" {
		c.Graph = overlay.Graph
	}
	if overlay.Parallel != 0 {
		c.Parallel = overlay.Parallel
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	for key, ob := range overlay.Bindings {
		if c.Bindings == nil {
			c.Bindings = make(map[string]gateway.Binding)
		}
		b := c.Bindings[key]
		b.Merge(&ob)
		c.Bindings[key] = b
	}
}

// BindingKeys returns the configured binding keys in sorted order.
func (c *AgentConfig) BindingKeys() []string {
	return slices.Sorted(maps.Keys(c.Bindings))
}

// DetectBindings returns the default generator, critic and judge bindings for
// the current environment. A Z.ai key selects the hybrid setup: a local
// generator with Z.ai critic and judge. An OpenAI key binds every role to
// OpenAI. Otherwise every role targets the local endpoint.
func DetectBindings() map[string]gateway.Binding {
	local := gateway.Binding{
		Backend: BackendLocal,
		BaseURL: LocalBaseURL,
		Model:   gateway.LocalModel,
	}

	if key := os.Getenv(EnvZAIAPIKey); key != "" {
		zai := gateway.Binding{
			Backend: BackendZAI,
			BaseURL: ZAIBaseURL,
			APIKey:  key,
			Model:   ZAIModel,
		}
		return map[string]gateway.Binding{
			string(agents.RoleGenerator): local,
			string(agents.RoleCritic):    zai,
			string(agents.RoleJudge):     zai,
		}
	}

	if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		openai := gateway.Binding{
			Backend: BackendOpenAI,
			BaseURL: OpenAIBaseURL,
			APIKey:  key,
			Model:   OpenAIModel,
		}
		return map[string]gateway.Binding{
			string(agents.RoleGenerator): openai,
			string(agents.RoleCritic):    openai,
			string(agents.RoleJudge):     openai,
		}
	}

	return map[string]gateway.Binding{
		string(agents.RoleGenerator): local,
		string(agents.RoleCritic):    local,
		string(agents.RoleJudge):     local,
	}
}

func (c *AgentConfig) loadDefaults() {
	if len(c.Bindings) == 0 {
		c.Bindings = DetectBindings()
	}
	if c.Parallel <= 0 {
		c.Parallel = 4
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = gateway.DefaultMaxTokens
	}
}

func (c *AgentConfig) loadEnv() {
	if v := os.Getenv(EnvAgentGraph); v != "" {
		c.Graph = v
	}
	if v := os.Getenv(EnvAgentParallel); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Parallel = n
		}
	}
	if v := os.Getenv(EnvAgentMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}

	for _, role := range agents.Roles() {
		overlay := roleEnv(role)
		if overlay == (gateway.Binding{}) {
			continue
		}
		b := c.Bindings[string(role)]
		b.Merge(&overlay)
		c.Bindings[string(role)] = b
	}
}

// roleEnv reads MOLTBLOCK_<ROLE>_{BACKEND,BASE_URL,MODEL,API_KEY}.
func roleEnv(role agents.Role) gateway.Binding {
	prefix := "MOLTBLOCK_" + strings.ToUpper(string(role)) + "_"
	return gateway.Binding{
		Backend: os.Getenv(prefix + "BACKEND"),
		BaseURL: os.Getenv(prefix + "BASE_URL"),
		Model:   os.Getenv(prefix + "MODEL"),
		APIKey:  os.Getenv(prefix + "API_KEY"),
	}
}

func (c *AgentConfig) validate() error {
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be positive")
	}
	for _, key := range c.BindingKeys() {
		b := c.Bindings[key]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}
