package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/moltblock/internal/verifier"
)

const (
	EnvVerifiers   = "MOLTBLOCK_VERIFIERS"
	EnvVerifyMode  = "MOLTBLOCK_VERIFY_MODE"
	EnvTestCommand = "MOLTBLOCK_TEST_COMMAND"
	EnvTestTimeout = "MOLTBLOCK_TEST_TIMEOUT"
)

// Verifier kinds.
const (
	VerifierSyntax = "syntax"
	VerifierPolicy = "policy"
)

// VerifierConfig selects the verifiers applied to each run's final candidate.
// Rules are added to the built-in policy rules; EnableRules and DisableRules
// toggle rules by id.
type VerifierConfig struct {
	Verifiers    []string              `toml:"verifiers"`
	Mode         verifier.Mode         `toml:"mode"`
	Syntax       verifier.SyntaxConfig `toml:"syntax"`
	Rules        []verifier.Rule       `toml:"rules"`
	EnableRules  []string              `toml:"enable_rules"`
	DisableRules []string              `toml:"disable_rules"`
}

// PolicyRules returns the built-in rules with configured toggles applied,
// followed by the configured extra rules.
func (c *VerifierConfig) PolicyRules() []verifier.Rule {
	rules := verifier.DefaultRules()
	for i := range rules {
		if slices.Contains(c.EnableRules, rules[i].ID) {
			rules[i].Enabled = true
		}
		if slices.Contains(c.DisableRules, rules[i].ID) {
			rules[i].Enabled = false
		}
	}
	return append(rules, c.Rules...)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *VerifierConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *VerifierConfig) Merge(overlay *VerifierConfig) {
	if overlay.Verifiers != nil {
		c.Verifiers = overlay.Verifiers
	}
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Syntax.Command != nil {
		c.Syntax.Command = overlay.Syntax.Command
	}
	if overlay.Syntax.Timeout != "" {
		c.Syntax.Timeout = overlay.Syntax.Timeout
	}
	if overlay.Syntax.CandidateFile != "" {
		c.Syntax.CandidateFile = overlay.Syntax.CandidateFile
	}
	if overlay.Syntax.TestFile != "" {
		c.Syntax.TestFile = overlay.Syntax.TestFile
	}
	if overlay.Rules != nil {
		c.Rules = overlay.Rules
	}
	if overlay.EnableRules != nil {
		c.EnableRules = overlay.EnableRules
	}
	if overlay.DisableRules != nil {
		c.DisableRules = overlay.DisableRules
	}
}

func (c *VerifierConfig) loadDefaults() {
	if len(c.Verifiers) == 0 {
		c.Verifiers = []string{VerifierSyntax}
	}
	if c.Mode == "" {
		c.Mode = verifier.FailFast
	}
}

func (c *VerifierConfig) loadEnv() {
	if v := os.Getenv(EnvVerifiers); v != "" {
		c.Verifiers = splitList(v)
	}
	if v := os.Getenv(EnvVerifyMode); v != "" {
		c.Mode = verifier.Mode(v)
	}
	if v := os.Getenv(EnvTestCommand); v != "" {
		c.Syntax.Command = strings.Fields(v)
	}
	if v := os.Getenv(EnvTestTimeout); v != "" {
		c.Syntax.Timeout = v
	}
}

func (c *VerifierConfig) validate() error {
	for _, v := range c.Verifiers {
		if v != VerifierSyntax && v != VerifierPolicy {
			return fmt.Errorf("unknown verifier %q", v)
		}
	}
	if c.Mode != verifier.FailFast && c.Mode != verifier.CollectAll {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Syntax.Timeout != "" {
		if _, err := time.ParseDuration(c.Syntax.Timeout); err != nil {
			return fmt.Errorf("invalid syntax.timeout: %w", err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
