package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/infrastructure"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moltblock",
		Short: "Run verified LLM entities",
		Long: `moltblock runs tasks through a generator, critic and judge, admits only
verified artifacts into durable memory, and governs how the entity evolves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to the moltblock TOML configuration")
	root.PersistentFlags().String("entity", "", "Entity id (overrides configuration)")

	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newStrategyCmd(),
		newGovernanceCmd(),
		newInboxCmd(),
		newCheckpointsCmd(),
		newImproveCmd(),
	)
	return root
}

// app is the configuration and started infrastructure of one command.
type app struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

// loadConfig loads the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if entity, _ := cmd.Flags().GetString("entity"); entity != "" {
		cfg.Entity.ID = entity
		if err := cfg.Entity.Validate(); err != nil {
			return nil, fmt.Errorf("entity: %w", err)
		}
	}
	return cfg, nil
}

// openApp loads the configuration and starts the infrastructure. Logs go to
// the command's stderr so that stdout carries results only.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cmd.Context(), cfg, infrastructure.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		infra.Shutdown()
		return nil, err
	}
	return &app{cfg: cfg, infra: infra}, nil
}

func (a *app) close() {
	if err := a.infra.Shutdown(); err != nil {
		a.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
