package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/governance"
)

func newGovernanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "governance",
		Aliases: []string{"gov"},
		Short:   "Inspect and control entity governance",
	}

	cmd.AddCommand(
		newGovernanceStatusCmd(),
		governanceAction("pause", "Pause the entity under human veto", (*governance.Governor).Pause),
		governanceAction("resume", "Lift the human veto", (*governance.Governor).Resume),
		newGovernanceMoltCmd(),
		governanceAction("shutdown", "Record an emergency shutdown", (*governance.Governor).EmergencyShutdown),
	)
	return cmd
}

func newGovernanceStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the governance state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.infra.Governor().Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the status as JSON")
	return cmd
}

func printStatus(w io.Writer, st governance.Status) {
	fmt.Fprintf(w, "entity:   %s\n", st.EntityID)
	fmt.Fprintf(w, "paused:   %t\n", st.Paused)
	if st.EntityVersion != "" {
		fmt.Fprintf(w, "version:  %s\n", st.EntityVersion)
	}
	if st.LastMoltAt != nil {
		fmt.Fprintf(w, "molted:   %s\n", st.LastMoltAt.Format("2006-01-02 15:04:05"))
	}
	if st.CanMolt.Allowed {
		fmt.Fprintln(w, "can molt: yes")
	} else {
		fmt.Fprintf(w, "can molt: no (%s)\n", st.CanMolt.Reason)
	}
	for _, k := range slices.Sorted(maps.Keys(st.State)) {
		fmt.Fprintf(w, "  %s = %s\n", k, st.State[k])
	}
}

func governanceAction(use, short string, fn func(*governance.Governor, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := fn(a.infra.Governor(), cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s recorded\n", a.cfg.Entity.ID, use)
			return nil
		},
	}
}

func newGovernanceMoltCmd() *cobra.Command {
	var (
		trigger string
		refs    []string
	)

	cmd := &cobra.Command{
		Use:   "molt",
		Short: "Molt the entity into a new checkpoint",
		Long: `Molt the entity into a new checkpoint. Without --ref the most recent verified
artifacts are snapshotted. A denied molt exits non-zero with the reason.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.infra.Molt(cmd.Context(), trigger, refs)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("molt denied: %s", res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (checkpoint %d)\n", res.Message, res.Checkpoint.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", governance.TriggerHuman, "Molt trigger (human or system)")
	cmd.Flags().StringSliceVar(&refs, "ref", nil, "Artifact ref to snapshot (repeatable)")
	return cmd
}
