package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/store"
)

func newCheckpointsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			checkpoints, err := a.infra.Store("").ListCheckpoints(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), checkpoints)
			}
			w := cmd.OutOrStdout()
			for _, c := range checkpoints {
				fmt.Fprintf(w, "%d  %s  version=%s graph=%s memory=%s refs=%s\n",
					c.ID,
					c.CreatedAt.Format("2006-01-02 15:04:05"),
					c.EntityVersion,
					c.GraphHash,
					shortHash(c.MemoryHash),
					strings.Join(c.ArtifactRefs, ","),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultLimit, "Maximum checkpoints to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the checkpoints as JSON")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
