package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/handoff"
	"github.com/JaimeStill/moltblock/pkg/formatting"
)

func newInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Exchange signed artifacts with other entities",
	}
	cmd.AddCommand(newInboxSendCmd(), newInboxListCmd())
	return cmd
}

func newInboxSendCmd() *cobra.Command {
	var (
		file string
		ref  string
	)

	cmd := &cobra.Command{
		Use:   "send <recipient> [content]",
		Short: "Sign content as this entity and deliver it to a recipient's inbox",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := inboxContent(cmd, args, file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ref, err := handoff.Send(cmd.Context(), a.cfg.Entity.ID, a.infra.Store(args[0]), content, ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", ref, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the payload from a file (- for stdin)")
	cmd.Flags().StringVar(&ref, "ref", "", "Artifact ref (generated when empty)")
	return cmd
}

func inboxContent(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) == 2 && file != "":
		return "", errors.New("give content as an argument or --file, not both")
	case len(args) == 2:
		return args[1], nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		return string(data), err
	default:
		return "", errors.New("content required")
	}
}

func newInboxListCmd() *cobra.Command {
	var (
		limit    int
		noVerify bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List received artifacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			artifacts, err := handoff.Receive(cmd.Context(), a.infra.Store(""), handoff.ReceiveOptions{
				Limit:      limit,
				SkipVerify: noVerify,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), artifacts)
			}
			w := cmd.OutOrStdout()
			for _, art := range artifacts {
				mark := "verified"
				if !art.Verified {
					mark = "UNVERIFIED"
				}
				fmt.Fprintf(w, "%s  %-10s  from %s  %s  %s\n",
					art.CreatedAt.Format("2006-01-02 15:04:05"),
					mark,
					art.FromEntityID,
					art.ArtifactRef,
					formatting.FormatBytes(int64(len(art.PayloadText)), 1),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", handoff.DefaultReceiveLimit, "Maximum entries to list")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip signature verification")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the entries as JSON")
	return cmd
}
