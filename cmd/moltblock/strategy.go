package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/store"
)

func newStrategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Inspect and version role prompt strategies",
	}
	cmd.AddCommand(newStrategyGetCmd(), newStrategySetCmd(), newStrategyHistoryCmd())
	return cmd
}

func newStrategyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <role>",
		Short: "Print the current strategy of a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := agents.ParseRole(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.infra.Store("").CurrentStrategy(cmd.Context(), string(role))
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "no strategy for %s; the domain default prompt is used\n", role)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s v%d (%s)\n%s\n", st.Role, st.Version, st.CreatedAt.Format("2006-01-02 15:04:05"), st.Content)
			return nil
		},
	}
}

func newStrategySetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <role> [content]",
		Short: "Store a new strategy version for a role",
		Long:  "Store a new strategy version for a role. Content comes from the argument, --file, or stdin when --file is -.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := agents.ParseRole(args[0])
			if err != nil {
				return err
			}

			content, err := strategyContent(cmd, args, file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.infra.Store("").SetStrategy(cmd.Context(), string(role), content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s strategy v%d stored\n", st.Role, st.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the strategy content from a file (- for stdin)")
	return cmd
}

func strategyContent(cmd *cobra.Command, args []string, file string) (string, error) {
	var content string
	switch {
	case len(args) == 2 && file != "":
		return "", errors.New("give content as an argument or --file, not both")
	case len(args) == 2:
		content = args[1]
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		content = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		content = string(data)
	}

	if strings.TrimSpace(content) == "" {
		return "", errors.New("strategy content required")
	}
	return content, nil
}

func newStrategyHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <role>",
		Short: "List the strategy versions of a role, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := agents.ParseRole(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			history, err := a.infra.Store("").StrategyHistory(cmd.Context(), string(role), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, st := range history {
				fmt.Fprintf(w, "v%d  %s  %s\n", st.Version, st.CreatedAt.Format("2006-01-02 15:04:05"), firstLine(st.Content))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultLimit, "Maximum versions to list")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
