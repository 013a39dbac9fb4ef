package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear the conversation log",
	}
	cmd.AddCommand(newHistoryListCmd(a))
	cmd.AddCommand(newHistoryClearCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the conversation log in replay order",
		Long: `Print the conversation log in replay order.

Examples:
  relayctl history list
  relayctl history list --limit 20
  relayctl history list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.repo.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n entries")
	return cmd
}

func printEntries(w io.Writer, entries []domain.ChatEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-4s  %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Author, e.Text)
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every message from the conversation log",
		Long: `Delete every message from the conversation log.

Requires confirmation unless --force is used. Connected browsers keep their
rendered messages until they reconnect.

Examples:
  relayctl history clear
  relayctl history clear --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !force {
				fmt.Fprint(out, "Delete all messages? [y/N]: ")
				response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read input: %w", err)
				}
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			deleted, err := a.repo.ClearAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintf(out, "Deleted %d messages.\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
