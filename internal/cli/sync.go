package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSyncCmd создаёт группу команд синхронизации.
//
// Без подкоманды запускает синхронизацию (POST /sync).
func NewSyncCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull changes from the sync server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().Sync(); err != nil {
				return err
			}
			outputFn().Success("Sync completed")
			return nil
		},
	}

	cmd.AddCommand(
		newSyncHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

func newSyncHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, total, err := client.SyncHistory(limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TRIGGER", "STATUS", "MESSAGES", "DURATION", "STARTED", "ERROR"}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.ID, r.Trigger, r.Status, strconv.Itoa(r.Messages),
					fmt.Sprintf("%dms", r.DurationMs), r.StartedAt, r.Error,
				}
			}

			out.Print(headers, rows, records)
			if total > len(records) {
				out.Success(fmt.Sprintf("Showing %d of %d", len(records), total))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (server default if not set)")

	return cmd
}
