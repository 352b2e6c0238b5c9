package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewHealthCmd создаёт команду проверки доступности сервиса.
func NewHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the bridge is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().Health(); err != nil {
				return err
			}
			outputFn().Success("ok")
			return nil
		},
	}
}

// NewBudgetCmd создаёт группу команд для бюджетов.
func NewBudgetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budget",
		Aliases: []string{"budgets"},
		Short:   "Inspect budgets known to the sync server",
	}

	cmd.AddCommand(
		newBudgetListCmd(clientFn, outputFn),
	)

	return cmd
}

func newBudgetListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			list := client.ListBudgets
			if debug {
				list = client.DebugBudgets
			}

			budgets, err := list()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "ID", "GROUP_ID", "CLOUD_FILE_ID", "STATE"}
			rows := make([][]string, len(budgets))
			for i, b := range budgets {
				rows[i] = []string{b.Name, deref(b.ID), deref(b.GroupID), deref(b.CloudFileID), b.State}
			}

			out.Print(headers, rows, budgets)
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Raw listing without loading the budget")

	return cmd
}

// NewAccountCmd создаёт команду вывода счетов.
func NewAccountCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "List accounts of the loaded budget",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			accounts, err := client.ListAccounts()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "OFFBUDGET", "CLOSED"}
			rows := make([][]string, len(accounts))
			for i, a := range accounts {
				rows[i] = []string{a.ID, a.Name, strconv.FormatBool(a.OffBudget), strconv.FormatBool(a.Closed)}
			}

			out.Print(headers, rows, accounts)
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
