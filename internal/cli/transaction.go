package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// defaultExportName — имя файла, если сервер не предложил своё.
const defaultExportName = "transactions.csv"

// NewTransactionCmd создаёт команду выборки и экспорта транзакций.
func NewTransactionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts TransactionsOpts
	var csv bool
	var outFile string

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List or export transactions of an account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if csv || outFile != "" {
				data, name, err := client.ExportTransactions(opts)
				if err != nil {
					return err
				}
				if outFile == "" {
					return out.Raw(data)
				}
				if outFile == "." {
					outFile = suggestedFileName(name)
				}
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outFile, err)
				}
				out.Success(fmt.Sprintf("Exported to %s", outFile))
				return nil
			}

			resp, err := client.ListTransactions(opts)
			if err != nil {
				return err
			}

			headers := []string{"DATE", "AMOUNT", "PAYEE", "CATEGORY", "NOTES", "CLEARED"}
			rows := make([][]string, len(resp.Transactions))
			for i, t := range resp.Transactions {
				cleared := ""
				if t.Cleared {
					cleared = "x"
				}
				rows[i] = []string{t.Date, formatCents(t.Amount), deref(t.Payee), deref(t.Category), deref(t.Notes), cleared}
			}

			out.Print(headers, rows, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "Account ID or name (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Start date YYYY-MM-DD, inclusive (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "End date YYYY-MM-DD, inclusive (required)")
	cmd.Flags().BoolVar(&csv, "csv", false, "Print CSV instead of a table")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Write CSV to file ('.' uses the server-suggested name)")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

// suggestedFileName оставляет от имени сервера только последний элемент пути.
func suggestedFileName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return defaultExportName
	}
	return base
}

// formatCents переводит сумму в центах в десятичную строку.
func formatCents(amount *int64) string {
	if amount == nil {
		return "-"
	}
	return decimal.New(*amount, -2).StringFixed(2)
}
