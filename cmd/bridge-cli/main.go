// bridge — инструмент командной строки для HTTP API actual-bridge.
//
// Использование:
//
//	bridge [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	health        Проверка доступности
//	budget        Бюджеты на сервере синхронизации
//	accounts      Счета загруженного бюджета
//	transactions  Транзакции счёта (таблица, JSON или CSV)
//	sync          Синхронизация и её журнал
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/actual-bridge/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "bridge",
		Short:         "actual-bridge CLI — read-only access to an Actual budget",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("BRIDGE_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewHealthCmd(clientFn, outputFn),
		cli.NewBudgetCmd(clientFn, outputFn),
		cli.NewAccountCmd(clientFn, outputFn),
		cli.NewTransactionCmd(clientFn, outputFn),
		cli.NewSyncCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
