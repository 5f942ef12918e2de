// Octobot — воркер задач, слушающий очереди сообщений.
//
// Использование:
//
//	octobot [--config FILE] [worker]
//	octobot publish --queue NAME --task X [--retries N] [--field k=v]...
//	octobot [--api-url URL] [--json] stats|tasks|notifications|workers
//
// Без подкоманды запускается worker.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Octobot/internal/cli"
	"github.com/shaiso/Octobot/internal/config"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "octobot",
		Short:         "Octobot — task worker for AMQP, Beanstalk, Redis, NATS and Postgres queues",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to octobot.yml")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:1228", "Introspection API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	configFn := func() string { return configPath }
	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	cliLogger := telemetry.NewLogger(os.Stderr, slog.LevelWarn, "text")

	rootCmd.AddCommand(
		newWorkerCmd(configFn),
		cli.NewPublishCmd(configFn, cli.DialQueue(cliLogger), outputFn),
		cli.NewStatsCmd(clientFn, outputFn),
		cli.NewTasksCmd(clientFn, outputFn),
		cli.NewNotificationsCmd(clientFn, outputFn),
		cli.NewWorkersCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newWorkerCmd(configFn func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run queue workers until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), configFn())
		},
	}
}
