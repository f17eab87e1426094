package commands

import (
	"context"
	"opendns-stats/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpHttp   *string
)

var rootCmd = &cobra.Command{
	Use:   "opendns-cli",
	Short: "opendns-cli downloads statistics reports from the OpenDNS dashboard.",
	// errors are logged once by main
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file holding credentials and dashboard settings.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information, including every http request.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "A directory to write every http request/response pair to.")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
