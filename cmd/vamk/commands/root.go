package commands

import (
	"context"
	"fmt"
	"os"
	"vamkhelp-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	debug      *bool
)

var rootCmd = &cobra.Command{
	Use:   "vamk",
	Short: "vamk crawls the VAMK student records and Tritonia library portals on behalf of registered students.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file, <name>.local.json5 is merged on top.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
