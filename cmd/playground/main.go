package main

import (
	"os"
	"refacto/internal/config"
	"refacto/internal/engine/javascript"
	"refacto/internal/logging"
	"refacto/internal/router"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "playground",
	Short: "Runs and lints code snippets without a task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// initialize config
		if err := config.Load(configFile); err != nil {
			return err
		}
		logging.Setup()

		// init runners
		if err := javascript.Init(); err != nil {
			return err
		}

		router.SetupPlayground()
		return router.Run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "path of the config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
