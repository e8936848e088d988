package main

import (
	"context"
	"errors"
	"os"
	"refacto/internal/agent"
	"refacto/internal/config"
	"refacto/internal/engine/javascript"
	"refacto/internal/logging"
	"refacto/internal/model"
	"refacto/internal/redis"
	"refacto/internal/router"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "apiservice",
	Short: "Serves tasks, code runs, lint reports and AI reviews over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "path of the config file, defaults to CONFIG_FILE or "+config.DefaultFile)
}

func serve(cmd *cobra.Command, args []string) error {
	// initialize config
	if err := config.Load(configFile); err != nil {
		return err
	}
	logging.Setup()
	log := logging.Component("apiservice")

	if err := model.Run(); err != nil {
		return err
	}
	if err := model.AutoMigrate(model.DB); err != nil {
		return err
	}

	if err := redis.Setup(context.Background()); err != nil {
		return err
	}

	// init runners
	if err := javascript.Init(); err != nil {
		return err
	}

	assistant, err := agent.NewFromConfig()
	if errors.Is(err, agent.ErrMissingAPIKey) {
		log.Warn("OPENAI_API_KEY is not set, review and chat endpoints are disabled")
	} else if err != nil {
		return err
	}

	router.SetupAPIService(assistant)
	return router.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
