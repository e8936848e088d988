package main

import (
	"context"
	"fmt"
	"os"
	"refacto/internal/config"
	"refacto/internal/logging"
	"refacto/internal/model"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	table      string
	seedFile   string
	create     bool

	rootCmd = &cobra.Command{
		Use:   "seeder",
		Short: "Loads tasks and their test cases from a JSON file into the database",
		Long: `Reads a JSON array of flat records and inserts them into one table.
The database is taken from DATABASE_PATH or DATABASE_URL, the file from --file or JSON_FILE_PATH.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(configFile); err != nil {
				return err
			}
			logging.Setup()
			return nil
		},
		RunE: runSeed,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path of the config file")
	rootCmd.Flags().StringVarP(&table, "table", "t", model.TableTasks,
		"table to fill ("+strings.Join(model.SeedTables, ", ")+")")
	rootCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON file to load, defaults to JSON_FILE_PATH")
	rootCmd.Flags().BoolVar(&create, "create", false, "create the tables before inserting")
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logging.Component("seeder")

	if seedFile == "" {
		seedFile = viper.GetString("seed.file")
	}
	if seedFile == "" {
		return fmt.Errorf("no seed file: pass --file or set JSON_FILE_PATH")
	}

	log.Info("establishing database connection")
	if err := model.Run(); err != nil {
		return err
	}

	if create {
		if err := model.AutoMigrate(model.DB); err != nil {
			return fmt.Errorf("fail to create tables: %w", err)
		}
		log.Info("tables created")
	}

	log.WithField("file", seedFile).Info("loading JSON")
	data, err := model.ReadSeedFile(seedFile)
	if err != nil {
		// an unreadable file is reported but is not fatal
		log.WithError(err).Error("error reading JSON")
		return nil
	}

	count, err := model.Seed(context.Background(), model.DB, table, data)
	if err != nil {
		return fmt.Errorf("fail to insert into %s: %w", table, err)
	}
	if count == 0 {
		log.Info("no records found in JSON; nothing to insert")
		return nil
	}

	log.WithFields(logrus.Fields{"table": table, "rows": count}).Info("records inserted")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
