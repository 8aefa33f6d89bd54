package cmd

import (
	"fmt"

	"FirstContact/internal/config"
	repository "FirstContact/internal/database"
	"FirstContact/internal/lib/logger"

	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey <username>",
	Short: "Print the api key of an operator, creating it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.MustLoad(configPath)
		lg := logger.SetupLogger(conf.Env, logPath)

		db, err := repository.NewMongoClient(conf, lg)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("mongo is not enabled")
		}

		key, err := db.GenerateApiKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}
