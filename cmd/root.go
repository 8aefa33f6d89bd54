package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configPath string
	logPath    string
)

var rootCmd = &cobra.Command{
	Use:     "firstcontact",
	Short:   "Lead qualification assistant for chat channels",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "config.yml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "path to log file directory")

	rootCmd.AddCommand(serveCmd, indexCmd, apiKeyCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
