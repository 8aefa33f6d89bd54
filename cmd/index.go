package cmd

import (
	"fmt"
	"log/slog"

	"FirstContact/ai/gpt"
	"FirstContact/ai/knowledge"
	"FirstContact/internal/config"
	"FirstContact/internal/lib/logger"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the knowledge index from the knowledge directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf := config.MustLoad(configPath)
		lg := logger.SetupLogger(conf.Env, logPath)

		if conf.OpenAI.ApiKey == "" {
			return fmt.Errorf("openai api key not set")
		}

		retriever := knowledge.NewRetriever(conf, gpt.NewEmbedder(conf), lg)
		if err := retriever.Build(cmd.Context()); err != nil {
			return err
		}
		if !retriever.Ready() {
			return fmt.Errorf("no documents found in %s", conf.Knowledge.Dir)
		}
		lg.Info("knowledge index rebuilt", slog.String("path", conf.Knowledge.IndexPath))
		return nil
	},
}
