package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"FirstContact/ai/claude"
	"FirstContact/ai/gpt"
	"FirstContact/ai/knowledge"
	"FirstContact/bot"
	"FirstContact/bot/chat"
	"FirstContact/bot/chat/qualify"
	"FirstContact/impl/core"
	"FirstContact/internal/config"
	repository "FirstContact/internal/database"
	"FirstContact/internal/http-server/api"
	"FirstContact/internal/lib/logger"
	"FirstContact/internal/lib/sl"
	"FirstContact/internal/service/crm"
	"FirstContact/internal/ws"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the api server and the Telegram bots",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf := config.MustLoad(configPath)
	lg := logger.SetupLogger(conf.Env, logPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var tgBot *bot.TgBot
	if conf.Telegram.AdminApiKey != "" {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.AdminApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize admin bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelError)
			g.Go(func() error {
				if err := tgBot.Start(ctx); err != nil {
					lg.Warn("admin bot stopped", sl.Err(err))
				}
				return nil
			})
		}
	}

	lg.Info("starting firstcontact", slog.String("config", configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	handler := core.New(lg)
	handler.SetAuthKey(conf.Listen.ApiKey)
	if tgBot != nil {
		handler.SetNotifier(tgBot)
	}

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.Error("mongo client", sl.Err(err))
	}
	if db != nil {
		if err = db.EnsureIndexes(); err != nil {
			lg.Warn("mongo indexes", sl.Err(err))
		}
		handler.SetRepository(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	}

	store, closeStore, err := newStateStore(ctx, conf, db, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	generator, err := newGenerator(conf, lg)
	if err != nil {
		return err
	}

	retriever := knowledge.NewRetriever(conf, gpt.NewEmbedder(conf), lg)
	handler.SetRetriever(retriever)
	if conf.OpenAI.ApiKey != "" {
		g.Go(func() error {
			if err := retriever.Init(ctx); err != nil {
				lg.Error("knowledge index", sl.Err(err))
			}
			return nil
		})
	} else {
		lg.Warn("openai key not set, knowledge retrieval disabled")
	}

	crmService := crm.NewCrmService(conf, lg)
	if err = crmService.Check(); err != nil {
		lg.Warn("crm submissions disabled", sl.Err(err))
	}
	handler.SetLeadService(crmService)

	hub := ws.NewHub(lg)
	handler.SetWsHub(hub)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	engine := chat.NewEngine(qualify.NewRegistry(generator), store, lg)
	engine.SetRetriever(retriever)
	engine.SetLeadSubmitter(handler)
	engine.SetClassifier(chat.NewClassifier(generator, lg))
	engine.SetMessageListener(handler)
	engine.SetSubmitMode(conf.Dialog.SubmitMode)
	engine.SetRetrieveTimeout(conf.Knowledge.Timeout)
	handler.SetDialogEngine(engine)

	if conf.MarkerNeverEchoed() {
		lg.Warn("telegram does not echo bot replies, leads will not reach the crm; set dialog.submit_mode to direct",
			slog.String("submit_mode", conf.Dialog.SubmitMode))
	}

	if conf.Telegram.Enabled {
		userBot, err := bot.NewUserBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Dialog.Channel, lg)
		if err != nil {
			return fmt.Errorf("user bot: %w", err)
		}
		userBot.SetMessageHandler(handler)
		if conf.OpenAI.ApiKey != "" {
			userBot.SetTranscriber(gpt.NewTranscriber(conf))
		}
		g.Go(func() error {
			return userBot.Start(ctx)
		})
	}

	g.Go(func() error {
		return api.Serve(ctx, conf, lg, handler, hub)
	})

	err = g.Wait()
	if err != nil {
		lg.Error("service stopped", sl.Err(err))
		return err
	}
	lg.Info("service stopped")
	return nil
}

func newStateStore(ctx context.Context, conf *config.Config, db *repository.MongoDB, lg *slog.Logger) (chat.StateStore, func(), error) {
	switch conf.Dialog.StateBackend {
	case config.StateMongo:
		if db == nil {
			return nil, nil, fmt.Errorf("state backend mongo requires mongo.enabled")
		}
		return chat.NewRepositoryStore(db), func() {}, nil
	default:
		store, err := repository.NewRedisStore(conf.Redis.URL, conf.Dialog.StateTTL, lg)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		if err = store.Ping(ctx); err != nil {
			lg.Warn("redis not reachable", sl.Err(err))
		}
		return store, func() { _ = store.Close() }, nil
	}
}

func newGenerator(conf *config.Config, lg *slog.Logger) (chat.Generator, error) {
	if conf.Generator.Backend == config.BackendAnthropic {
		generator, err := claude.NewGenerator(conf, lg)
		if err != nil {
			return nil, fmt.Errorf("anthropic generator: %w", err)
		}
		lg.Info("generator initialized", slog.String("backend", conf.Generator.Backend), slog.String("model", conf.Anthropic.Model))
		return generator, nil
	}
	if conf.OpenAI.ApiKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}
	lg.With(
		slog.String("backend", config.BackendOpenAI),
		slog.String("model", conf.OpenAI.Model),
		sl.Secret("openai_key", conf.OpenAI.ApiKey),
	).Info("generator initialized")
	return gpt.NewGenerator(conf, lg), nil
}
