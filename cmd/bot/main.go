package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"portraitbot/internal/adapter/repo"
	"portraitbot/internal/archive"
	"portraitbot/internal/bot"
	"portraitbot/internal/collector"
	httpapi "portraitbot/internal/http"
	"portraitbot/internal/http/handlers"
	"portraitbot/internal/infra"
	"portraitbot/internal/infra/credentials"
	"portraitbot/internal/jobs"
	"portraitbot/internal/lifecycle"
	"portraitbot/internal/presets"
	"portraitbot/internal/providers/fal"
	"portraitbot/internal/providers/prompt"
	"portraitbot/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.Migrate(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	tokens := credentials.NewStore(runner)

	telegramToken := mustToken(ctx, tokens, credentials.ProviderTelegram, cfg.TelegramToken, logger)
	falKey := mustToken(ctx, tokens, credentials.ProviderFal, cfg.FalKey, logger)
	openAIKey := mustToken(ctx, tokens, credentials.ProviderOpenAI, cfg.OpenAIAPIKey, logger)

	var uploader storage.Uploader
	staticDir := ""
	if cfg.UsesS3() {
		uploader, err = storage.NewS3Store(ctx, storage.S3Options{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PresignTTL: cfg.S3PresignTTL,
		})
	} else {
		uploader, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		staticDir = cfg.StoragePath
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise storage")
	}

	falClient, err := fal.NewClient(fal.Options{APIKey: falKey, QueueURL: cfg.FalQueueURL, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise fal client")
	}
	poller := jobs.NewPoller(falClient, jobs.PollerOptions{Interval: cfg.JobPollInterval, Logger: &logger})

	rewriter, err := prompt.NewOpenAIRewriter(prompt.OpenAIOptions{
		APIKey:       openAIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		HTTPClient:   &http.Client{Timeout: cfg.RewriteTimeout},
		Logger:       &logger,
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai model normalised")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise prompt rewriter")
	}
	resolver := presets.NewResolver(rewriter)

	users := repo.NewUserRepository(runner)
	svc := lifecycle.New(lifecycle.Deps{
		Users:     users,
		Collector: collector.New(users, &logger),
		Packager:  archive.NewBuilder(archive.NewHTTPFetcher(nil), uploader, cfg.StagingDir, &logger),
		Trainer:   jobs.NewTrainingOrchestrator(poller, cfg.FalTrainerApp, cfg.TrainingTimeout, &logger),
		Resolver:  resolver,
		Generator: jobs.NewGenerationOrchestrator(poller, cfg.FalGeneratorApp, cfg.GenerateTimeout, &logger),
		Logger:    &logger,
	})
	if _, err := svc.RecoverInterrupted(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to recover interrupted trainings")
	}

	telegram, err := bot.NewTelegram(telegramToken, cfg.TelegramDebug, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect telegram")
	}
	handler := bot.NewHandler(svc, telegram, resolver.Keyboard(), &logger)
	dispatcher := bot.NewDispatcher(handler.Handle, &logger)

	app := handlers.NewApp(runner, users, &logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, httpapi.RouterOptions{OpsToken: cfg.OpsToken, StaticDir: staticDir}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("ops server listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := telegram.Run(gctx, dispatcher.Dispatch)
		dispatcher.Wait()
		handler.WaitOnboarding()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("bot stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("bot stopped")
}

func mustToken(ctx context.Context, store *credentials.Store, provider, explicit string, logger infra.Logger) string {
	token, err := store.Resolve(ctx, provider, explicit)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", provider).Msg("failed to load credential")
	}
	if token == "" {
		logger.Fatal().Str("provider", provider).Msg("credential missing from environment and integration_tokens")
	}
	return token
}
