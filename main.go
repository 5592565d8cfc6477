package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/telegram-recycling-bot/internal/bot"
	"github.com/raine/telegram-recycling-bot/internal/config"
	"github.com/raine/telegram-recycling-bot/internal/llm"
	"github.com/raine/telegram-recycling-bot/internal/maintenance"
	"github.com/raine/telegram-recycling-bot/internal/storage"
)

const logFileName = "telegram-recycling-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env file
	config.LoadEnvFile()

	// Check if required config is missing
	if missing := config.MissingRequired(); len(missing) > 0 {
		if isInteractiveTerminal() {
			// Interactive terminal - run setup wizard
			if !runSetupWizard() {
				waitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it, and ProtectSystem=strict
	// makes the working directory read-only).
	_, underSystemd := os.LookupEnv("JOURNAL_STREAM")
	if underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		multiWriter := io.MultiWriter(consoleWriter, fileWriter)
		log.Logger = log.Output(multiWriter)

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatalWithWait("invalid config: %v", err)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		fatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	// Derive encryption key for saved user settings
	encryptionKey, err := storage.DeriveKey(cfg.SettingsKey)
	if err != nil {
		fatalWithWait("failed to derive encryption key: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath, encryptionKey)
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Per-user workflow logs go next to the main log file
	if !underSystemd {
		if err := bot.InitWorkflowLog("."); err != nil {
			log.Warn().Err(err).Msg("failed to initialize workflow log")
		}
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := llm.NewProvider(ctx, llm.ProviderConfig{
		Provider:      cfg.GuidanceProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
	})
	if err != nil {
		fatalWithWait("failed to initialize guidance provider: %v", err)
	}
	log.Info().Str("provider", cfg.GuidanceProvider).Msg("guidance provider initialized")

	// Wrap with cache
	cachedProvider := llm.NewCachedProvider(provider, store)
	log.Info().Dur("ttl", cfg.GuidanceCacheTTL).Msg("guidance caching enabled")

	g, ctx := errgroup.WithContext(ctx)

	// Run bot update loop
	g.Go(func() error {
		return runBot(ctx, tg, store, cachedProvider, cfg)
	})

	// Prune expired cached guidance in the background
	maintenanceService := maintenance.NewService(store, cfg.GuidanceCacheTTL)
	g.Go(func() error {
		return maintenanceService.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.Store, provider llm.GuidanceProvider, cfg *config.Config) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, cfg.AdminTelegramID)
	b.SetGuidanceProvider(provider, cfg.GuidanceTimeout)
	b.SetRestrictUsers(cfg.RestrictUsers)
	if cfg.RestrictUsers {
		log.Info().Msg("only allowed users can use the bot")
	}

	var wg sync.WaitGroup
	shutdown := func() {
		log.Info().Msg("waiting for active handlers to finish")
		wg.Wait()
		b.Shutdown()
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			shutdown()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				shutdown()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
