package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/mama165/sdk-go/logs"

	"courier/auth"
	"courier/infrastructure/storage"
	"courier/infrastructure/web"
	"courier/internal"
	"courier/moderation"
	"courier/observability"
	"courier/runtime"
	"courier/runtime/workers"
	"courier/services"
	"courier/sink"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so 'defer' statements (database cleanup)
// always execute before the program exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	messageRepository, err := storage.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = messageRepository.Close()
	}()
	userRepository := storage.NewUserRepository(db)
	searchRepository := storage.NewSearchRepository(blugeWriter, logger)

	// 3. Moderation
	wordlist, err := moderation.LoadWordlist()
	if err != nil {
		return exitRuntime, err
	}
	logger.Info(fmt.Sprintf("%d censored words loaded [%d languages]",
		len(wordlist.Words), len(wordlist.Languages)))
	moderator, err := moderation.NewModerator(wordlist.Words, charReplacement)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Supervision & Orchestration
	monitor := observability.NewMonitor()
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(logger, supervisor, registry,
		messageRepository, monitor, config.BufferSize,
		config.SinkTimeout, config.MetricInterval, config.LowCapacityThreshold)
	orchestrator.AddSinks(sink.NewIndexSink(searchRepository, logger))

	// 5. Services & HTTP
	issuer := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	chatService := services.NewChatService(logger, orchestrator, userRepository,
		searchRepository, moderator, config.MaxContentLength)
	authService := services.NewAuthService(logger, userRepository, issuer)

	authHandler := web.NewAuthHandler(authService)
	messageHandler := web.NewMessageHandler(logger, chatService, monitor,
		config.ConnectionBufferSize, config.HeartbeatInterval,
		config.RecentLimit, config.SearchLimit)
	app := web.NewRouter(authHandler, messageHandler, issuer)

	// 6. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP & Orchestrator)
	errChan := make(chan error, 2)

	// 7. Start the Engine (Workers and Fanout)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 8. HTTP Server
	address := fmt.Sprintf("0.0.0.0:%d", config.Port)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		err := app.Listen(address,
			iris.WithoutInterruptHandler,
			iris.WithoutServerError(iris.ErrServerClosed))
		if err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Final Cleanup (Graceful Shutdown)
	// Active streams get a short window to finish; workers drain their channels.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("HTTP shutdown did not complete cleanly", "error", err)
	}
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
