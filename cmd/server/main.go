package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/transport/httpapi"
	"chat-relay/transport/ws"
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

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern ensures all 'defer' statements (like database cleanup) run before the
// process exits, and keeps the initialization logic testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	auth.SetSigningKey([]byte(config.JWTSecret))

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)

	// 3. Relay core
	telemetryChan := make(chan event.Event, config.BufferSize)
	registry := runtime.NewConnRegistry()
	fanout := runtime.NewFanout(logger, telemetryChan)
	broker := runtime.NewRoomBroker(logger, registry, messageRepository, userRepository, fanout)
	presence := runtime.NewPresenceAggregator(logger, registry, fanout)
	typing := runtime.NewTypingCoordinator(logger, registry, fanout, config.TypingTTL)

	chatService := services.NewChatService(logger, registry, broker, presence, typing)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)

	// 4. Supervision: typing sweeps, telemetry, heartbeat
	counter := event.NewCounter()
	handlers := []event.Handler{
		event.NewDeliveryHandler(logger, counter),
		event.NewWorkerRestartedAfterPanicHandler(logger, counter),
	}

	sweepInterval := config.TypingSweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 500 * time.Millisecond
	}

	supervisor := workers.NewSupervisor(logger, telemetryChan, config.RestartInterval)
	supervisor.Add(
		workers.NewTypingSweeper(logger, typing, sweepInterval),
		workers.NewTelemetryWorker(logger, telemetryChan, handlers),
		workers.NewHeartbeatWorker(logger, registry, counter, config.HeartbeatInterval),
	)
	go supervisor.Run(ctx)
	defer supervisor.Stop()

	// 5. HTTP surface
	wsHandler := ws.NewHandler(logger, chatService, config.ConnectionBufferSize)
	router := httpapi.NewRouter(logger, authService, wsHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Relay listening", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return exitRuntime, fmt.Errorf("shutdown failed: %w", err)
		}
	}

	logger.Info("Relay stopped")
	return exitOK, nil
}
