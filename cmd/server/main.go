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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"geminichat-backend/internal/config"
	"geminichat-backend/internal/database"
	"geminichat-backend/internal/handlers"
	"geminichat-backend/internal/middleware"
	"geminichat-backend/internal/router"
	"geminichat-backend/internal/services"
	"geminichat-backend/internal/session"
	"geminichat-backend/internal/transcript"
	"geminichat-backend/internal/websocket"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("starting Gemini chat backend")

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	var cfgErr *config.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		log.Warn().Err(err).Msg("configuration incomplete, chat input disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Info().Str("env", cfg.Env).Msg("environment variables loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ──── Step 2: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClients.Close()
	if redisClients != nil {
		log.Info().Msg("redis connected")
	} else {
		log.Info().Msg("no REDIS_URL set, using in-process fan-out")
	}

	// ──── Step 3: Initialize Gemini Client ────
	var completer transcript.Completer
	if cfg.Usable() {
		geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			Temperature:    cfg.GeminiTemperature,
			ConcurrentReqs: cfg.GeminiConcurrentReqs,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("gemini client initialization failed")
		}
		defer geminiService.Close()
		completer = geminiService
		log.Info().Str("model", cfg.GeminiModel).Str("key_source", cfg.GeminiKeySource).Msg("gemini client initialized")
	} else {
		log.Warn().Msg("no Gemini API key found in secrets file or environment")
	}

	// ──── Step 4: Initialize Session Store ────
	store := session.NewStore(cfg.WelcomeMessage)
	store.SetEvictionConfig(cfg.SessionIdleTimeout, cfg.SessionSweepInterval)
	store.StartEvictionLoop(ctx)
	log.Info().Dur("idle_timeout", cfg.SessionIdleTimeout).Msg("session store ready")

	// ──── Step 5: Initialize Services ────
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		log.Warn().Msg("JWT_SECRET not set, session tokens will not survive a restart")
	}
	sessionAuth := middleware.NewSessionAuth(secret, cfg.SessionTokenTTL)
	chatService := services.NewChatService(store, completer, cfg.GeminiModel)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.SubscribeClient(), sessionAuth, chatService)
	publisher := services.NewTurnPublisher(redisClients.PublishClient(), wsHub)
	store.SetAppendHook(publisher.PublishTurn)
	store.SetRemoveHook(wsHub.CloseSession)
	log.Info().Msg("websocket hub started")

	// ──── Step 7: Start HTTP Server ────
	chatHandler := handlers.NewChatHandler(chatService, sessionAuth, int(cfg.SessionTokenTTL.Seconds()))
	r := router.New(sessionAuth, chatHandler, wsHub, cfg.FrontendURL, cfg.MessageRateLimit)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve until a signal arrives, then drain
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		log.Info().
			Str("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)).
			Str("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)).
			Bool("usable", chatService.Usable()).
			Msg("backend ready")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-sigCtx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
