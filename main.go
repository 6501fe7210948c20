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

	"github.com/isdelr/taskflow-api/internal/api"
	"github.com/isdelr/taskflow-api/internal/auth"
	"github.com/isdelr/taskflow-api/internal/config"
	"github.com/isdelr/taskflow-api/internal/database"
	"github.com/isdelr/taskflow-api/internal/logger"
	"github.com/isdelr/taskflow-api/internal/monitoring"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/isdelr/taskflow-api/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())
	if cfg.UsingDevSecret {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret. Never do this in production.")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService, services.WithHashCost(cfg.BcryptCost))

	taskOpts := []services.TaskOption{services.WithNotifier(hub)}
	if cfg.RedisURL != "" {
		rdb, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		taskOpts = append(taskOpts, services.WithStatsCache(services.NewRedisStatsCache(rdb, cfg.StatsCacheTTL)))
		log.Info().Dur("ttl", cfg.StatsCacheTTL).Msg("Task stats cache enabled")
	}
	taskService := services.NewTaskService(db, eventService, taskOpts...)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	guard := auth.NewGuard(tokens, userService)

	// Set up and run the background stats updater
	statUpdater, err := monitoring.NewStatUpdater(15 * time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stat updater")
	}
	go statUpdater.Run()

	// Set up and run the background reminder scheduler
	var reminders *monitoring.ReminderScheduler
	if cfg.ReminderSchedule != "" {
		reminders = monitoring.NewReminderScheduler(taskService, eventService, hub)
		if err := reminders.Start(cfg.ReminderSchedule); err != nil {
			log.Fatal().Err(err).Msg("Failed to start reminder scheduler")
		}
	}

	// Set up router
	router := api.NewRouter(cfg, api.Dependencies{
		Users:  userService,
		Tasks:  taskService,
		Events: eventService,
		Tokens: tokens,
		Guard:  guard,
		Hub:    hub,
		Stats:  statUpdater,
		DB:     db,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if reminders != nil {
		reminders.Stop(5 * time.Second)
	}
	statUpdater.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
