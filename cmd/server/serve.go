package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	"github.com/yukikurage/task-approval-api/internal/config"
	"github.com/yukikurage/task-approval-api/internal/constants"
	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/handlers"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/services"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API, the change feed and the deadline reminder worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	allowedRepo := repository.NewAllowedEmailRepository(db)

	publisher, source, closeFeed, err := openChangefeed(cfg, log)
	if err != nil {
		return err
	}
	defer closeFeed()

	taskService := services.NewTaskService(taskRepo, commentRepo, eventRepo, profileRepo, publisher, log)
	commentService := services.NewCommentService(taskService, commentRepo, publisher, log)
	notificationService := services.NewNotificationService(notificationRepo, log)
	activityService := services.NewActivityService(eventRepo, commentRepo)
	teamService := services.NewTeamService(profileRepo, allowedRepo, log)
	authService := services.NewAuthService(profileRepo, log)
	triageService := services.NewTriageService(cfg.OpenAIAPIKey, log)
	if !triageService.Configured() {
		log.Warn("OPENAI_API_KEY not set, AI triage disabled")
	}

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,              // Redis pool size
		"tcp",           // network type
		cfg.RedisAddr(), // Redis address from config
		"",              // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		return err
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(), // true in production (HTTPS), false in development
		SameSite: http.SameSiteLaxMode,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.SessionMaxAge, log),
		Task:         handlers.NewTaskHandler(taskService, triageService),
		Comment:      handlers.NewCommentHandler(commentService),
		Notification: handlers.NewNotificationHandler(notificationService, activityService),
		Team:         handlers.NewTeamHandler(teamService),
		Stream: handlers.NewStreamHandler(source, repository.NewChangeProbe(db), taskService, notificationService,
			changefeed.WatcherOptions{PollInterval: cfg.PollInterval}, cfg.ReadTimeout, log),
	}, profileRepo, cfg.RequestTimeout, log)

	worker := services.NewDeadlineWorker(taskRepo, notificationRepo, publisher, cfg.DeadlineCheckInterval, cfg.DeadlineWarningWindow, log)
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(workerCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("changefeed", cfg.ChangefeedBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stopWorker()
			<-workerDone
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	stopWorker()
	<-workerDone
	log.Info("server and deadline worker shut down gracefully")
	return nil
}

// openChangefeed picks the push backend. Redis fans changes out across
// processes; the local broker only reaches streams served by this process.
func openChangefeed(cfg *config.Config, log *zap.Logger) (changefeed.Publisher, changefeed.Source, func(), error) {
	switch cfg.ChangefeedBackend {
	case config.ChangefeedLocal:
		broker := changefeed.NewBroker()
		return broker, broker, broker.Close, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		closeClient := func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", zap.Error(err))
			}
		}
		return changefeed.NewRedisPublisher(client), changefeed.NewRedisSource(client, log), closeClient, nil
	}
}
