package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geminiproxy/internal/api"
	"geminiproxy/internal/chat"
	"geminiproxy/internal/gemini"
	"geminiproxy/internal/logger"
	"geminiproxy/internal/redis"
	"geminiproxy/internal/server"
	"geminiproxy/internal/storage"
	"geminiproxy/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Error("open database failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return err
	}
	defer db.Close()
	if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
		log.Error("migrate database failed", zap.Error(err))
		return err
	}

	chatOpts := []chat.Option{chat.WithLogger(log.Named("chat"))}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, history cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rdb.Close()
			chatOpts = append(chatOpts, chat.WithCache(rdb, cfg.Redis.HistoryTTL))
		}
	}
	chatService := chat.NewService(db, chatOpts...)

	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, func(r interface{}) {
		log.Error("background job panicked", zap.Any("panic", r))
	})
	geminiClient := gemini.FromConfig(cfg.Gemini,
		gemini.WithLogger(log.Named("gemini")),
		gemini.WithBackground(pool),
	)
	if !geminiClient.Configured() {
		log.Warn("GEMINI_API_KEY is not set, /api/gemini will answer 500")
	}

	srv := server.New(cfg.Server, log)
	handler := api.NewHandler(geminiClient, chatService, api.Routes{
		Gemini: cfg.Server.EnableGemini,
		Chat:   cfg.Server.EnableChat,
	}, log.Named("api"))
	handler.RegisterRoutes(srv.Engine())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runErr := srv.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Stop(drainCtx); err != nil {
		log.Warn("background jobs not drained", zap.Error(err))
	}
	return runErr
}
