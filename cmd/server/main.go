package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/koopa0/system-design/14-chat-rooms/internal/chat"
	"github.com/koopa0/system-design/14-chat-rooms/internal/config"
	"github.com/koopa0/system-design/14-chat-rooms/internal/handler"
	"github.com/koopa0/system-design/14-chat-rooms/internal/mirror"
	"github.com/koopa0/system-design/14-chat-rooms/internal/presence"
	"github.com/koopa0/system-design/14-chat-rooms/internal/ws"
	apperrors "github.com/koopa0/system-design/14-chat-rooms/pkg/errors"
	"github.com/koopa0/system-design/14-chat-rooms/pkg/logger"
)

func main() {
	// 解析命令行參數（非空值覆蓋配置檔與環境變數）
	var (
		configPath = flag.String("config", "config.yaml", "配置檔路徑")
		logLevel   = flag.String("log-level", "", "日誌級別 (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "", "日誌格式 (text, json)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	log, logCloser, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Level == "debug")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("服務器異常結束", "error", err)
		os.Exit(1)
	}
}

// run 組裝元件並阻塞到收到關閉信號
func run(cfg *config.Config, log *slog.Logger) error {
	registry := presence.NewRegistry()

	hub := ws.NewHub(ws.Settings{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		AllowedOrigins: cfg.AllowedOrigins(),
	}, log)

	coordinator := chat.NewCoordinator(registry, hub, chat.Settings{
		AdminName:   cfg.Chat.AdminName,
		WelcomeText: cfg.Chat.WelcomeText,
		TimeLayout:  cfg.Chat.TimeLayout,
	}, log)

	// Redis 鏡像（選用）
	if cfg.RedisEnabled() {
		presenceMirror, closeMirror, err := setupMirror(cfg, log)
		if err != nil {
			return err
		}
		defer closeMirror()
		coordinator.SetObserver(presenceMirror)
	}

	hub.Attach(coordinator)

	h := handler.NewHandler(registry, hub, cfg.Static.Dir, log)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("聊天服務器啟動",
			"addr", cfg.Addr(),
			"env", cfg.Env,
			"static_dir", cfg.Static.Dir,
			"redis_mirror", cfg.RedisEnabled())
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}

	case sig := <-shutdown:
		log.Info("收到關閉信號，開始優雅關閉...", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// 停止接受新連接
		if err := server.Shutdown(ctx); err != nil {
			log.Error("服務器關閉失敗", "error", err)
			if closeErr := server.Close(); closeErr != nil {
				log.Error("強制關閉服務器失敗", "error", closeErr)
			}
		}

		// WebSocket 連接不受 Shutdown 管理，需要另外關閉
		hub.Stop()
	}

	log.Info("服務器已關閉")
	return nil
}

// setupMirror 連接 Redis 並清除上一次執行留下的鏡像資料
func setupMirror(cfg *config.Config, log *slog.Logger) (*mirror.RedisMirror, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.WriteTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "presence mirror unavailable")
	}

	m := mirror.NewRedisMirror(client, cfg.Redis.KeyPrefix, cfg.Redis.QueueSize, cfg.Redis.WriteTimeout, log)
	if err := m.Reset(ctx); err != nil {
		_ = m.Close()
		_ = client.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := m.Close(); err != nil {
			log.Error("關閉 Redis 鏡像失敗", "error", err)
		}
		if err := client.Close(); err != nil {
			log.Error("關閉 Redis 連線失敗", "error", err)
		}
	}

	return m, closeFn, nil
}
