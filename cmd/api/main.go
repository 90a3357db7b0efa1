package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"steam-nav-bot/internal/adapters/api"
	"steam-nav-bot/internal/adapters/repo"
	"steam-nav-bot/internal/infra/config"
	"steam-nav-bot/internal/infra/db"
	httpinfra "steam-nav-bot/internal/infra/http"
	"steam-nav-bot/internal/infra/log"
	"steam-nav-bot/internal/infra/metrics"
	"steam-nav-bot/internal/usecase/content"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("api: не удалось открыть БД")
	}
	defer conn.Close()

	channel, err := content.ResolveChannel(cfg.Channel.Username)
	if err != nil {
		logger.Fatal().Err(err).Str("channel", cfg.Channel.Username).Msg("api: CHANNEL_USERNAME не распознан")
	}
	contentUC := content.NewService(repo.NewSQLite(conn), channel)
	if cfg.Admin.Secret == "" {
		logger.Warn().Msg("api: ADMIN_SECRET не задан, админские маршруты отвечают 500")
	}

	apiLog := log.Component(logger, "api")
	server := httpinfra.NewServer(apiLog, httpinfra.NewOriginPolicy(cfg.AllowedOrigins()...))
	api.NewHandler(contentUC, api.Meta{
		ChannelUsername: channel,
		ChatURL:         cfg.Channel.ChatURL,
		WebAppOrigin:    cfg.WebAppOrigin(),
		AllowedOrigins:  cfg.AllowedOrigins(),
	}, api.Options{
		AdminSecret:    cfg.Admin.Secret,
		BotToken:       cfg.Telegram.Token,
		InitDataMaxAge: cfg.WebApp.InitDataMaxAge,
		NewsLimit:      cfg.NewsLimit,
	}, apiLog).Register(server.Router)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.ListenPort())); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки")
	}
}
