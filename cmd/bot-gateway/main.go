package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"steam-nav-bot/internal/adapters/api"
	"steam-nav-bot/internal/adapters/bot"
	"steam-nav-bot/internal/adapters/repo"
	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/infra/cache"
	"steam-nav-bot/internal/infra/config"
	"steam-nav-bot/internal/infra/db"
	httpinfra "steam-nav-bot/internal/infra/http"
	"steam-nav-bot/internal/infra/log"
	"steam-nav-bot/internal/infra/metrics"
	"steam-nav-bot/internal/usecase/content"
	"steam-nav-bot/internal/usecase/ingest"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("BOT_TOKEN обязателен")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("не удалось открыть БД")
	}
	defer conn.Close()

	store := repo.NewSQLite(conn)
	channel, err := content.ResolveChannel(cfg.Channel.Username)
	if err != nil {
		logger.Fatal().Err(err).Str("channel", cfg.Channel.Username).Msg("CHANNEL_USERNAME не распознан")
	}
	contentUC := content.NewService(store, channel)

	admins := cfg.Admins()
	if admins.Len() == 0 {
		logger.Warn().Msg("ADMIN_IDS пуст: добавление контента через бота недоступно")
	}
	pending := pendingStore(ctx, cfg, logger)
	machine := ingest.NewMachine(admins, pending, store, ingest.Channel{Username: channel, ID: cfg.Channel.ID}, log.Component(logger, "ingest"))

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	handler := bot.NewHandler(botAPI, log.Component(logger, "bot"), contentUC, machine, admins, bot.Config{
		WebAppURL: cfg.WebApp.URL,
		ChatURL:   cfg.Channel.ChatURL,
		Channel:   ingest.Channel{Username: channel, ID: cfg.Channel.ID},
		NewsTag:   cfg.Channel.NewsTag,
	})

	server := httpinfra.NewServer(log.Component(logger, "api"), httpinfra.NewOriginPolicy(cfg.AllowedOrigins()...))
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
	}, log.Component(logger, "api")).Register(server.Router)

	if cfg.Telegram.WebhookURL != "" {
		server.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				httpinfra.WriteError(w, http.StatusBadRequest, "invalid update")
				return
			}
			handler.HandleUpdate(r.Context(), update)
			w.WriteHeader(http.StatusOK)
		})
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный TG_WEBHOOK_URL")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("бот работает через вебхук")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		go poll(ctx, botAPI, handler, logger)
	}

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.ListenPort())); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

// poll обрабатывает апдейты по одному, сохраняя порядок сообщений каждого администратора.
func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, handler *bot.Handler, logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := botAPI.GetUpdatesChan(u)
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот запущен (long polling)")
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			handler.HandleUpdate(ctx, upd)
		}
	}
}

// pendingStore выбирает хранилище незавершённых действий: Redis, если задан REDIS_ADDR, иначе память процесса.
func pendingStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) domain.PendingStore {
	if cfg.RedisAddr == "" {
		return ingest.NewMemoryPending()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis недоступен")
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("незавершённые действия хранятся в Redis")
	return cache.NewRedisPendingStore(client, "")
}
