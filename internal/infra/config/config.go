package config

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"steam-nav-bot/internal/domain"
)

// AppConfig описывает конфигурацию бота и API. Читается один раз при старте.
type AppConfig struct {
	AppEnv  string `envconfig:"APP_ENV" default:"dev"`
	Port    int    `envconfig:"PORT"`
	APIPort int    `envconfig:"API_PORT" default:"3000"`

	Telegram struct {
		Token      string `envconfig:"BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	WebApp struct {
		URL             string        `envconfig:"WEBAPP_URL"`
		FallbackOrigins []string      `envconfig:"FALLBACK_ORIGINS" default:"https://easypi9.github.io"`
		LocalOrigins    []string      `envconfig:"LOCAL_ORIGINS" default:"http://127.0.0.1:8080,http://localhost:8080"`
		InitDataMaxAge  time.Duration `envconfig:"INIT_DATA_MAX_AGE" default:"24h"`
	} `envconfig:""`

	Channel struct {
		Username string `envconfig:"CHANNEL_USERNAME"`
		ID       int64  `envconfig:"CHANNEL_ID"`
		ChatURL  string `envconfig:"CHAT_URL"`
		NewsTag  string `envconfig:"NEWS_TAG" default:"#news"`
	} `envconfig:""`

	Admin struct {
		IDs    string `envconfig:"ADMIN_IDS"`
		Secret string `envconfig:"ADMIN_SECRET"`
	} `envconfig:""`

	DBPath    string `envconfig:"DB_PATH" default:"/data/bot.db"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	NewsLimit int    `envconfig:"NEWS_LIMIT" default:"200"`
}

// Load загружает .env (если есть) и конфиг из окружения.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	cfg.normalize()
	return cfg
}

func (c *AppConfig) normalize() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.WebApp.URL = strings.TrimSpace(c.WebApp.URL)
	c.Channel.Username = strings.TrimSpace(c.Channel.Username)
	c.Channel.ChatURL = strings.TrimSpace(c.Channel.ChatURL)
	c.Admin.Secret = strings.TrimSpace(c.Admin.Secret)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.WebApp.FallbackOrigins = trimAll(c.WebApp.FallbackOrigins)
	c.WebApp.LocalOrigins = trimAll(c.WebApp.LocalOrigins)
}

// ListenPort возвращает PORT, а без него API_PORT.
func (c AppConfig) ListenPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return c.APIPort
}

// WebAppOrigin возвращает scheme://host из WEBAPP_URL или пустую строку.
func (c AppConfig) WebAppOrigin() string {
	if c.WebApp.URL == "" {
		return ""
	}
	u, err := url.Parse(c.WebApp.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// AllowedOrigins перечисляет разрешённые для CORS источники.
func (c AppConfig) AllowedOrigins() []string {
	var origins []string
	if origin := c.WebAppOrigin(); origin != "" {
		origins = append(origins, origin)
	}
	origins = append(origins, c.WebApp.FallbackOrigins...)
	origins = append(origins, c.WebApp.LocalOrigins...)

	seen := make(map[string]struct{}, len(origins))
	unique := origins[:0]
	for _, origin := range origins {
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		unique = append(unique, origin)
	}
	return unique
}

// Admins возвращает список администраторов бота.
func (c AppConfig) Admins() domain.AdminList {
	return domain.NewAdminList(domain.ParseAdminIDs(c.Admin.IDs)...)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
