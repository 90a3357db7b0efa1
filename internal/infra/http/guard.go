package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"

	"steam-nav-bot/internal/infra/metrics"
)

// AdminSecretHeader — заголовок с общим секретом для административных маршрутов.
const AdminSecretHeader = "X-Admin-Secret"

// OriginPolicy хранит разрешённые Origin.
type OriginPolicy struct {
	allowed map[string]struct{}
	ordered []string
}

// NewOriginPolicy создаёт политику из точных значений Origin. Пустые значения игнорируются.
func NewOriginPolicy(origins ...string) OriginPolicy {
	p := OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if origin == "" {
			continue
		}
		if _, ok := p.allowed[origin]; ok {
			continue
		}
		p.allowed[origin] = struct{}{}
		p.ordered = append(p.ordered, origin)
	}
	return p
}

// Allowed пропускает запросы без Origin и запросы с точно совпадающим Origin.
func (p OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// Origins возвращает разрешённые значения в порядке добавления.
func (p OriginPolicy) Origins() []string {
	return append([]string(nil), p.ordered...)
}

// OriginGuard отклоняет запросы с неразрешённым Origin.
func OriginGuard(policy OriginPolicy, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !policy.Allowed(origin) {
				metrics.IncGuardRejection("origin")
				logger.Warn().Str("origin", origin).Str("path", r.URL.Path).Msg("http: CORS blocked")
				WriteError(w, http.StatusForbidden, "CORS blocked: "+origin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecretGuard пропускает запрос только с верным X-Admin-Secret.
// Если секрет на сервере не задан, отклоняется любой запрос.
func SecretGuard(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				metrics.IncGuardRejection("secret_unset")
				logger.Error().Str("path", r.URL.Path).Msg("http: ADMIN_SECRET не задан")
				WriteError(w, http.StatusInternalServerError, "admin secret is not configured")
				return
			}
			got := r.Header.Get(AdminSecretHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				metrics.IncGuardRejection("secret")
				logger.Warn().Str("path", r.URL.Path).Msg("http: неверный секрет")
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
