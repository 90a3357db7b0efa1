package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"steam-nav-bot/internal/infra/metrics"
)

// InitDataHeader — заголовок с initData Telegram WebApp.
const InitDataHeader = "X-Telegram-Init-Data"

var (
	ErrInitDataMissing   = errors.New("init_data отсутствует")
	ErrInitDataSignature = errors.New("подпись недействительна")
	ErrInitDataExpired   = errors.New("init_data устарели")
	ErrInitDataUser      = errors.New("в init_data нет пользователя")
)

type webAppUserKey struct{}

// WebAppAuthMiddleware проверяет initData по токену бота и кладёт id пользователя в контекст.
// maxAge <= 0 отключает проверку auth_date.
func WebAppAuthMiddleware(botToken string, maxAge time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initData := r.Header.Get(InitDataHeader)
			if initData == "" {
				initData = r.URL.Query().Get("init_data")
			}
			userID, err := ValidateInitData(initData, botToken, maxAge, time.Now())
			if err != nil {
				metrics.IncGuardRejection("init_data")
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("http: initData отклонены")
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), webAppUserKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WebAppUserID возвращает id пользователя, проверенный WebAppAuthMiddleware.
func WebAppUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(webAppUserKey{}).(int64)
	return id, ok
}

// ValidateInitData проверяет подпись initData и возвращает id пользователя.
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (int64, error) {
	if initData == "" || botToken == "" {
		return 0, ErrInitDataMissing
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, ErrInitDataSignature
	}
	hash := values.Get("hash")
	if hash == "" {
		return 0, ErrInitDataSignature
	}
	expected, err := hex.DecodeString(hash)
	if err != nil {
		return 0, ErrInitDataSignature
	}
	if !hmac.Equal(SignInitData(values, botToken), expected) {
		return 0, ErrInitDataSignature
	}
	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > maxAge {
			return 0, ErrInitDataExpired
		}
	}
	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return 0, ErrInitDataUser
	}
	return user.ID, nil
}

// SignInitData считает подпись initData без поля hash.
func SignInitData(values url.Values, botToken string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum(nil)
}
