package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"steam-nav-bot/internal/adapters/repo"
	"steam-nav-bot/internal/domain"
	"steam-nav-bot/internal/infra/db"
	httpinfra "steam-nav-bot/internal/infra/http"
	"steam-nav-bot/internal/usecase/content"
)

const (
	testSecret = "s3cret"
	testToken  = "123:abc"
)

type testEnv struct {
	router  chi.Router
	repo    *repo.SQLite
	content *content.Service
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	store := repo.NewSQLite(conn)
	svc := content.NewService(store, "steam_nav")
	h := NewHandler(svc, Meta{ChannelUsername: "steam_nav", WebAppOrigin: "https://app.example"},
		Options{AdminSecret: testSecret, BotToken: testToken}, zerolog.Nop())
	r := chi.NewRouter()
	h.Register(r)
	return testEnv{router: r, repo: store, content: svc}
}

func (e testEnv) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("ответ не JSON: %v (%s)", err, rec.Body.String())
	}
}

func admin() map[string]string {
	return map[string]string{httpinfra.AdminSecretHeader: testSecret}
}

func TestHealthAndMeta(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec := env.do(t, http.MethodGet, "/meta", "", nil)
	var meta Meta
	decodeBody(t, rec, &meta)
	want := Meta{ChannelUsername: "steam_nav", WebAppOrigin: "https://app.example", AllowedOrigins: []string{}}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("meta (-want +got):\n%s", diff)
	}
}

func TestListLessons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, l := range []domain.Lesson{
		{Section: domain.SectionSteam, Ord: 2, Title: "Motors", MessageID: 12},
		{Section: domain.SectionSteam, Ord: 1, Title: "Intro", MessageID: 11},
		{Section: domain.SectionPrep, Ord: 1, Title: "Warmup", MessageID: 5},
	} {
		if err := env.repo.UpsertLesson(ctx, l); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	rec := env.do(t, http.MethodGet, "/lessons?section=steam", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got struct {
		Section string       `json:"section"`
		Items   []lessonItem `json:"items"`
	}
	decodeBody(t, rec, &got)
	if got.Section != "steam" || len(got.Items) != 2 {
		t.Fatalf("неожиданный ответ: %+v", got)
	}
	if got.Items[0].Ord != 1 || got.Items[1].Ord != 2 {
		t.Fatalf("уроки должны идти по ord: %+v", got.Items)
	}
	if got.Items[0].PostURL == nil || *got.Items[0].PostURL != "https://t.me/steam_nav/11" {
		t.Fatalf("post_url: %v", got.Items[0].PostURL)
	}

	for _, q := range []string{"", "?section=art", "?section=", "?section=STEAM", "?section=%20prep%20"} {
		rec := env.do(t, http.MethodGet, "/lessons"+q, "", nil)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "section must be prep|steam") {
			t.Fatalf("%q: %d %s", q, rec.Code, rec.Body.String())
		}
	}
}

func TestListLessonsEmptySection(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/lessons?section=prep", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("пустой раздел: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNewsLimit(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []int64{100, 101, 102} {
		if _, _, err := env.content.AddNews(context.Background(), id); err != nil {
			t.Fatalf("add news: %v", err)
		}
	}
	rec := env.do(t, http.MethodGet, "/news?limit=2", "", nil)
	var got struct {
		Items []newsItem `json:"items"`
	}
	decodeBody(t, rec, &got)
	if len(got.Items) != 2 || got.Items[0].MessageID != 102 {
		t.Fatalf("ожидали две свежие новости, получили %+v", got.Items)
	}
	for _, q := range []string{"0", "201", "abc"} {
		if rec := env.do(t, http.MethodGet, "/news?limit="+q, "", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: status %d", q, rec.Code)
		}
	}
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.repo.UpsertLesson(ctx, domain.Lesson{Section: domain.SectionSteam, Ord: 3, Title: "Robots", MessageID: 777}); err != nil {
		t.Fatal(err)
	}
	if err := env.repo.UpsertProgress(ctx, 42, domain.SectionSteam, 3); err != nil {
		t.Fatal(err)
	}
	if err := env.repo.UpsertProgress(ctx, 42, domain.SectionPrep, 9); err != nil {
		t.Fatal(err)
	}

	if rec := env.do(t, http.MethodGet, "/progress", "", nil); rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "user_id required") {
		t.Fatalf("без user_id: %d %s", rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/progress?user_id=42", "", nil)
	var got struct {
		UserID int64          `json:"user_id"`
		Items  []progressItem `json:"items"`
	}
	decodeBody(t, rec, &got)
	if got.UserID != 42 || len(got.Items) != 2 {
		t.Fatalf("неожиданный ответ: %+v", got)
	}
	for _, it := range got.Items {
		switch it.Section {
		case domain.SectionSteam:
			if it.Title == nil || *it.Title != "Robots" || it.PostURL == nil || *it.PostURL != "https://t.me/steam_nav/777" {
				t.Fatalf("steam: %+v", it)
			}
		case domain.SectionPrep:
			if it.Title != nil || it.MessageID != nil || it.PostURL != nil {
				t.Fatalf("урок prep/9 не существует, ожидали null поля: %+v", it)
			}
		}
	}
}

func signedInitData(userID int64) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`}`)
	values.Set("hash", hex.EncodeToString(httpinfra.SignInitData(values, testToken)))
	return values.Encode()
}

func TestPostProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.repo.UpsertLesson(ctx, domain.Lesson{Section: domain.SectionPrep, Ord: 1, Title: "Warmup", MessageID: 5}); err != nil {
		t.Fatal(err)
	}
	body := `{"section":"prep","ord":1}`

	if rec := env.do(t, http.MethodPost, "/progress", body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("без initData ожидали 401, получили %d", rec.Code)
	}

	auth := map[string]string{httpinfra.InitDataHeader: signedInitData(55)}
	if rec := env.do(t, http.MethodPost, "/progress", body, auth); rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	progress, err := env.repo.GetProgress(ctx, 55)
	if err != nil || len(progress) != 1 || progress[0].Ord != 1 {
		t.Fatalf("прогресс не записан: %+v %v", progress, err)
	}

	if rec := env.do(t, http.MethodPost, "/progress", `{"section":"prep","ord":2}`, auth); rec.Code != http.StatusNotFound {
		t.Fatalf("несуществующий урок: ожидали 404, получили %d", rec.Code)
	}
}

func TestAdminRequiresSecret(t *testing.T) {
	env := newTestEnv(t)
	body := `{"section":"steam","ord":1,"title":"Intro","message_id":10}`
	if rec := env.do(t, http.MethodPost, "/admin/lessons", body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("без секрета: %d", rec.Code)
	}
	wrong := map[string]string{httpinfra.AdminSecretHeader: "nope"}
	if rec := env.do(t, http.MethodPost, "/admin/lessons", body, wrong); rec.Code != http.StatusUnauthorized {
		t.Fatalf("чужой секрет: %d", rec.Code)
	}
	lessons, _ := env.repo.ListLessons(context.Background(), domain.SectionSteam)
	if len(lessons) != 0 {
		t.Fatalf("без секрета ничего не должно сохраниться: %+v", lessons)
	}
}

func TestAdminLessons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.do(t, http.MethodPost, "/admin/lessons", `{"section":"steam","ord":1,"title":"Intro","message_id":10}`, admin())
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/admin/lessons", `{"section":"steam","ord":1,"title":"Other","message_id":11,"replace":false}`, admin())
	if rec.Code != http.StatusConflict {
		t.Fatalf("strict insert: ожидали 409, получили %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/admin/lessons", `{"section":"steam","ord":1,"title":"Intro v2","message_id":12}`, admin())
	if rec.Code != http.StatusOK {
		t.Fatalf("replace: %d", rec.Code)
	}
	lesson, err := env.repo.GetLesson(ctx, domain.SectionSteam, 1)
	if err != nil || lesson.Title != "Intro v2" || lesson.MessageID != 12 {
		t.Fatalf("урок не заменён: %+v %v", lesson, err)
	}

	for _, body := range []string{
		`{"section":"art","ord":1,"title":"x","message_id":1}`,
		`{"section":"STEAM","ord":1,"title":"x","message_id":1}`,
		`{"section":" steam","ord":1,"title":"x","message_id":1}`,
		`{"section":"steam","ord":0,"title":"x","message_id":1}`,
		`{"section":"steam","ord":1,"title":"  ","message_id":1}`,
		`{"section":"steam","ord":1,"title":"x","message_id":0}`,
		`not json`,
	} {
		if rec := env.do(t, http.MethodPost, "/admin/lessons", body, admin()); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: ожидали 400, получили %d", body, rec.Code)
		}
	}

	if rec := env.do(t, http.MethodDelete, "/admin/lessons/steam/1", "", admin()); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/admin/lessons/steam/1", "", admin()); rec.Code != http.StatusNotFound {
		t.Fatalf("повторное удаление: ожидали 404, получили %d", rec.Code)
	}
}

func TestAdminLinksAndNews(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/links", `{"title":"Docs","url":"https://docs.example","ord":1}`, admin())
	if rec.Code != http.StatusOK {
		t.Fatalf("add link: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Item linkItem `json:"item"`
	}
	decodeBody(t, rec, &created)
	if rec := env.do(t, http.MethodPost, "/admin/links", `{"title":"Bad","url":"ftp://x"}`, admin()); rec.Code != http.StatusBadRequest {
		t.Fatalf("ftp ссылка: ожидали 400, получили %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/links", "", nil)
	if !strings.Contains(rec.Body.String(), "https://docs.example") {
		t.Fatalf("ссылка не в списке: %s", rec.Body.String())
	}
	if rec := env.do(t, http.MethodDelete, "/admin/links/"+strconv.FormatInt(created.Item.ID, 10), "", admin()); rec.Code != http.StatusOK {
		t.Fatalf("delete link: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/admin/news", `{"message_id":500}`, admin())
	var added struct {
		Inserted bool `json:"inserted"`
	}
	decodeBody(t, rec, &added)
	if !added.Inserted {
		t.Fatalf("первая новость должна вставиться: %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/admin/news", `{"message_id":500}`, admin())
	decodeBody(t, rec, &added)
	if rec.Code != http.StatusOK || added.Inserted {
		t.Fatalf("повтор новости: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodDelete, "/admin/news/500", "", admin()); rec.Code != http.StatusOK {
		t.Fatalf("delete news: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/admin/news/abc", "", admin()); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete news abc: %d", rec.Code)
	}
}
