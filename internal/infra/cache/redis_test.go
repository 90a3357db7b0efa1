package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"steam-nav-bot/internal/domain"
)

func TestDecodePendingRejectsUnknownKind(t *testing.T) {
	if _, err := decodePending([]byte(`{"kind":"digest"}`)); err == nil {
		t.Fatal("ожидали ошибку для неизвестного типа действия")
	}
	if _, err := decodePending([]byte(`not json`)); err == nil {
		t.Fatal("ожидали ошибку для некорректного JSON")
	}
}

func TestEncodeDecodePending(t *testing.T) {
	action := domain.PendingAction{ID: "a1", Kind: domain.PendingLessonForward, Section: domain.SectionSteam, Ord: 3, Title: "Intro"}
	raw, err := encodePending(action)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodePending(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != action.Kind || got.Ord != 3 || got.Section != domain.SectionSteam || got.Title != "Intro" {
		t.Fatalf("unexpected action %+v", got)
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	s := NewRedisPendingStore(nil, "")
	if got := s.key(42); got != "steam-nav:pending:42" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRedisPendingStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisPendingStore(client, "")

	if _, ok, err := s.Get(ctx, 7); err != nil || ok {
		t.Fatalf("пустой слот: ok=%v err=%v", ok, err)
	}

	first := domain.PendingAction{ID: "a1", Kind: domain.PendingLessonForward, Section: domain.SectionPrep, Ord: 1, Title: "Старт"}
	if err := s.Set(ctx, 7, first); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(s.key(7)); ttl != 0 {
		t.Fatalf("ключ не должен истекать, TTL=%v", ttl)
	}

	second := domain.PendingAction{ID: "a2", Kind: domain.PendingNewsForward}
	if err := s.Set(ctx, 7, second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.ID != "a2" || got.Kind != domain.PendingNewsForward {
		t.Fatalf("ожидали последнее действие, получили %+v", got)
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("у администратора один слот, ключи: %v", keys)
	}

	if err := s.Clear(ctx, 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, err := s.Get(ctx, 7); err != nil || ok {
		t.Fatalf("после clear: ok=%v err=%v", ok, err)
	}
}
