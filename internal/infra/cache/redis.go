package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"steam-nav-bot/internal/domain"
)

const defaultPrefix = "steam-nav:pending:"

// RedisPendingStore хранит незавершённые действия администраторов в Redis,
// чтобы они переживали перезапуск процесса. Ключи создаются без TTL.
type RedisPendingStore struct {
	client *redis.Client
	prefix string
}

var _ domain.PendingStore = (*RedisPendingStore)(nil)

// NewRedisPendingStore создаёт хранилище. Пустой prefix заменяется значением по умолчанию.
func NewRedisPendingStore(client *redis.Client, prefix string) *RedisPendingStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisPendingStore{client: client, prefix: prefix}
}

func (s *RedisPendingStore) key(adminID int64) string {
	return s.prefix + strconv.FormatInt(adminID, 10)
}

// Get реализует domain.PendingStore.
func (s *RedisPendingStore) Get(ctx context.Context, adminID int64) (domain.PendingAction, bool, error) {
	raw, err := s.client.Get(ctx, s.key(adminID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingAction{}, false, nil
	}
	if err != nil {
		return domain.PendingAction{}, false, fmt.Errorf("redis get: %w", err)
	}
	action, err := decodePending(raw)
	if err != nil {
		return domain.PendingAction{}, false, err
	}
	return action, true, nil
}

// Set реализует domain.PendingStore.
func (s *RedisPendingStore) Set(ctx context.Context, adminID int64, action domain.PendingAction) error {
	payload, err := encodePending(action)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(adminID), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear реализует domain.PendingStore.
func (s *RedisPendingStore) Clear(ctx context.Context, adminID int64) error {
	if err := s.client.Del(ctx, s.key(adminID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encodePending(action domain.PendingAction) ([]byte, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("marshal pending: %w", err)
	}
	return payload, nil
}

func decodePending(raw []byte) (domain.PendingAction, error) {
	var action domain.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return domain.PendingAction{}, fmt.Errorf("decode pending: %w", err)
	}
	switch action.Kind {
	case domain.PendingLessonMeta, domain.PendingLessonForward, domain.PendingNewsForward:
		return action, nil
	default:
		return domain.PendingAction{}, fmt.Errorf("decode pending: неизвестный тип %q", action.Kind)
	}
}
