package ingest

import (
	"context"
	"sync"

	"steam-nav-bot/internal/domain"
)

// MemoryPending хранит действия в памяти процесса. Срока жизни у действий нет.
type MemoryPending struct {
	mu      sync.Mutex
	actions map[int64]domain.PendingAction
}

var _ domain.PendingStore = (*MemoryPending)(nil)

// NewMemoryPending создаёт пустое хранилище.
func NewMemoryPending() *MemoryPending {
	return &MemoryPending{actions: make(map[int64]domain.PendingAction)}
}

// Get реализует domain.PendingStore.
func (p *MemoryPending) Get(_ context.Context, adminID int64) (domain.PendingAction, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	action, ok := p.actions[adminID]
	return action, ok, nil
}

// Set реализует domain.PendingStore.
func (p *MemoryPending) Set(_ context.Context, adminID int64, action domain.PendingAction) error {
	p.mu.Lock()
	p.actions[adminID] = action
	p.mu.Unlock()
	return nil
}

// Clear реализует domain.PendingStore.
func (p *MemoryPending) Clear(_ context.Context, adminID int64) error {
	p.mu.Lock()
	delete(p.actions, adminID)
	p.mu.Unlock()
	return nil
}
