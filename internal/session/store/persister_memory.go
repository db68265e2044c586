package store

import (
	"context"
	"sync"

	"evera/internal/session/models"
	"evera/pkg/platform/sentinel"
)

// InMemoryPersister survives store re-creation within one process. Tests use
// it to simulate a reload.
type InMemoryPersister struct {
	mu        sync.Mutex
	snapshot  *models.Snapshot
	saves     int
	failSaves error
}

func NewInMemoryPersister() *InMemoryPersister {
	return &InMemoryPersister{}
}

func (p *InMemoryPersister) Load(_ context.Context) (*models.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		return nil, sentinel.ErrNotFound
	}
	snap := *p.snapshot
	return &snap, nil
}

func (p *InMemoryPersister) Save(_ context.Context, snapshot models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSaves != nil {
		return p.failSaves
	}
	p.snapshot = &snapshot
	p.saves++
	return nil
}

// FailSaves makes every later Save return err, simulating exhausted storage.
// A nil err restores normal saving.
func (p *InMemoryPersister) FailSaves(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSaves = err
}

// Saves counts successful writes.
func (p *InMemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
