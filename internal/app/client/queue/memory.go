package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vistoria/internal/domain/inspection"
)

// MemoryStore - in-memory очередь для тестов и одноразовых запусков
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*inspection.Inspection
	closed  bool

	// FailMarkSynced позволяет имитировать сбой записи в тестах
	FailMarkSynced func(id string) error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*inspection.Inspection),
	}
}

func (m *MemoryStore) Enqueue(_ context.Context, rec *inspection.Inspection) error {
	if rec == nil || rec.ID == "" {
		return storageErr("enqueue", "", inspection.ErrInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storageErr("enqueue", rec.ID, ErrClosed)
	}
	if _, exists := m.records[rec.ID]; exists {
		return storageErr("enqueue", rec.ID, ErrDuplicateID)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = inspection.StatusPending

	stored := rec.Clone()
	stored.CloudID = ""
	stored.SyncedAt = nil
	stored.LastError = ""
	m.records[rec.ID] = stored
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MemoryStore) GetPending(ctx context.Context) ([]*inspection.Inspection, error) {
	return m.List(ctx, inspection.StatusPending, inspection.StatusError)
}

func (m *MemoryStore) GetFailed(ctx context.Context) ([]*inspection.Inspection, error) {
	return m.List(ctx, inspection.StatusError)
}

func (m *MemoryStore) List(_ context.Context, statuses ...inspection.Status) ([]*inspection.Inspection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storageErr("list", "", ErrClosed)
	}

	var result []*inspection.Inspection
	for _, id := range m.order {
		rec := m.records[id]
		if len(statuses) > 0 && !hasStatus(statuses, rec.Status) {
			continue
		}
		result = append(result, rec.Clone())
	}
	return result, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*inspection.Inspection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, storageErr("get", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) MarkSynced(_ context.Context, id, cloudID string, syncedAt time.Time, photoURLs ...string) error {
	if m.FailMarkSynced != nil {
		if err := m.FailMarkSynced(id); err != nil {
			return storageErr("mark_synced", id, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return storageErr("mark_synced", id, ErrNotFound)
	}
	if rec.Status == inspection.StatusSynced {
		return nil
	}
	if !rec.Status.CanTransitionTo(inspection.StatusSynced) {
		return storageErr("mark_synced", id, inspection.ErrInvalidTransition)
	}

	t := syncedAt.UTC()
	rec.Status = inspection.StatusSynced
	rec.CloudID = cloudID
	rec.SyncedAt = &t
	rec.LastError = ""
	rec.Fotos = resolvePhotos(rec.Fotos, photoURLs)
	return nil
}

func (m *MemoryStore) MarkError(_ context.Context, id, message string) error {
	return m.transition("mark_error", id, inspection.StatusError, func(rec *inspection.Inspection) {
		rec.LastError = message
	})
}

func (m *MemoryStore) ResetToPending(_ context.Context, id string) error {
	return m.transition("reset", id, inspection.StatusPending, nil)
}

func (m *MemoryStore) transition(op, id string, target inspection.Status, apply func(*inspection.Inspection)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return storageErr(op, id, ErrNotFound)
	}
	if rec.Status == target && target == inspection.StatusPending {
		return nil
	}
	if !rec.Status.CanTransitionTo(target) {
		return storageErr(op, id, fmt.Errorf("%s -> %s: %w", rec.Status, target, inspection.ErrInvalidTransition))
	}

	rec.Status = target
	if apply != nil {
		apply(rec)
	}
	return nil
}

func (m *MemoryStore) Counts(_ context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var c Counts
	for _, rec := range m.records {
		switch rec.Status {
		case inspection.StatusPending:
			c.Pending++
		case inspection.StatusError:
			c.Error++
		case inspection.StatusSynced:
			c.Synced++
			if rec.SyncedAt != nil && (c.LastSyncedAt == nil || rec.SyncedAt.After(*c.LastSyncedAt)) {
				t := *rec.SyncedAt
				c.LastSyncedAt = &t
			}
		}
	}
	return c, nil
}

func (m *MemoryStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]*inspection.Inspection)
	m.order = nil
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func hasStatus(statuses []inspection.Status, st inspection.Status) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
