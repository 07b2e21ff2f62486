package review

import (
    "context"
    "fmt"
    "sort"
    "sync"

    "github.com/park285/cheese-review/internal/domain"
)

// MemoryRepository keeps reviews in process memory. Used when no database is configured.
type MemoryRepository struct {
    mu sync.RWMutex

    byID  map[string]*domain.ReviewRecord
    byKey map[string]*domain.ReviewRecord
}

func NewMemoryRepository() *MemoryRepository {
    return &MemoryRepository{
        byID:  make(map[string]*domain.ReviewRecord),
        byKey: make(map[string]*domain.ReviewRecord),
    }
}

func (m *MemoryRepository) Save(ctx context.Context, rec *domain.ReviewRecord) (string, error) {
    if rec == nil || rec.ID == "" {
        return "", fmt.Errorf("review record id required")
    }

    m.mu.Lock()
    defer m.mu.Unlock()

    if existing, ok := m.byKey[rec.ReviewKey]; ok {
        return existing.ID, nil
    }

    copy := *rec
    copy.MovesUCI = append([]string(nil), rec.MovesUCI...)
    copy.Payload = append([]byte(nil), rec.Payload...)

    m.byID[copy.ID] = &copy
    m.byKey[copy.ReviewKey] = &copy
    return copy.ID, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*domain.ReviewRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()

    rec, ok := m.byID[id]
    if !ok {
        return nil, ErrNotFound
    }
    copy := *rec
    return &copy, nil
}

func (m *MemoryRepository) FindByKey(ctx context.Context, key string) (*domain.ReviewRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()

    rec, ok := m.byKey[key]
    if !ok {
        return nil, ErrNotFound
    }
    copy := *rec
    return &copy, nil
}

func (m *MemoryRepository) Recent(ctx context.Context, limit int) ([]*domain.ReviewRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()

    out := make([]*domain.ReviewRecord, 0, len(m.byID))
    for _, rec := range m.byID {
        copy := *rec
        out = append(out, &copy)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}
