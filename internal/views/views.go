// Package views persists per-organization overrides of entity list views.
package views

import (
	"context"
	"sync"

	"metadesk-backend/internal/metadata"
)

// Overrides maps view names to the persisted override of that view.
type Overrides map[string]metadata.ViewOverride

// Store keeps the view overrides of one organization and entity.
type Store interface {
	Load(ctx context.Context, org, entity string) (Overrides, error)
	Save(ctx context.Context, org, entity, view string, o metadata.ViewOverride) error
}

// Key is the storage key of the overrides of (org, entity).
func Key(org, entity string) string {
	return "entity-list:" + org + ":" + entity
}

// Apply returns the views of e with overrides layered on top. Overrides of
// views the entity does not define are ignored.
func Apply(e *metadata.ResolvedEntity, o Overrides) map[string]metadata.View {
	out := make(map[string]metadata.View, len(e.Views))
	for name, v := range e.Views {
		out[name] = metadata.MergeView(v, o[name])
	}
	return out
}

// writable keeps only the persisted fields of an override.
func writable(o metadata.ViewOverride) metadata.ViewOverride {
	return metadata.ViewOverride{Type: o.Type, Properties: o.Properties, UI: o.UI}
}

// MemoryStore keeps overrides in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Overrides
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Overrides{}}
}

func (m *MemoryStore) Load(_ context.Context, org, entity string) (Overrides, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Overrides{}
	for name, o := range m.data[Key(org, entity)] {
		out[name] = o
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, org, entity, view string, o metadata.ViewOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(org, entity)
	if m.data[key] == nil {
		m.data[key] = Overrides{}
	}
	m.data[key][view] = writable(o)
	return nil
}
