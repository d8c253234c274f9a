// Package audittest provides an in-memory audit repository for tests.
package audittest

import (
	"context"
	"sort"
	"sync"

	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
)

// Repository is an in-memory audit repository. CreateErr, when set, fails every Create.
type Repository struct {
	mu        sync.Mutex
	entries   []*domain.Entry
	CreateErr error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Entry
	for _, e := range r.entries {
		if e.OrgID != f.OrgID ||
			(f.EntityType != "" && e.EntityType != f.EntityType) ||
			(f.EntityID != "" && e.EntityID != f.EntityID) ||
			(f.ActorID != "" && e.ActorID != f.ActorID) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, e *domain.Entry) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

// Entries returns a copy of everything appended so far, in order.
func (r *Repository) Entries() []domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}
