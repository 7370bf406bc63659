package sessions

import (
	"sync"

	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
)

// InMemoryRepo keeps the session for the life of the process only.
type InMemoryRepo struct {
	mu  sync.RWMutex
	rec *Record
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Load() (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rec == nil {
		return nil, apperrors.ErrNoSession
	}
	rec := *r.rec
	return &rec, nil
}

func (r *InMemoryRepo) Save(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec = &rec
	return nil
}

func (r *InMemoryRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec = nil
	return nil
}
