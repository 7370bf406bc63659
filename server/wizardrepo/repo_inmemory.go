package wizardrepo

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/wizard"
	"github.com/pkg/errors"
)

// InMemoryRepo is a thread-safe registry of open wizards keyed by wizard id.
// Removing a wizard closes it, cancelling whatever it still has in flight.
type InMemoryRepo struct {
	mu      sync.Mutex
	entries map[string]*Entry
	nowTime func() time.Time
}

type Option func(*InMemoryRepo)

func WithNowTime(now func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.nowTime = now
	}
}

func NewInMemoryRepo(opts ...Option) *InMemoryRepo {
	r := &InMemoryRepo{entries: make(map[string]*Entry), nowTime: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Put(w *wizard.Wizard) error {
	if w == nil {
		return errors.New("wizard cannot be nil")
	}
	if w.ID == "" {
		return errors.New("wizard id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.entries[w.ID]; ok && old.Wizard != w {
		old.Wizard.Close()
	}
	r.entries[w.ID] = &Entry{Wizard: w, LastUsed: r.nowTime()}
	return nil
}

// Get returns the wizard and marks it used.
func (r *InMemoryRepo) Get(id string) (*wizard.Wizard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "wizard %q", id)
	}
	if entry.Wizard.Closed() {
		delete(r.entries, id)
		return nil, apperrors.ErrWizardClosed
	}
	entry.LastUsed = r.nowTime()
	return entry.Wizard, nil
}

func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return errors.Wrapf(apperrors.ErrNotFound, "wizard %q", id)
	}
	entry.Wizard.Close()
	return nil
}

// Sweep closes wizards idle for longer than maxIdle and returns how many went.
func (r *InMemoryRepo) Sweep(maxIdle time.Duration) int {
	cutoff := r.nowTime().Add(-maxIdle)
	r.mu.Lock()
	var stale []*wizard.Wizard
	for id, entry := range r.entries {
		if entry.LastUsed.Before(cutoff) || entry.Wizard.Closed() {
			stale = append(stale, entry.Wizard)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()
	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

func (r *InMemoryRepo) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()
	for _, entry := range entries {
		entry.Wizard.Close()
	}
}
