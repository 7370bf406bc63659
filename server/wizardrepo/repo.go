package wizardrepo

import (
	"time"

	"github.com/jrsteele09/course-storefront/wizard"
)

// Entry is a live wizard and when it was last touched.
type Entry struct {
	Wizard   *wizard.Wizard
	LastUsed time.Time
}

type Repo interface {
	Put(w *wizard.Wizard) error
	Get(id string) (*wizard.Wizard, error)
	Delete(id string) error
	Sweep(maxIdle time.Duration) int
	CloseAll()
}
