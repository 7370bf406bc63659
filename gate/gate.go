// Package gate decides whether a navigation into the admin area may proceed.
package gate

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/course-storefront/sessions"
)

const (
	AdminPrefix  = "/dashboard"
	RedirectPath = "/"
	FromParam    = "from"
)

type Outcome int

const (
	// Loading means the session is not resolved yet: show a placeholder, do not redirect.
	Loading Outcome = iota
	Redirect
	Allow
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "allow"
	}
}

type Decision struct {
	Outcome Outcome
	// Location is set for Redirect and carries the attempted path as ?from=.
	Location string
	From     string
}

// IsProtected reports whether path is inside the admin-only subtree.
func IsProtected(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

// Evaluate decides for one navigation to attempted. It holds no state, so every
// navigation is judged against the current snapshot.
func Evaluate(snap sessions.Snapshot, attempted string) Decision {
	if !IsProtected(pathOf(attempted)) {
		return Decision{Outcome: Allow}
	}
	switch {
	case snap.Status == sessions.StatusLoading:
		return Decision{Outcome: Loading}
	case snap.IsAdmin():
		return Decision{Outcome: Allow}
	default:
		return Decision{
			Outcome:  Redirect,
			Location: RedirectPath + "?" + url.Values{FromParam: []string{attempted}}.Encode(),
			From:     attempted,
		}
	}
}

func pathOf(attempted string) string {
	if u, err := url.Parse(attempted); err == nil {
		return u.Path
	}
	return attempted
}
