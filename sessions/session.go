package sessions

import "time"

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Claim is the identity shown to the user, derived from the token.
type Claim struct {
	FirstName string `json:"firstName"`
	Role      Role   `json:"role"`
}

func (c Claim) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Record is the durable session material: the bearer token, the claim and its expiry.
type Record struct {
	Token  string    `json:"token"`
	User   Claim     `json:"user"`
	Expiry time.Time `json:"expiry"`
}

type Status int

const (
	StatusLoading Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is what readers observe. Claim is nil unless authenticated.
type Snapshot struct {
	Status Status
	Claim  *Claim
	Expiry time.Time
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Claim != nil
}

func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.Claim.IsAdmin()
}

// Repo persists the session between process runs. Load returns ErrNoSession when nothing is stored.
type Repo interface {
	Load() (*Record, error)
	Save(rec Record) error
	Clear() error
}
