// Package gate decides whether a route may render for the current session.
// It is a user experience aid only: the backend enforces authorization on
// every call regardless of what the gate allows.
package gate

import "exptrack/internal/core"

const (
	WelcomePath = "/"
	LoginPath   = "/login"
	// LandingPath is where authenticated users land by default.
	LandingPath = "/app/dashboard"
)

// Tier is the access requirement of a route.
type Tier int

const (
	// TierOpen renders for everyone.
	TierOpen Tier = iota
	// TierPublicOnly renders only while signed out.
	TierPublicOnly
	TierProtected
	TierAdmin
	TierOwner
)

var tierNames = map[Tier]string{
	TierOpen:       "open",
	TierPublicOnly: "public-only",
	TierProtected:  "protected",
	TierAdmin:      "admin",
	TierOwner:      "owner",
}

func (t Tier) String() string { return tierNames[t] }

// Required is the minimum role a signed-in identity needs.
func (t Tier) Required() core.Role {
	switch t {
	case TierAdmin:
		return core.RoleAdmin
	case TierOwner:
		return core.RoleOwner
	}
	return core.RoleNone
}

// Session is the part of the session state the gate looks at.
type Session struct {
	Loading  bool
	Identity *core.Identity
}

type Outcome int

const (
	Pending Outcome = iota
	Authorized
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Authorized:
		return "authorized"
	}
	return "denied"
}

// Decision is Pending with no redirect, Authorized with no redirect, or
// Denied with the path to go to instead.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Decide maps the session and route requirement to a decision. It has no
// side effects and never redirects while the session is loading.
func Decide(s Session, r Route) Decision {
	if s.Loading {
		return Decision{Outcome: Pending}
	}
	switch r.Tier {
	case TierOpen:
		return Decision{Outcome: Authorized}
	case TierPublicOnly:
		if s.Identity != nil {
			return Decision{Outcome: Denied, Redirect: LandingPath}
		}
		return Decision{Outcome: Authorized}
	}

	if s.Identity == nil {
		return Decision{Outcome: Denied, Redirect: LoginPath}
	}
	if !s.Identity.Role.AtLeast(r.Tier.Required()) {
		return Decision{Outcome: Denied, Redirect: LandingPath}
	}
	return Decision{Outcome: Authorized}
}
