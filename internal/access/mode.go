// Package access decides what a session may do at the counter and guards
// the management surface behind a second credential check.
package access

import (
	"strings"

	"cafe-pos-service/internal/domain"
)

// Mode is the access state of a terminal.
type Mode int

const (
	Unauthenticated Mode = iota
	Guest
	Authenticated
)

func (m Mode) String() string {
	switch m {
	case Guest:
		return "guest"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ModeOf derives the access mode from a session. A nil session is
// Unauthenticated.
func ModeOf(session *domain.Session) Mode {
	switch {
	case session == nil:
		return Unauthenticated
	case session.IsGuest():
		return Guest
	case session.Mode == domain.ModeMember:
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Permissions are the capabilities of one session at one moment.
type Permissions struct {
	Mode     Mode `json:"-"`
	Admin    bool `json:"is_admin"`
	Verified bool `json:"verified"`
}

func (p Permissions) CanBrowse() bool     { return p.Mode != Unauthenticated }
func (p Permissions) CanMutateCart() bool { return p.Mode == Authenticated }
func (p Permissions) CanFinalize() bool   { return p.Mode == Authenticated }
func (p Permissions) IsAdmin() bool       { return p.Mode == Authenticated && p.Admin }

// CanManage requires an allow-listed account that passed Gate.Verify.
func (p Permissions) CanManage() bool { return p.IsAdmin() && p.Verified }

// Policy holds the administrator allow-list.
type Policy struct {
	admins map[string]struct{}
}

// NewPolicy builds a policy from e-mail addresses, compared case-insensitively.
func NewPolicy(adminEmails []string) *Policy {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Policy{admins: admins}
}

// AllowsEmail reports whether email is on the allow-list.
func (p *Policy) AllowsEmail(email string) bool {
	_, ok := p.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// IsAdmin reports whether session belongs to an allow-listed member.
func (p *Policy) IsAdmin(session *domain.Session) bool {
	return ModeOf(session) == Authenticated && p.AllowsEmail(session.Email)
}

// Permissions derives the capabilities of session; verified is the state of
// its management gate.
func (p *Policy) Permissions(session *domain.Session, verified bool) Permissions {
	perms := Permissions{Mode: ModeOf(session), Admin: p.IsAdmin(session)}
	perms.Verified = perms.Admin && verified
	return perms
}
