// Package gate decides whether a request carrying a session token may reach
// a route guarded by a capability.
package gate

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/session"
	"github.com/goserg/memberportal/auth/users"
)

type Capability uint8

const (
	Public Capability = iota
	AuthenticatedAny
	AuthenticatedAdmin
)

func (c Capability) String() string {
	switch c {
	case Public:
		return "public"
	case AuthenticatedAny:
		return "authenticated"
	case AuthenticatedAdmin:
		return "admin"
	}
	return "unknown"
}

type Decision uint8

const (
	Proceed Decision = iota
	RedirectLogin
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case RedirectLogin:
		return "redirect-login"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

type Resolver interface {
	Resolve(ctx context.Context, token string) (users.Identity, error)
}

var _ Resolver = (*session.Manager)(nil)

type Gate struct {
	sessions Resolver
	log      *logrus.Entry
}

func New(sessions Resolver, l *logrus.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		log: l.WithFields(map[string]interface{}{
			"from": "gate",
		}),
	}
}

// Check resolves token and decides on capability. The returned identity is
// the zero value when the caller is anonymous. Public routes treat a store
// failure as an anonymous caller; guarded routes get it back as an error,
// never as a logged-out caller.
func (g *Gate) Check(ctx context.Context, token string, capability Capability) (users.Identity, Decision, error) {
	identity, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrUnauthenticated) {
			if capability != Public {
				return users.Identity{}, Forbidden, err
			}
			g.log.WithError(err).Warn("resolve session on public route")
		}
		identity = users.Identity{}
	}
	return identity, Decide(identity.Authenticated(), identity.Role, capability), nil
}

// Decide is the pure decision table behind Check.
func Decide(authenticated bool, role users.Role, capability Capability) Decision {
	switch capability {
	case Public:
		return Proceed
	case AuthenticatedAny:
		if authenticated {
			return Proceed
		}
		return RedirectLogin
	case AuthenticatedAdmin:
		if !authenticated {
			return RedirectLogin
		}
		if role == users.RoleAdmin {
			return Proceed
		}
		return Forbidden
	}
	return Forbidden
}
