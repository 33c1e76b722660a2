package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goserg/memberportal/auth/gate"
	authservice "github.com/goserg/memberportal/auth/service"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/web/webpath"
)

const (
	cookieName  = "sid"
	identityKey = "identity"
)

// require guards a route with capability. The caller identity, zero for
// anonymous callers, is left in Locals for the handlers.
func (s *Server) require(capability gate.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, decision, err := s.gate.Check(c.UserContext(), c.Cookies(cookieName), capability)
		if err != nil {
			return err
		}
		switch decision {
		case gate.RedirectLogin:
			return c.Redirect(webpath.Login, fiber.StatusSeeOther)
		case gate.Forbidden:
			return authservice.ErrForbidden
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

func identityFrom(c *fiber.Ctx) users.Identity {
	identity, _ := c.Locals(identityKey).(users.Identity)
	return identity
}

func (s *Server) sessionCookie(token string, expires time.Time) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.cfg.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = fiber.CookieSameSiteNoneMode
	}
	return cookie
}

func (s *Server) setSession(c *fiber.Ctx, token string, session users.Session) {
	c.Cookie(s.sessionCookie(token, session.ExpiresAt))
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
}
