package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/config"
)

// RequesterLocalKey is the Fiber locals key holding the Requester.
const RequesterLocalKey = "requester"

// Requester is the caller identity asserted by the upstream gateway.
type Requester struct {
	ID      string
	Roles   []string
	IsAdmin bool
}

// Identity reads the authenticated caller from trusted headers. Authentication
// itself happens upstream; this only turns the headers into a Requester.
// Requests without a user header are rejected with 401.
func Identity(cfg config.AuthConfig) fiber.Handler {
	admin := strings.TrimPrefix(strings.ToUpper(cfg.AdminRole), "ROLE_")

	return func(c *fiber.Ctx) error {
		r := Requester{ID: strings.TrimSpace(c.Get(cfg.UserHeader))}
		if r.ID == "" {
			return fiber.ErrUnauthorized
		}
		for _, role := range strings.Split(c.Get(cfg.RolesHeader), ",") {
			role = strings.TrimSpace(role)
			if role == "" {
				continue
			}
			r.Roles = append(r.Roles, role)
			if admin != "" && strings.TrimPrefix(strings.ToUpper(role), "ROLE_") == admin {
				r.IsAdmin = true
			}
		}
		c.Locals(RequesterLocalKey, r)
		return c.Next()
	}
}

// RequesterFrom returns the Requester stored by Identity, or the zero Requester.
func RequesterFrom(c *fiber.Ctx) Requester {
	r, _ := c.Locals(RequesterLocalKey).(Requester)
	return r
}
