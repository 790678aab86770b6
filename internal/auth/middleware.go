package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/policy"
)

const (
	// LocalsSubject holds the subject of the authenticated principal.
	LocalsSubject = "userID"
	// LocalsPrincipal holds the *Principal.
	LocalsPrincipal = "principal"

	paramPersonID = "personId"
	paramGroupID  = "groupId"
)

// Checker decides access requests.
type Checker interface {
	Check(ctx context.Context, req keto.AccessRequest) error
}

// Authenticate creates Fiber middleware that requires an access token granted scopes.
func Authenticate(i *Introspector, scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := ExtractToken(c.Get(fiber.HeaderAuthorization), c.Query("authorization"))
		if err != nil {
			return err
		}

		p, err := i.Introspect(c.UserContext(), token, scopes...)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("authentication failed")
			return err
		}

		c.Locals(LocalsSubject, p.Subject)
		c.Locals(LocalsPrincipal, p)
		c.SetUserContext(WithPrincipal(c.UserContext(), p))

		return c.Next()
	}
}

// CheckPolicy creates Fiber middleware that requires the authenticated subject
// be allowed action on the resource of the route. It must run after Authenticate.
func CheckPolicy(checker Checker, kind, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := keto.AccessRequest{
			Subject:  Subject(c),
			Resource: Resource(c, kind),
			Action:   policy.Action(action),
		}

		if err := checker.Check(c.UserContext(), req); err != nil {
			log.Warn().Err(err).Str("subject", req.Subject).Str("resource", req.Resource).
				Str("action", req.Action).Msg("access denied")

			return err
		}

		return c.Next()
	}
}

// Resource returns the resource a request works on: the person or group named
// in the path, the resource kind otherwise.
func Resource(c *fiber.Ctx, kind string) string {
	resource := ResourcePrefix + kind

	if id := c.Params(paramPersonID); id != "" {
		resource = id
	}

	if id := c.Params(paramGroupID); id != "" {
		resource = id
	}

	return resource
}

// Subject returns the authenticated subject, empty when the request is anonymous.
func Subject(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalsSubject).(string)
	return s
}
