package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/dsn"
	"github.com/datacentricdesign/profile-api/internal/web/handler/challenge"
)

const (
	csrfCookie    = "csrf_"
	csrfFormField = "_csrf"
	csrfTable     = "csrf_tokens"
)

// ErrCSRF is returned for unsafe requests without a valid csrf token.
var ErrCSRF = apperror.New(apperror.Forbidden, "Invalid or missing csrf token.").
	WithHint("Send the csrfToken of the form as the " + csrf.HeaderName + " header or the " + csrfFormField + " field.")

// csrfStorage returns the storage of the csrf tokens, nil for process memory.
func csrfStorage(cfg *config.Config) fiber.Storage {
	switch cfg.Webserver.CSRF.Storage {
	case config.CSRFStoragePostgres:
		return postgres.New(postgres.Config{ConnectionURI: dsn.URI(cfg), Table: csrfTable})
	case config.CSRFStorageMySQL:
		return mysql.New(mysql.Config{ConnectionURI: dsn.URI(cfg), Table: csrfTable})
	default:
		return nil
	}
}

// csrfExtractor reads the token from the header, then from the form.
func csrfExtractor(c *fiber.Ctx) (string, error) {
	if token := c.Get(csrf.HeaderName); token != "" {
		return token, nil
	}

	if token := c.FormValue(csrfFormField); token != "" {
		return token, nil
	}

	return "", csrf.ErrTokenNotFound
}

// NewCSRF creates the csrf middleware of the flow forms. The token is put in
// fiber.Locals under challenge.LocalsCSRF.
func NewCSRF(cfg *config.Config) fiber.Handler {
	return csrf.New(csrf.Config{
		CookieName:     csrfCookie,
		CookieSecure:   cfg.Webserver.CSRF.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     cfg.Webserver.CSRF.Expiration,
		Storage:        csrfStorage(cfg),
		ContextKey:     challenge.LocalsCSRF,
		Extractor:      csrfExtractor,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Debug().Err(err).Str("path", c.Path()).Msg("csrf check failed")
			return ErrCSRF
		},
	})
}
