package web

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
)

// TemplateError is the page rendered for server side failures asked by a browser.
const TemplateError = "error"

// ErrorBody is the JSON body of a failed request. Code and Stack are only set in dev mode.
type ErrorBody struct {
	Status       int      `json:"status"`
	Message      string   `json:"message"`
	Name         string   `json:"name"`
	Hint         string   `json:"hint,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Code         int      `json:"code,omitempty"`
	Stack        string   `json:"stack,omitempty"`
}

// NewErrorBody classifies err.
func NewErrorBody(err error, dev bool) ErrorBody {
	var (
		appErr   *apperror.Error
		fiberErr *fiber.Error
		body     ErrorBody
	)

	switch {
	case errors.As(err, &appErr):
		body = ErrorBody{
			Status:       appErr.Status(),
			Message:      appErr.Message,
			Name:         appErr.Kind.String(),
			Hint:         appErr.Hint,
			Requirements: appErr.Requirements,
			Code:         appErr.Code(),
		}
		if body.Message == "" {
			body.Message = appErr.Error()
		}
	case errors.As(err, &fiberErr):
		body = ErrorBody{Status: fiberErr.Code, Message: fiberErr.Message, Name: "HTTPError", Code: fiberErr.Code}
	default:
		kind := apperror.KindOf(err)
		body = ErrorBody{Status: kind.Status(), Message: "Something went wrong", Name: kind.String(), Code: kind.Code()}
	}

	if dev {
		body.Stack = fmt.Sprintf("%+v", err)
	} else {
		body.Code = 0
	}

	return body
}

// ErrorHandler renders every error returned by a handler.
func ErrorHandler(dev bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		body := NewErrorBody(err, dev)

		if body.Status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Int("status", body.Status).Msg("request failed")
		} else {
			log.Debug().Err(err).Str("path", c.Path()).Int("status", body.Status).Msg("request rejected")
		}

		c.Status(body.Status)

		if body.Status >= fiber.StatusInternalServerError && acceptsHTML(c) {
			return c.Render(TemplateError, fiber.Map{
				"Status":  body.Status,
				"Name":    body.Name,
				"Message": body.Message,
			})
		}

		return c.JSON(body)
	}
}

func acceptsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) &&
		c.App().Config().Views != nil
}
