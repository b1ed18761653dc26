package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/facepass/facepass/internal/credential"
)

type imageRequest struct {
	Image string `json:"image"`
}

// RegisterCredentialRoutes exposes the credential store directly, without a
// flow session. limiter guards authenticate only. idempotency may be nil.
func RegisterCredentialRoutes(r fiber.Router, creds *credential.Service, limiter, idempotency fiber.Handler) {
	var handlers []fiber.Handler
	if idempotency != nil {
		handlers = append(handlers, idempotency)
	}
	g := r.Group("/credentials", handlers...)

	g.Get("/status", func(c *fiber.Ctx) error {
		ok, err := creds.Registered(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"registered": ok})
	})

	g.Post("/register", func(c *fiber.Ctx) error {
		var req imageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := creds.Register(c.UserContext(), req.Image); err != nil {
			return credentialError(err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"registered": true})
	})

	g.Post("/authenticate", limiter, func(c *fiber.Ctx) error {
		var req imageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ok, err := creds.Authenticate(c.UserContext(), req.Image)
		if err != nil {
			return credentialError(err)
		}
		return c.JSON(fiber.Map{"authenticated": ok})
	})
}

func credentialError(err error) error {
	switch {
	case errors.Is(err, credential.ErrEmptyHandle), errors.Is(err, credential.ErrInvalidHandle):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
