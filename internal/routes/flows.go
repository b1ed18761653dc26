package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facepass/facepass/internal/flow"
)

// RegisterFlowRoutes wires the authentication flow session endpoints.
func RegisterFlowRoutes(r fiber.Router, h *flow.Handler) {
	flows := r.Group("/flows")
	flows.Post("", h.Create)
	flows.Get("/:flowId", h.Get)
	flows.Delete("/:flowId", h.Close)
	flows.Post("/:flowId/start", h.Start)
	flows.Post("/:flowId/camera-error", h.CameraError)
	flows.Post("/:flowId/back", h.Back)
	flows.Post("/:flowId/capture", h.Capture)
	flows.Get("/:flowId/progress", h.Progress)
	flows.Post("/:flowId/register", h.Register)
	flows.Get("/:flowId/token", h.Token)
}
