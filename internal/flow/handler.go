package flow

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/facepass/facepass/internal/auth"
	"github.com/facepass/facepass/internal/credential"
	"github.com/facepass/facepass/internal/logging"
)

// TokenIssuer mints the access token handed out on success.
type TokenIssuer interface {
	Issue(subject string) (auth.Token, error)
}

// Handler exposes flow sessions over HTTP.
type Handler struct {
	registry *Registry
	tokens   TokenIssuer
	logger   *slog.Logger
}

// NewHandler constructs a flow HTTP handler.
func NewHandler(registry *Registry, tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, tokens: tokens, logger: logging.Component(logger, "flow.http")}
}

type captureRequest struct {
	Image string `json:"image"`
}

type cameraErrorRequest struct {
	Message string `json:"message"`
}

type successResponse struct {
	State
	Token *auth.Token `json:"token,omitempty"`
}

// Create starts a new flow session.
func (h *Handler) Create(c *fiber.Ctx) error {
	ctrl := h.registry.Create()
	c.Location("/api/v1/flows/" + ctrl.ID())
	return c.Status(http.StatusCreated).JSON(ctrl.State())
}

// Get returns the current state.
func (h *Handler) Get(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(ctrl.State())
}

// Start moves from intro to camera.
func (h *Handler) Start(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	st, err := ctrl.Start()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(st)
}

// CameraError records a client-side camera failure.
func (h *Handler) CameraError(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	var req cameraErrorRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	st, err := ctrl.CameraFailed(req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(st)
}

// Back returns to intro.
func (h *Handler) Back(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	st, err := ctrl.Back()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(st)
}

// Capture accepts the captured frame and starts scanning.
func (h *Handler) Capture(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	var req captureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	st, err := ctrl.Capture(req.Image)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusAccepted).JSON(st)
}

// Register stores the captured frame as the credential and returns an
// access token.
func (h *Handler) Register(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	st, err := ctrl.Register(c.UserContext())
	if err != nil {
		return httpError(err)
	}
	tok, err := h.tokens.Issue(ctrl.ID())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(successResponse{State: st, Token: &tok})
}

// Token issues an access token once the flow reached success.
func (h *Handler) Token(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	if st := ctrl.State(); st.Step != StepSuccess {
		return fiber.NewError(http.StatusConflict, fmt.Sprintf("flow is in step %s", st.Step))
	}
	tok, err := h.tokens.Issue(ctrl.ID())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(tok)
}

// Close ends the session.
func (h *Handler) Close(c *fiber.Ctx) error {
	if err := h.registry.Remove(c.Params("flowId")); err != nil {
		return httpError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Progress streams state snapshots as server-sent events until the flow
// leaves the scanning step.
func (h *Handler) Progress(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}

	updates, unsubscribe := ctrl.Subscribe()
	initial := ctrl.State()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(slog.String("flow_id", ctrl.ID()))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if err := writeEvent(w, initial); err != nil || initial.Step != StepScanning {
			return
		}
		for st := range updates {
			if err := writeEvent(w, st); err != nil {
				logger.Debug("progress stream closed by client", slog.Any("error", err))
				return
			}
			if st.Step != StepScanning {
				return
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, st State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(st), payload); err != nil {
		return err
	}
	return w.Flush()
}

func eventName(st State) string {
	if st.Step == StepScanning {
		return "progress"
	}
	return "step"
}

func (h *Handler) session(c *fiber.Ctx) (*Controller, error) {
	ctrl, err := h.registry.Get(c.Params("flowId"))
	if err != nil {
		return nil, httpError(err)
	}
	return ctrl, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrClosed):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoImage), errors.Is(err, credential.ErrEmptyHandle), errors.Is(err, credential.ErrInvalidHandle):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
