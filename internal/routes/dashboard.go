package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facepass/facepass/internal/activity"
	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/middleware"
)

const (
	dashboardUser     = "User"
	dashboardActivity = 5
)

type securityStatus struct {
	Summary           string     `json:"summary"`
	FaceID            string     `json:"face_id"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	AccountProtection string     `json:"account_protection"`
}

type dashboardResponse struct {
	Welcome         string           `json:"welcome"`
	FlowID          string           `json:"flow_id"`
	AuthenticatedAt time.Time        `json:"authenticated_at"`
	SessionExpires  time.Time        `json:"session_expires"`
	Security        securityStatus   `json:"security"`
	RecentActivity  []activity.Event `json:"recent_activity"`
}

// RegisterDashboardRoutes wires the token-protected landing page data.
func RegisterDashboardRoutes(r fiber.Router, svcs Services, c clock.Clock) {
	r.Get("/dashboard", middleware.TokenAuth(svcs.Tokens), func(ctx *fiber.Ctx) error {
		flowID, _ := ctx.Locals(middleware.LocalFlowID).(string)
		expires, _ := ctx.Locals(middleware.LocalTokenExpiry).(time.Time)

		registered, err := svcs.Credentials.Registered(ctx.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		events, err := svcs.Activity.Recent(ctx.UserContext(), dashboardActivity)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		sec := securityStatus{
			Summary:           "All systems secure",
			FaceID:            "Inactive",
			AccountProtection: "Standard",
		}
		if registered {
			sec.FaceID = "Active"
			sec.AccountProtection = "Enhanced"
		}
		last, ok, err := svcs.Activity.Latest(ctx.UserContext(), activity.KindAuthenticated)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if ok {
			at := last.OccurredAt
			sec.LastLogin = &at
		}

		if events == nil {
			events = []activity.Event{}
		}

		return ctx.JSON(dashboardResponse{
			Welcome:         "Welcome back, " + dashboardUser,
			FlowID:          flowID,
			AuthenticatedAt: c.Now().UTC(),
			SessionExpires:  expires,
			Security:        sec,
			RecentActivity:  events,
		})
	})
}
