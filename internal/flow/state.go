package flow

import (
	"errors"
	"time"
)

// Step is one state of the authentication sequence.
type Step string

const (
	StepIntro    Step = "intro"
	StepCamera   Step = "camera"
	StepScanning Step = "scanning"
	StepRegister Step = "register"
	StepSuccess  Step = "success"
)

// DefaultCameraError is shown when the client reports a camera failure
// without its own message.
const DefaultCameraError = "Could not access camera. Please check your permissions."

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current step.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrNoImage is returned when an image handle is required but missing.
	ErrNoImage = errors.New("no captured image")
	// ErrSessionNotFound is returned for unknown or expired flow ids.
	ErrSessionNotFound = errors.New("flow session not found")
	// ErrClosed is returned by operations on a closed flow.
	ErrClosed = errors.New("flow session closed")
)

// State is a snapshot of a flow session.
type State struct {
	ID          string    `json:"id"`
	Step        Step      `json:"step"`
	Progress    int       `json:"progress"`
	HasImage    bool      `json:"has_image"`
	CameraError string    `json:"camera_error,omitempty"`
	Busy        bool      `json:"busy"`
	UpdatedAt   time.Time `json:"updated_at"`
}
