/*
Package user holds the device-facing HTTP handlers: profile and targets,
food photo analysis and logging, the mood check-in chat and the dashboard.
*/
package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"time"

	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AIService is the slice of the Gemini client the handlers need.
type AIService interface {
	Configured() bool
	AnalyzeFood(ctx context.Context, log *zerolog.Logger, image []byte, mimeType, note string) (*geminiservice.FoodAnalysis, error)
	MindChat(ctx context.Context, log *zerolog.Logger, history []store.ChatMessage) (*geminiservice.MindTurn, error)
	DashboardInsight(ctx context.Context, log *zerolog.Logger, in geminiservice.InsightContext) (*geminiservice.Insight, error)
}

// Options tunes handler limits.
type Options struct {
	MaxUploadBytes int64
	MindMaxTurns   int
	InsightTimeout time.Duration
}

// Handler bundles the dependencies shared by every route in this package.
type Handler struct {
	store store.Service
	ai    AIService
	calc  *nutrition.Calculator
	hub   *utility.Hub
	opts  Options

	now func() time.Time
}

// NewHandler wires the handlers. A nil calc falls back to the default protein factor.
func NewHandler(st store.Service, ai AIService, calc *nutrition.Calculator, hub *utility.Hub, opts Options) *Handler {
	if calc == nil {
		c := nutrition.DefaultCalculator
		calc = &c
	}
	if hub == nil {
		hub = utility.NewHub()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.MindMaxTurns <= 0 {
		opts.MindMaxTurns = 20
	}
	if opts.InsightTimeout <= 0 {
		opts.InsightTimeout = 10 * time.Second
	}
	return &Handler{
		store: st,
		ai:    ai,
		calc:  calc,
		hub:   hub,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// today is the food log bucket for the current request.
func (h *Handler) today() string {
	return utility.DayKey(h.now())
}

/* =================================================================================
								ERROR RESPONSES
=================================================================================*/

// validationError answers 400 with the offending field when one is known.
func validationError(c echo.Context, err error) error {
	var pe *nutrition.InvalidProfileError
	if errors.As(err, &pe) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": pe.Error(), "field": pe.Field})
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// bindProfileError answers a failed profile bind. A JSON value of the wrong
// type names the field it was meant for.
func bindProfileError(c echo.Context, err error) error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		reason := "has the wrong type"
		switch ute.Type.Kind() {
		case reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64:
			reason = "must be a number"
		case reflect.String:
			reason = "must be a string"
		}
		return validationError(c, &nutrition.InvalidProfileError{Field: ute.Field, Reason: reason})
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
}

// aiError maps a failed model call onto a status code.
func aiError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, geminiservice.ErrNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "AI features are not configured on this server"})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "AI service failed to respond"})
	}
}

func (h *Handler) aiReady() bool {
	return h.ai != nil && h.ai.Configured()
}

func deviceID(c echo.Context) (string, error) {
	id, err := utility.GetDeviceIDFromContext(c)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, utility.DeviceHeader+" header is required")
	}
	return id, nil
}
