package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"Nutrimind/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID", utility.DeviceHeader},
		MaxAge:       300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	// Device-scoped routes. The middleware is attached per route so unknown
	// paths still answer 404.
	device := utility.DeviceMiddleware

	// Profile & Targets
	e.GET("/profile", s.handler.GetProfileHandler, device)
	e.PUT("/profile", s.handler.UpsertProfileHandler, device)
	e.POST("/nutrition/targets", s.handler.CalculateTargetsHandler, device)

	// Food Log & Dashboard
	e.GET("/food/log", s.handler.GetFoodLogHandler, device)
	e.POST("/food/log", s.handler.LogFoodHandler, device)
	e.DELETE("/food/log/:entry_id", s.handler.DeleteFoodLogHandler, device)
	e.GET("/dashboard", s.handler.GetDashboardHandler, device)

	// Mind Check-in
	e.POST("/mind/sessions", s.handler.StartMindSessionHandler, device)
	e.GET("/mind/sessions/:session_id", s.handler.GetMindSessionHandler, device)
	e.GET("/mind/sessions/:session_id/ws", s.handler.MindSocketHandler, device)

	// AI routes are rate limited per device
	limited := s.aiRateLimiter()
	e.POST("/food/analyze", s.handler.AnalyzeFoodHandler, device, limited, middleware.BodyLimit(s.uploadBodyLimit()))
	e.POST("/mind/sessions/:session_id/messages", s.handler.SendMindMessageHandler, device, limited)

	return e
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}

// aiRateLimiter throttles model-backed routes per device, falling back to
// the client IP.
func (s *Server) aiRateLimiter() echo.MiddlewareFunc {
	burst := int(math.Ceil(s.cfg.RateLimitRPS)) * 2
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.cfg.RateLimitRPS),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, err := utility.GetDeviceIDFromContext(c); err == nil {
				return id, nil
			}
			return utility.GetRealIP(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			utility.GetLogger(c).Warn().Str("identifier", identifier).Msg("AI rate limit hit")
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests. Please slow down."})
		},
	})
}

// uploadBodyLimit leaves room for base64 inflation and multipart framing.
func (s *Server) uploadBodyLimit() string {
	return fmt.Sprintf("%dK", s.cfg.MaxUploadBytes*3/2/1024+64)
}

// jsonErrorHandler renders echo errors as {"error": "..."} like the handlers do.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		utility.GetLogger(c).Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
