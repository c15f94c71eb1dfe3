package utility

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DeviceHeader identifies the client device. It scopes in-memory state and
// is not an authentication mechanism.
const DeviceHeader = "X-Device-ID"

// GetRealIP is a helper function to get the user's real IP address.
// It checks proxy headers first.
func GetRealIP(c echo.Context) string {
	// X-Forwarded-For can be a list: "client, proxy1, proxy2"
	xForwardedFor := c.Request().Header.Get("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	xRealIP := c.Request().Header.Get("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	return c.RealIP()
}

// ParseDeviceID validates a raw X-Device-ID value and returns its canonical form.
func ParseDeviceID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s header is required", DeviceHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be a UUID", DeviceHeader)
	}
	return id.String(), nil
}

// GetDeviceIDFromContext safely retrieves the device ID set by DeviceMiddleware.
func GetDeviceIDFromContext(c echo.Context) (string, error) {
	deviceID, ok := c.Get("device_id").(string)
	if !ok || deviceID == "" {
		return "", fmt.Errorf("device ID not found in context")
	}
	return deviceID, nil
}

// GetLogger returns the request-scoped logger, falling back to the global one.
func GetLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get("logger").(*zerolog.Logger); ok && l != nil {
		return l
	}
	l := log.Logger
	return &l
}

// DayKey buckets a timestamp into the UTC calendar day used by food logs.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DeviceMiddleware requires a UUID X-Device-ID and stores it under "device_id".
// Websocket clients that can't set headers may pass ?device_id= instead.
func DeviceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(DeviceHeader)
		if raw == "" {
			raw = c.QueryParam("device_id")
		}
		deviceID, err := ParseDeviceID(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		c.Set("device_id", deviceID)

		scoped := GetLogger(c).With().Str("device_id", deviceID).Logger()
		c.Set("logger", &scoped)
		return next(c)
	}
}
