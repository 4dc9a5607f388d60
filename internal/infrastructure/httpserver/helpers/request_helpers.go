package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DeviceIDHeader may carry the device id when the query string does not.
const DeviceIDHeader = "X-Voter-Device-Id"

type ctxKey string

const keyDeviceID ctxKey = "voter_device_id"

// Param reads a value from the query string, falling back to form values.
func Param(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.FormValue(name))
}

// BoolParam accepts the usual truthy spellings: 1, t, true, yes, on.
func BoolParam(c echo.Context, name string) bool {
	v := strings.ToLower(Param(c, name))
	if v == "yes" || v == "on" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// UUIDParam parses an optional UUID parameter. Missing values yield uuid.Nil.
func UUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	v := Param(c, name)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// PathUUID parses a required UUID path segment.
func PathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// DeviceID returns the device id resolved for this request.
func DeviceID(c echo.Context) string {
	if v, ok := c.Get(string(keyDeviceID)).(string); ok && v != "" {
		return v
	}
	if v := Param(c, string(keyDeviceID)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Request().Header.Get(DeviceIDHeader))
}

func SetDeviceID(c echo.Context, id string) { c.Set(string(keyDeviceID), id) }
