package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/miabis/miabis/internal/platform/fhir"
)

// Recovery turns a handler panic into a 500 OperationOutcome.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("request_id", GetRequestID(c)).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					if c.Response().Committed {
						err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
						return
					}
					err = c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("internal server error"))
				}
			}()
			return next(c)
		}
	}
}
