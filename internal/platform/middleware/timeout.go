package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/miabis/miabis/internal/platform/fhir"
)

// RequestTimeout bounds each request with a context deadline. A handler still
// running at the deadline gets a 504 OperationOutcome written in its place.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, fhir.NewOperationOutcome(
					fhir.IssueSeverityError,
					fhir.IssueTypeTimeout,
					"Request processing exceeded the allowed time limit",
				))
			}
		}
	}
}
