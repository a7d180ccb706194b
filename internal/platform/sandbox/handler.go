package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/miabis/miabis/internal/platform/fhir"
)

// GenerateRequest is the body of POST /generate. Biobanks and Collections
// default to 1; a nil Seed picks one from the clock.
type GenerateRequest struct {
	Donors      int    `json:"donors"`
	Biobanks    int    `json:"biobanks"`
	Collections int    `json:"collections"`
	Seed        *int64 `json:"seed"`
}

// DefaultMaxCount bounds each requested count when the handler is given none.
const DefaultMaxCount = 10000

// BundleHandler serves bundle generation over HTTP.
type BundleHandler struct {
	logger      zerolog.Logger
	memberLimit int
	maxCount    int
	now         func() time.Time
}

// NewBundleHandler creates a handler. memberLimit follows Params.MemberLimit;
// maxCount caps donors, biobanks and collections, zero meaning DefaultMaxCount.
func NewBundleHandler(logger zerolog.Logger, memberLimit, maxCount int) *BundleHandler {
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &BundleHandler{logger: logger, memberLimit: memberLimit, maxCount: maxCount, now: time.Now}
}

// RegisterRoutes registers generator routes on the given Echo group.
func (h *BundleHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/generate", h.handleGenerate)
}

func (h *BundleHandler) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, err.Error()))
	}
	if req.Biobanks == 0 {
		req.Biobanks = 1
	}
	if req.Collections == 0 {
		req.Collections = 1
	}
	for _, f := range []struct {
		name  string
		value int
	}{{"donors", req.Donors}, {"biobanks", req.Biobanks}, {"collections", req.Collections}} {
		if f.value > h.maxCount {
			return c.JSON(http.StatusBadRequest, fhir.ValidationOutcome(f.name,
				fmt.Sprintf("%s=%d exceeds the maximum of %d", f.name, f.value, h.maxCount)))
		}
	}
	seed := h.now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	p := Params{
		Donors:      req.Donors,
		Biobanks:    req.Biobanks,
		Collections: req.Collections,
		Seed:        seed,
		MemberLimit: h.memberLimit,
	}
	bundle, err := GenerateContext(c.Request().Context(), p)
	if err != nil {
		if errors.Is(err, ErrInvalidCount) {
			return c.JSON(http.StatusBadRequest, fhir.ValidationOutcome("donors|biobanks|collections", err.Error()))
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}

	h.logger.Info().
		Int("donors", p.Donors).
		Int("biobanks", p.Biobanks).
		Int("collections", p.Collections).
		Int64("seed", seed).
		Int("entries", len(bundle.Entry)).
		Msg("bundle generated")

	c.Response().Header().Set(echo.HeaderContentType, "application/fhir+json")
	c.Response().WriteHeader(http.StatusOK)
	return fhir.Encode(c.Response().Writer, bundle)
}
