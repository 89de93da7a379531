package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fmeca-service/charts"
	"fmeca-service/grid"
	"fmeca-service/session"
	"fmeca-service/stats"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// respondWithError sends a JSON error envelope.
func respondWithError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondWithJSON sends a JSON response.
func respondWithJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSelectionMissing):
		return http.StatusNotFound, "selection_missing"
	case errors.Is(err, grid.ErrRowNotFound):
		return http.StatusNotFound, "row_not_found"
	case errors.Is(err, charts.ErrUnknownKind):
		return http.StatusNotFound, "unknown_chart"
	case errors.Is(err, session.ErrThresholdRequired):
		return http.StatusUnprocessableEntity, "threshold_required"
	case errors.Is(err, session.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, charts.ErrNoData), errors.Is(err, charts.ErrNoFit), errors.Is(err, stats.ErrDegenerateBounds):
		return http.StatusUnprocessableEntity, "no_chart_data"
	case errors.Is(err, session.ErrPersistence):
		return http.StatusInternalServerError, "persistence_failed"
	case errors.Is(err, session.ErrNotLoaded), errors.Is(err, session.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondWithSessionError(c *gin.Context, err error) {
	status, code := statusFor(err)
	respondWithError(c, status, code, err)
}
