package httpx

import (
	"errors"
	"net/http"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.As(err, &vErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: vErr.Reason,
			Field:  vErr.Field,
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrReferentialConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrDeliveryFailure):
		Problem(w, http.StatusBadGateway, "Delivery Failure", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
