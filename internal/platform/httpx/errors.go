// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrFormat):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Document", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		partial := !shared.NothingChanged(err)
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err), slog.Bool("partial", partial))
		}
		WriteProblem(w, ProblemDetail{
			Title:   "Storage Failure",
			Status:  http.StatusInternalServerError,
			Partial: &partial,
		})
	}
}
