package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"

	"github.com/nejcselan19/rezervacije/booking"
	"github.com/nejcselan19/rezervacije/models"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Conflicts []models.TimeUnit `json:"conflicts,omitempty"`
}

// CreateError writes an error body with the given status.
func CreateError(status int, title, message string, ctx iris.Context) {
	ctx.StopWithJSON(status, errorResponse{Error: title, Message: message})
}

// HandleValidationErrors reports a body that failed to decode or failed its
// validate tags.
func HandleValidationErrors(err error, ctx iris.Context) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		CreateError(iris.StatusBadRequest, "Validation Error",
			fe.Field()+" failed on the "+fe.Tag()+" rule", ctx)
		return
	}
	CreateError(iris.StatusBadRequest, "Invalid Request", err.Error(), ctx)
}

// handleEngineError maps engine errors onto HTTP statuses.
func handleEngineError(err error, ctx iris.Context) {
	var slot *booking.SlotUnavailableError
	switch {
	case errors.As(err, &slot):
		ctx.StopWithJSON(iris.StatusConflict, errorResponse{
			Error:     "Slot Unavailable",
			Message:   err.Error(),
			Conflicts: slot.Units,
		})
	case errors.Is(err, booking.ErrInvalidRequest):
		CreateError(iris.StatusBadRequest, "Invalid Request", err.Error(), ctx)
	case errors.Is(err, booking.ErrItemNotFound), errors.Is(err, booking.ErrReservationNotFound):
		CreateError(iris.StatusNotFound, "Not Found", err.Error(), ctx)
	case errors.Is(err, booking.ErrForbidden):
		CreateError(iris.StatusForbidden, "Forbidden", err.Error(), ctx)
	case errors.Is(err, booking.ErrItemHasActiveReservations):
		CreateError(iris.StatusConflict, "Item In Use", err.Error(), ctx)
	default:
		log.Printf("%s %s: %v", ctx.Method(), ctx.Path(), err)
		CreateError(iris.StatusInternalServerError, "Error", "internal server error", ctx)
	}
}
