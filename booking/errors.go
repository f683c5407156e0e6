package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nejcselan19/rezervacije/models"
)

var (
	ErrInvalidRequest            = errors.New("invalid request")
	ErrItemNotFound              = errors.New("item not found")
	ErrReservationNotFound       = errors.New("reservation not found")
	ErrSlotUnavailable           = errors.New("slot unavailable")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidRate               = errors.New("invalid rate")
	ErrItemHasActiveReservations = errors.New("item has active reservations")
)

// SlotUnavailableError is returned when some requested units are already held
// by an active reservation. Nothing from the request was reserved.
type SlotUnavailableError struct {
	ItemID string
	Units  []models.TimeUnit
}

func (e *SlotUnavailableError) Error() string {
	parts := make([]string, len(e.Units))
	for i, u := range e.Units {
		parts[i] = u.String()
	}
	return fmt.Sprintf("%s: item %s: %s", ErrSlotUnavailable, e.ItemID, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, ErrSlotUnavailable) hold.
func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
