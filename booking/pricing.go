package booking

import (
	"fmt"
	"math"

	"github.com/nejcselan19/rezervacije/models"
)

// Price returns the cost of renting item for the given units: one rate per
// unit. Per-hour and per-day items share the formula because the unit already
// carries the granularity.
func Price(item *models.Item, units []models.TimeUnit) (int64, error) {
	if item.Rate < 0 {
		return 0, fmt.Errorf("%w: item %s has negative rate %d", ErrInvalidRate, item.ID, item.Rate)
	}
	if len(units) == 0 {
		return 0, fmt.Errorf("%w: no units to price", ErrInvalidRate)
	}

	n := int64(len(units))
	if item.Rate > 0 && n > math.MaxInt64/item.Rate {
		return 0, fmt.Errorf("%w: total for %d units at %d overflows", ErrInvalidRate, n, item.Rate)
	}
	return n * item.Rate, nil
}
