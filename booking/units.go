package booking

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/nejcselan19/rezervacije/models"
)

// SortUnits orders units in place by day, then hour.
func SortUnits(units []models.TimeUnit) {
	slices.SortFunc(units, func(a, b models.TimeUnit) int { return a.Compare(b) })
}

// normalizeUnits returns a sorted copy of units. It rejects empty and
// oversized requests and units submitted more than once.
func normalizeUnits(units []models.TimeUnit, max int) ([]models.TimeUnit, error) {
	if len(units) == 0 {
		return nil, invalidRequest("no time units requested")
	}
	if max > 0 && len(units) > max {
		return nil, invalidRequest("%d time units requested, at most %d allowed", len(units), max)
	}

	out := slices.Clone(units)
	SortUnits(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, invalidRequest("%s requested more than once", out[i])
		}
	}
	return out, nil
}

// checkShape verifies that every unit matches the granularity the item is
// rented by.
func checkShape(item *models.Item, units []models.TimeUnit) error {
	if !item.RateUnit.Valid() {
		return fmt.Errorf("%w: item %s has unknown rate unit %q", ErrInvalidRate, item.ID, item.RateUnit)
	}
	for _, u := range units {
		if !u.Fits(item.RateUnit) {
			return invalidRequest("%s does not fit a %s item", u, item.RateUnit)
		}
	}
	return nil
}
