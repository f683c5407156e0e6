package booking

import "github.com/nejcselan19/rezervacije/models"

// FindConflicts returns the requested units that are also in reserved,
// sorted and without repeats. An empty result means the request is clear.
func FindConflicts(requested, reserved []models.TimeUnit) []models.TimeUnit {
	if len(requested) == 0 || len(reserved) == 0 {
		return nil
	}

	taken := make(map[models.TimeUnit]struct{}, len(reserved))
	for _, u := range reserved {
		taken[u] = struct{}{}
	}

	var conflicts []models.TimeUnit
	for _, u := range requested {
		if _, ok := taken[u]; ok {
			conflicts = append(conflicts, u)
			delete(taken, u)
		}
	}
	SortUnits(conflicts)
	return conflicts
}
