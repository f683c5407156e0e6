package models

import "time"

// Status of a reservation. Cancelled is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Reservation holds one renter's claim on a set of time units of one item.
type Reservation struct {
	ID       string `json:"id"`
	ItemID   string `json:"itemId"`
	RenterID string `json:"renterId"`

	// OwnerID and ItemTitle are copied from the item at booking time.
	OwnerID   string `json:"ownerId"`
	ItemTitle string `json:"itemTitle,omitempty"`

	// Units are sorted and unique.
	Units []TimeUnit `json:"units"`

	TotalCost int64  `json:"totalCost"`
	Status    Status `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy string     `json:"cancelledBy,omitempty"`
}

// Active reports whether r still occupies its units.
func (r *Reservation) Active() bool { return r.Status == StatusActive }

// CanCancel reports whether userID is allowed to cancel r: the renter who
// made it or the owner of the item.
func (r *Reservation) CanCancel(userID string) bool {
	return userID != "" && (userID == r.RenterID || userID == r.OwnerID)
}
