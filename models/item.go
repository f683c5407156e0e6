// Package models defines the core domain types of the reservation service.
package models

import "time"

// RateUnit is the granularity an item is rented by.
type RateUnit string

const (
	PerHour RateUnit = "per-hour"
	PerDay  RateUnit = "per-day"
)

// Valid reports whether u is one of the known rate units.
func (u RateUnit) Valid() bool {
	return u == PerHour || u == PerDay
}

// Category of a listing.
type Category string

const (
	CategorySportCourt Category = "sport-court"
	CategoryVehicle    Category = "vehicle"
	CategoryService    Category = "service"
	CategoryOther      Category = "other"
)

// OwnerContact is a copy of the owner's contact details taken when the item
// was listed. Notifications read it instead of looking the owner up again, so
// it may lag behind later profile edits.
type OwnerContact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Item is a rentable listing. It is owned by the catalog; the reservation
// engine only reads it.
type Item struct {
	ID       string   `json:"id" gorm:"primaryKey;type:varchar(64)"`
	OwnerID  string   `json:"ownerId" gorm:"not null;index"`
	Title    string   `json:"title" gorm:"not null"`
	Category Category `json:"category" gorm:"type:varchar(20);default:'other'"`

	// Rate is expressed in the smallest currency unit and charged once per
	// booked TimeUnit.
	Rate     int64    `json:"rate" gorm:"not null"`
	RateUnit RateUnit `json:"rateUnit" gorm:"type:varchar(10);not null"`

	Owner OwnerContact `json:"owner" gorm:"embedded;embeddedPrefix:owner_"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is the subset of a marketplace user the reservation engine needs.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email" gorm:"not null"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
