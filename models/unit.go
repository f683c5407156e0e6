package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WholeDay is the Hour value of a TimeUnit that covers an entire day.
const WholeDay = -1

// TimeUnit is the atomic bookable granule: one hour of a day for per-hour
// items, or a whole day for per-day items. Day counts days since 1970-01-01
// in the owner's timezone.
type TimeUnit struct {
	Day  int
	Hour int
}

// Hourly returns the unit covering hour h of day d.
func Hourly(d, h int) TimeUnit { return TimeUnit{Day: d, Hour: h} }

// Daily returns the unit covering all of day d.
func Daily(d int) TimeUnit { return TimeUnit{Day: d, Hour: WholeDay} }

// IsWholeDay reports whether u covers an entire day.
func (u TimeUnit) IsWholeDay() bool { return u.Hour == WholeDay }

// Compare orders units by day, then hour.
func (u TimeUnit) Compare(o TimeUnit) int {
	switch {
	case u.Day < o.Day:
		return -1
	case u.Day > o.Day:
		return 1
	case u.Hour < o.Hour:
		return -1
	case u.Hour > o.Hour:
		return 1
	}
	return 0
}

// Fits reports whether u has the shape expected for an item rented by r.
func (u TimeUnit) Fits(r RateUnit) bool {
	if u.Day < 0 {
		return false
	}
	switch r {
	case PerHour:
		return u.Hour >= 0 && u.Hour <= 23
	case PerDay:
		return u.IsWholeDay()
	}
	return false
}

func (u TimeUnit) String() string {
	if u.IsWholeDay() {
		return fmt.Sprintf("day %d", u.Day)
	}
	return fmt.Sprintf("day %d %02d:00", u.Day, u.Hour)
}

type hourlyJSON struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

type dailyJSON struct {
	Day int `json:"day"`
}

// MarshalJSON omits the hour of whole-day units.
func (u TimeUnit) MarshalJSON() ([]byte, error) {
	if u.IsWholeDay() {
		return json.Marshal(dailyJSON{Day: u.Day})
	}
	return json.Marshal(hourlyJSON{Day: u.Day, Hour: u.Hour})
}

var errMissingDay = errors.New("time unit: missing day")

// UnmarshalJSON treats a missing hour as a whole-day unit.
func (u *TimeUnit) UnmarshalJSON(b []byte) error {
	var raw struct {
		Day  *int `json:"day"`
		Hour *int `json:"hour"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Day == nil {
		return errMissingDay
	}
	u.Day = *raw.Day
	u.Hour = WholeDay
	if raw.Hour != nil {
		u.Hour = *raw.Hour
	}
	return nil
}
