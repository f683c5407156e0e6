package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTimeUnitJSON(t *testing.T) {
	b, err := json.Marshal([]TimeUnit{Hourly(5, 9), Daily(6)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `[{"day":5,"hour":9},{"day":6}]` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var units []TimeUnit
	if err := json.Unmarshal([]byte(`[{"day":5,"hour":0},{"day":6}]`), &units); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units[0] != Hourly(5, 0) || units[1] != Daily(6) {
		t.Fatalf("unexpected decoding %v", units)
	}
}

func TestTimeUnitJSONMissingDay(t *testing.T) {
	var u TimeUnit
	if err := json.Unmarshal([]byte(`{"hour":3}`), &u); !errors.Is(err, errMissingDay) {
		t.Fatalf("expected errMissingDay, got %v", err)
	}
}

func TestTimeUnitFits(t *testing.T) {
	cases := []struct {
		unit TimeUnit
		rate RateUnit
		want bool
	}{
		{Hourly(0, 0), PerHour, true},
		{Hourly(0, 23), PerHour, true},
		{Hourly(0, 24), PerHour, false},
		{Hourly(-1, 5), PerHour, false},
		{Daily(3), PerHour, false},
		{Daily(3), PerDay, true},
		{Hourly(3, 1), PerDay, false},
		{Daily(3), RateUnit("per-week"), false},
	}
	for _, c := range cases {
		if got := c.unit.Fits(c.rate); got != c.want {
			t.Errorf("%v fits %s: got %v, want %v", c.unit, c.rate, got, c.want)
		}
	}
}

func TestTimeUnitCompare(t *testing.T) {
	if Daily(1).Compare(Hourly(1, 0)) >= 0 {
		t.Error("a whole day must order before the hours of that day")
	}
	if Hourly(1, 23).Compare(Hourly(2, 0)) >= 0 {
		t.Error("earlier day must order first")
	}
	if Hourly(4, 4).Compare(Hourly(4, 4)) != 0 {
		t.Error("equal units must compare equal")
	}
}

func TestReservationCanCancel(t *testing.T) {
	r := Reservation{RenterID: "renter-1", OwnerID: "owner-1", Status: StatusActive}
	for id, want := range map[string]bool{"renter-1": true, "owner-1": true, "renter-2": false, "": false} {
		if got := r.CanCancel(id); got != want {
			t.Errorf("CanCancel(%q) = %v, want %v", id, got, want)
		}
	}
}
