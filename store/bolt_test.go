package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nejcselan19/rezervacije/models"
	"github.com/nejcselan19/rezervacije/store"
)

func newTestStore(t *testing.T) *store.Bolt {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewBolt(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func reservation(id, item, renter string, at time.Time, units ...models.TimeUnit) *models.Reservation {
	return &models.Reservation{
		ID:        id,
		ItemID:    item,
		RenterID:  renter,
		OwnerID:   "owner-1",
		ItemTitle: "Tennis court",
		Units:     units,
		TotalCost: int64(10 * len(units)),
		Status:    models.StatusActive,
		CreatedAt: at,
	}
}

func TestUnitsReservedEmpty(t *testing.T) {
	s := newTestStore(t)
	units, err := s.UnitsReserved(context.Background(), "court-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no reserved units, got %v", units)
	}
}

func TestReserveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := reservation("r1", "court-1", "renter-1", base, models.Hourly(5, 9), models.Hourly(5, 10))
	taken, err := s.Reserve(ctx, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(taken) != 0 {
		t.Fatalf("expected nothing taken, got %v", taken)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalCost != 20 || len(got.Units) != 2 || !got.Active() {
		t.Fatalf("unexpected stored reservation: %+v", got)
	}

	units, err := s.UnitsReserved(ctx, "court-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 || units[0] != models.Hourly(5, 9) || units[1] != models.Hourly(5, 10) {
		t.Fatalf("unexpected reserved units: %v", units)
	}
}

func TestReserveConflictWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(5, 9), models.Hourly(5, 10))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	taken, err := s.Reserve(ctx, reservation("r2", "court-1", "renter-2", base, models.Hourly(5, 10), models.Hourly(5, 11)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(taken) != 1 || taken[0] != models.Hourly(5, 10) {
		t.Fatalf("expected (5,10) taken, got %v", taken)
	}

	if _, err := s.Get(ctx, "r2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for rejected reservation, got %v", err)
	}
	units, _ := s.UnitsReserved(ctx, "court-1")
	if len(units) != 2 {
		t.Fatalf("rejected reservation must not claim units, got %v", units)
	}
}

func TestReserveOtherItemDoesNotConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Daily(3))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	taken, err := s.Reserve(ctx, reservation("r2", "court-2", "renter-1", base, models.Daily(3)))
	if err != nil || len(taken) != 0 {
		t.Fatalf("expected other item to be free, got taken=%v err=%v", taken, err)
	}
}

func TestReserveDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(1, 8))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(1, 9)))
	if !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestCancelReleasesUnits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(5, 9), models.Hourly(5, 10))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := base.Add(time.Hour)
	r, changed, err := s.Cancel(ctx, "r1", "renter-1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true on first cancel")
	}
	if r.Status != models.StatusCancelled || r.CancelledBy != "renter-1" || r.CancelledAt == nil || !r.CancelledAt.Equal(at) {
		t.Fatalf("unexpected cancelled reservation: %+v", r)
	}

	units, _ := s.UnitsReserved(ctx, "court-1")
	if len(units) != 0 {
		t.Fatalf("expected units released, got %v", units)
	}

	taken, err := s.Reserve(ctx, reservation("r2", "court-1", "renter-2", base, models.Hourly(5, 10), models.Hourly(5, 11)))
	if err != nil || len(taken) != 0 {
		t.Fatalf("expected rebooking to succeed, got taken=%v err=%v", taken, err)
	}
}

func TestCancelIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(2, 14))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _, err := s.Cancel(ctx, "r1", "renter-1", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, changed, err := s.Cancel(ctx, "r1", "owner-1", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error on repeat cancel: %v", err)
	}
	if changed {
		t.Fatal("expected changed=false on repeat cancel")
	}
	if second.CancelledBy != first.CancelledBy || !second.CancelledAt.Equal(*first.CancelledAt) {
		t.Fatal("repeat cancel must not rewrite the record")
	}
}

func TestCancelNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Cancel(context.Background(), "missing", "renter-1", base)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatal("store.ErrNotFound must wrap models.ErrNotFound")
	}
}

func TestListsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	reservations := []*models.Reservation{
		reservation("r1", "court-1", "renter-1", base, models.Hourly(1, 8)),
		reservation("r2", "court-1", "renter-2", base.Add(time.Minute), models.Hourly(1, 9)),
		reservation("r3", "court-2", "renter-1", base.Add(2*time.Minute), models.Daily(1)),
	}
	for _, r := range reservations {
		if _, err := s.Reserve(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	byItem, err := s.ListByItem(ctx, "court-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byItem) != 2 || byItem[0].ID != "r2" || byItem[1].ID != "r1" {
		t.Fatalf("unexpected item listing: %+v", byItem)
	}

	byRenter, err := s.ListByRenter(ctx, "renter-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byRenter) != 2 || byRenter[0].ID != "r3" || byRenter[1].ID != "r1" {
		t.Fatalf("unexpected renter listing: %+v", byRenter)
	}

	none, err := s.ListByRenter(ctx, "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", none)
	}
}

func TestHasActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active, err := s.HasActive(ctx, "court-1")
	if err != nil || active {
		t.Fatalf("expected no active reservations, got %v err=%v", active, err)
	}

	if _, err := s.Reserve(ctx, reservation("r1", "court-1", "renter-1", base, models.Hourly(1, 8))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active, _ := s.HasActive(ctx, "court-1"); !active {
		t.Fatal("expected active reservation")
	}

	if _, _, err := s.Cancel(ctx, "r1", "renter-1", base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active, _ := s.HasActive(ctx, "court-1"); active {
		t.Fatal("expected no active reservation after cancel")
	}
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := reservation(fmt.Sprintf("r%d", i), "court-1", fmt.Sprintf("renter-%d", i), base, models.Hourly(7, 18))
			taken, err := s.Reserve(ctx, r)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if len(taken) == 0 {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestWholeDayAndHourlyKeysAreDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, reservation("r1", "van-1", "renter-1", base, models.Daily(12), models.Daily(2))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	units, err := s.UnitsReserved(ctx, "van-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 || units[0] != models.Daily(2) || units[1] != models.Daily(12) {
		t.Fatalf("expected whole days in order, got %v", units)
	}
}
