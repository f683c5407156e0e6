// Package booking is the reservation engine. It turns a renter's requested
// time units into a durable reservation, guaranteeing that no two active
// reservations of the same item share a unit.
//
// The engine does a cheap pre-check against the current availability so the
// common conflict case is reported without a write, but the guarantee itself
// comes from ReservationStore.Reserve, which must insert all units of a
// reservation atomically and refuse if any of them is already held. When two
// requests race for the same unit the one that commits first wins and the
// other is rejected with a SlotUnavailableError.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nejcselan19/rezervacije/models"
	"github.com/nejcselan19/rezervacije/notify"
)

// Catalog is the part of the item/user collaborator the engine relies on.
// Missing records are reported with errors wrapping models.ErrNotFound.
type Catalog interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	DeleteItem(ctx context.Context, id string) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	// UnitsReserved returns every unit covered by an active reservation of
	// the item, as of the latest commit.
	UnitsReserved(ctx context.Context, itemID string) ([]models.TimeUnit, error)

	// Reserve stores r and claims its units in one atomic step. If any unit
	// is already claimed nothing is written and the taken units are returned.
	Reserve(ctx context.Context, r *models.Reservation) ([]models.TimeUnit, error)

	Get(ctx context.Context, id string) (*models.Reservation, error)

	// Cancel marks the reservation cancelled and releases its units. It
	// reports false when the reservation was already cancelled.
	Cancel(ctx context.Context, id, by string, at time.Time) (*models.Reservation, bool, error)

	ListByItem(ctx context.Context, itemID string) ([]models.Reservation, error)
	ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error)
	HasActive(ctx context.Context, itemID string) (bool, error)
}

// Options tune an Engine. Zero values pick the defaults.
type Options struct {
	MaxUnitsPerRequest int
	NotifyTimeout      time.Duration
	Now                func() time.Time
	NewID              func() string
}

const (
	defaultMaxUnits      = 24 * 31
	defaultNotifyTimeout = 5 * time.Second
)

// BookRequest is a renter's request to reserve units of one item.
type BookRequest struct {
	ItemID   string
	RenterID string
	Units    []models.TimeUnit
}

// Engine coordinates validation, conflict checks, pricing, persistence and
// notification for reservations.
type Engine struct {
	catalog  Catalog
	store    ReservationStore
	notifier notify.Dispatcher
	opts     Options

	// inflight tracks notification goroutines so shutdown can drain them.
	inflight sync.WaitGroup
}

// NewEngine wires an engine. notifier may be nil to disable notifications.
func NewEngine(c Catalog, s ReservationStore, notifier notify.Dispatcher, opts Options) *Engine {
	if opts.MaxUnitsPerRequest <= 0 {
		opts.MaxUnitsPerRequest = defaultMaxUnits
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Engine{catalog: c, store: s, notifier: notifier, opts: opts}
}

// Book reserves req.Units of req.ItemID for req.RenterID. Either every
// requested unit is reserved or none is.
func (e *Engine) Book(ctx context.Context, req BookRequest) (*models.Reservation, error) {
	if strings.TrimSpace(req.ItemID) == "" {
		return nil, invalidRequest("item id is required")
	}
	if strings.TrimSpace(req.RenterID) == "" {
		return nil, invalidRequest("renter id is required")
	}
	units, err := normalizeUnits(req.Units, e.opts.MaxUnitsPerRequest)
	if err != nil {
		return nil, err
	}

	item, err := e.item(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if err := checkShape(item, units); err != nil {
		return nil, err
	}

	reserved, err := e.store.UnitsReserved(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load availability of item %s: %w", item.ID, err)
	}
	if conflicts := FindConflicts(units, reserved); len(conflicts) > 0 {
		return nil, &SlotUnavailableError{ItemID: item.ID, Units: conflicts}
	}

	cost, err := Price(item, units)
	if err != nil {
		return nil, err
	}

	r := &models.Reservation{
		ID:        e.opts.NewID(),
		ItemID:    item.ID,
		RenterID:  req.RenterID,
		OwnerID:   item.OwnerID,
		ItemTitle: item.Title,
		Units:     units,
		TotalCost: cost,
		Status:    models.StatusActive,
		CreatedAt: e.opts.Now().UTC(),
	}

	taken, err := e.store.Reserve(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("persist reservation for item %s: %w", item.ID, err)
	}
	if len(taken) > 0 {
		// Lost a race with a concurrent commit.
		SortUnits(taken)
		return nil, &SlotUnavailableError{ItemID: item.ID, Units: taken}
	}

	log.Printf("reservation %s: item %s, renter %s, %d units, total %d", r.ID, r.ItemID, r.RenterID, len(r.Units), r.TotalCost)
	e.notifyBooked(*r, *item)
	return r, nil
}

// Quote prices units of an item without reserving them.
func (e *Engine) Quote(ctx context.Context, itemID string, units []models.TimeUnit) (int64, []models.TimeUnit, error) {
	normalized, err := normalizeUnits(units, e.opts.MaxUnitsPerRequest)
	if err != nil {
		return 0, nil, err
	}
	item, err := e.item(ctx, itemID)
	if err != nil {
		return 0, nil, err
	}
	if err := checkShape(item, normalized); err != nil {
		return 0, nil, err
	}
	cost, err := Price(item, normalized)
	if err != nil {
		return 0, nil, err
	}
	return cost, normalized, nil
}

// Cancel cancels a reservation on behalf of requesterID, who must be the
// renter or the item owner. Cancelling twice is not an error.
func (e *Engine) Cancel(ctx context.Context, reservationID, requesterID string) (*models.Reservation, error) {
	r, err := e.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !r.CanCancel(requesterID) {
		return nil, fmt.Errorf("%w: %s may not cancel reservation %s", ErrForbidden, requesterID, r.ID)
	}
	if !r.Active() {
		return r, nil
	}

	updated, changed, err := e.store.Cancel(ctx, r.ID, requesterID, e.opts.Now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
		}
		return nil, fmt.Errorf("cancel reservation %s: %w", r.ID, err)
	}
	if changed {
		log.Printf("reservation %s cancelled by %s", updated.ID, requesterID)
		e.notifyCancelled(*updated)
	}
	return updated, nil
}

// Get returns a reservation by id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
		}
		return nil, fmt.Errorf("load reservation %s: %w", id, err)
	}
	return r, nil
}

// Availability returns the units of an item currently held by active
// reservations, sorted.
func (e *Engine) Availability(ctx context.Context, itemID string) ([]models.TimeUnit, error) {
	item, err := e.item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	units, err := e.store.UnitsReserved(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load availability of item %s: %w", item.ID, err)
	}
	SortUnits(units)
	return units, nil
}

// ListByRenter returns every reservation a renter made, newest first.
func (e *Engine) ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	list, err := e.store.ListByRenter(ctx, renterID)
	if err != nil {
		return nil, fmt.Errorf("list reservations of renter %s: %w", renterID, err)
	}
	return list, nil
}

// ListByItem returns every reservation of an item, newest first.
func (e *Engine) ListByItem(ctx context.Context, itemID string) ([]models.Reservation, error) {
	list, err := e.store.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list reservations of item %s: %w", itemID, err)
	}
	return list, nil
}

// RetireItem deletes an item from the catalog. Only the owner may do so, and
// only while the item has no active reservations.
func (e *Engine) RetireItem(ctx context.Context, itemID, requesterID string) error {
	item, err := e.item(ctx, itemID)
	if err != nil {
		return err
	}
	if requesterID == "" || item.OwnerID != requesterID {
		return fmt.Errorf("%w: %s does not own item %s", ErrForbidden, requesterID, item.ID)
	}

	active, err := e.store.HasActive(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("check reservations of item %s: %w", item.ID, err)
	}
	if active {
		return fmt.Errorf("%w: %s", ErrItemHasActiveReservations, item.ID)
	}

	if err := e.catalog.DeleteItem(ctx, item.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
		}
		return fmt.Errorf("delete item %s: %w", item.ID, err)
	}
	log.Printf("item %s retired by %s", item.ID, requesterID)
	return nil
}

// Wait blocks until all pending notifications have finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) item(ctx context.Context, id string) (*models.Item, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidRequest("item id is required")
	}
	item, err := e.catalog.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("load item %s: %w", id, err)
	}
	return item, nil
}

func (e *Engine) notifyBooked(r models.Reservation, item models.Item) {
	e.background(func(ctx context.Context) {
		data := reservationData(r)
		data["OwnerName"] = item.Owner.Name
		data["OwnerEmail"] = item.Owner.Email
		data["OwnerPhone"] = item.Owner.Phone
		data["OwnerAddress"] = item.Owner.Address

		renter, err := e.catalog.GetUser(ctx, r.RenterID)
		if err != nil {
			log.Printf("reservation %s: renter %s lookup failed, skipping confirmation: %v", r.ID, r.RenterID, err)
		} else {
			data["RenterName"] = renter.FullName()
			data["RenterEmail"] = renter.Email
			data["RenterPhone"] = renter.Phone
			e.send(ctx, r.ID, notify.TemplateReservationConfirmed, renter.Email, data)
		}

		e.send(ctx, r.ID, notify.TemplateReservationReceived, item.Owner.Email, data)
	})
}

func (e *Engine) notifyCancelled(r models.Reservation) {
	e.background(func(ctx context.Context) {
		if renter, err := e.catalog.GetUser(ctx, r.RenterID); err != nil {
			log.Printf("reservation %s: renter %s lookup failed: %v", r.ID, r.RenterID, err)
		} else {
			data := reservationData(r)
			data["Name"] = renter.FullName()
			e.send(ctx, r.ID, notify.TemplateReservationCancelled, renter.Email, data)
		}

		if item, err := e.catalog.GetItem(ctx, r.ItemID); err != nil {
			log.Printf("reservation %s: item %s lookup failed: %v", r.ID, r.ItemID, err)
		} else {
			data := reservationData(r)
			data["Name"] = item.Owner.Name
			e.send(ctx, r.ID, notify.TemplateReservationCancelled, item.Owner.Email, data)
		}
	})
}

// background runs fn outside the caller's request with its own deadline.
func (e *Engine) background(fn func(ctx context.Context)) {
	if e.notifier == nil {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.NotifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (e *Engine) send(ctx context.Context, reservationID, template, to string, data map[string]string) {
	if to == "" {
		return
	}
	if err := e.notifier.Send(ctx, template, to, data); err != nil {
		log.Printf("reservation %s: %s to %s failed: %v", reservationID, template, to, err)
	}
}

func reservationData(r models.Reservation) map[string]string {
	units := make([]string, len(r.Units))
	for i, u := range r.Units {
		units[i] = u.String()
	}
	return map[string]string{
		"ReservationID": r.ID,
		"ItemTitle":     r.ItemTitle,
		"Units":         strings.Join(units, ", "),
		"TotalCost":     strconv.FormatInt(r.TotalCost, 10),
	}
}
