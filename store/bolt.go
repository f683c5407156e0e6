// Package store persists reservations.
//
// Two backends implement the same contract. Bolt keeps everything in a single
// embedded file and is the default. Postgres keeps reservations next to the
// catalog tables for deployments that run more than one API process.
//
// Both enforce the no-double-booking rule at the storage layer: a reservation
// and the claims on its time units are written in one transaction, and the
// write is refused when any unit is already claimed. Claims exist only for
// active reservations; cancelling removes them in the same transaction that
// flips the status, so released units are visible to the next read.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/nejcselan19/rezervacije/models"
)

var (
	reservationsBucket = []byte("reservations")

	// unitsBucket holds one sub-bucket per item mapping unit keys to the id
	// of the active reservation holding them.
	unitsBucket = []byte("units")

	// byItemBucket and byRenterBucket hold one sub-bucket per item/renter
	// whose keys are reservation ids.
	byItemBucket   = []byte("by_item")
	byRenterBucket = []byte("by_renter")
)

// ErrNotFound is returned when a requested reservation does not exist.
var ErrNotFound = fmt.Errorf("reservation %w", models.ErrNotFound)

// ErrDuplicateID is returned when a reservation id is already in use.
var ErrDuplicateID = errors.New("reservation id already exists")

// Bolt is a BoltDB-backed reservation store. Bolt admits one read-write
// transaction at a time, which makes every Reserve a serialized
// check-then-write.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) a BoltDB database at path and ensures the
// top-level buckets exist.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{reservationsBucket, unitsBucket, byItemBucket, byRenterBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file lock.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Reserve stores r and claims its units. When any unit is already claimed the
// claimed units are returned and nothing is written.
func (s *Bolt) Reserve(ctx context.Context, r *models.Reservation) ([]models.TimeUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var taken []models.TimeUnit
	err := s.db.Update(func(tx *bolt.Tx) error {
		claims, err := tx.Bucket(unitsBucket).CreateBucketIfNotExists([]byte(r.ItemID))
		if err != nil {
			return err
		}

		for _, u := range r.Units {
			if claims.Get(unitKey(u)) != nil {
				taken = append(taken, u)
			}
		}
		if len(taken) > 0 {
			return nil
		}

		b := tx.Bucket(reservationsBucket)
		if b.Get([]byte(r.ID)) != nil {
			return ErrDuplicateID
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(r.ID), data); err != nil {
			return err
		}

		for _, u := range r.Units {
			if err := claims.Put(unitKey(u), []byte(r.ID)); err != nil {
				return err
			}
		}
		if err := index(tx, byItemBucket, r.ItemID, r.ID); err != nil {
			return err
		}
		return index(tx, byRenterBucket, r.RenterID, r.ID)
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// UnitsReserved returns the units claimed by active reservations of the item,
// in unit order.
func (s *Bolt) UnitsReserved(ctx context.Context, itemID string) ([]models.TimeUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	units := []models.TimeUnit{}
	err := s.db.View(func(tx *bolt.Tx) error {
		claims := tx.Bucket(unitsBucket).Bucket([]byte(itemID))
		if claims == nil {
			return nil
		}
		return claims.ForEach(func(k, _ []byte) error {
			u, err := parseUnitKey(k)
			if err != nil {
				return err
			}
			units = append(units, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// HasActive reports whether any active reservation holds units of the item.
func (s *Bolt) HasActive(ctx context.Context, itemID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	active := false
	err := s.db.View(func(tx *bolt.Tx) error {
		claims := tx.Bucket(unitsBucket).Bucket([]byte(itemID))
		if claims == nil {
			return nil
		}
		k, _ := claims.Cursor().First()
		active = k != nil
		return nil
	})
	return active, err
}

// Get retrieves a single reservation by id.
func (s *Bolt) Get(ctx context.Context, id string) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r models.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(reservationsBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Cancel marks a reservation cancelled and drops its unit claims in the same
// transaction. Cancelling an already cancelled reservation writes nothing and
// returns the stored record with changed=false.
func (s *Bolt) Cancel(ctx context.Context, id, by string, at time.Time) (*models.Reservation, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var r models.Reservation
	changed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(reservationsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		if !r.Active() {
			return nil
		}

		if claims := tx.Bucket(unitsBucket).Bucket([]byte(r.ItemID)); claims != nil {
			for _, u := range r.Units {
				k := unitKey(u)
				if string(claims.Get(k)) != r.ID {
					continue
				}
				if err := claims.Delete(k); err != nil {
					return err
				}
			}
		}

		r.Status = models.StatusCancelled
		r.CancelledAt = &at
		r.CancelledBy = by
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		changed = true
		return b.Put([]byte(r.ID), data)
	})
	if err != nil {
		return nil, false, err
	}
	return &r, changed, nil
}

// ListByItem returns all reservations of an item, newest first.
func (s *Bolt) ListByItem(ctx context.Context, itemID string) ([]models.Reservation, error) {
	return s.listIndexed(ctx, byItemBucket, itemID)
}

// ListByRenter returns all reservations made by a renter, newest first.
func (s *Bolt) ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	return s.listIndexed(ctx, byRenterBucket, renterID)
}

func (s *Bolt) listIndexed(ctx context.Context, bucket []byte, key string) ([]models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// An empty slice rather than nil so the JSON encoder emits [].
	items := []models.Reservation{}
	err := s.db.View(func(tx *bolt.Tx) error {
		ids := tx.Bucket(bucket).Bucket([]byte(key))
		if ids == nil {
			return nil
		}
		b := tx.Bucket(reservationsBucket)
		return ids.ForEach(func(id, _ []byte) error {
			v := b.Get(id)
			if v == nil {
				return nil
			}
			var r models.Reservation
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			items = append(items, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(items)
	return items, nil
}

func index(tx *bolt.Tx, bucket []byte, key, id string) error {
	b, err := tx.Bucket(bucket).CreateBucketIfNotExists([]byte(key))
	if err != nil {
		return err
	}
	return b.Put([]byte(id), []byte{1})
}

func sortNewestFirst(items []models.Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// unitKey encodes a unit so that byte order matches unit order: ten-digit
// day, followed by a two-digit hour for hourly units.
func unitKey(u models.TimeUnit) []byte {
	if u.IsWholeDay() {
		return []byte(fmt.Sprintf("%010d", u.Day))
	}
	return []byte(fmt.Sprintf("%010d/%02d", u.Day, u.Hour))
}

func parseUnitKey(k []byte) (models.TimeUnit, error) {
	day, hour, hourly := strings.Cut(string(k), "/")
	d, err := strconv.Atoi(day)
	if err != nil {
		return models.TimeUnit{}, fmt.Errorf("bad unit key %q: %w", k, err)
	}
	if !hourly {
		return models.Daily(d), nil
	}
	h, err := strconv.Atoi(hour)
	if err != nil {
		return models.TimeUnit{}, fmt.Errorf("bad unit key %q: %w", k, err)
	}
	return models.Hourly(d, h), nil
}
