package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nejcselan19/rezervacije/models"
)

type reservationRecord struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)"`
	ItemID      string         `gorm:"not null;index"`
	RenterID    string         `gorm:"not null;index"`
	OwnerID     string         `gorm:"not null"`
	ItemTitle   string
	Units       datatypes.JSON `gorm:"type:jsonb;not null"`
	TotalCost   int64          `gorm:"not null"`
	Status      string         `gorm:"type:varchar(20);not null;index"`
	CreatedAt   time.Time
	CancelledAt *time.Time
	CancelledBy string
}

func (reservationRecord) TableName() string { return "reservations" }

// unitClaim is a row per time unit held by an active reservation. The primary
// key (item_id, day, hour) is what rejects a second claim on a unit.
type unitClaim struct {
	ItemID        string `gorm:"primaryKey;type:varchar(64)"`
	Day           int    `gorm:"primaryKey;autoIncrement:false"`
	Hour          int    `gorm:"primaryKey;autoIncrement:false"`
	ReservationID string `gorm:"not null;index"`
}

func (unitClaim) TableName() string { return "unit_claims" }

// errClaimTaken rolls back a Reserve transaction that lost a unit.
var errClaimTaken = errors.New("unit already claimed")

// Postgres is a reservation store on top of gorm.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres wraps an open gorm connection.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the reservation tables and indexes.
func (s *Postgres) Migrate() error {
	return s.db.AutoMigrate(&reservationRecord{}, &unitClaim{})
}

// Reserve inserts the reservation and one claim per unit. Claims are inserted
// with ON CONFLICT DO NOTHING; if fewer rows land than were requested another
// reservation got there first, the transaction is rolled back and the units
// it holds are returned.
func (s *Postgres) Reserve(ctx context.Context, r *models.Reservation) ([]models.TimeUnit, error) {
	rec, err := toRecord(r)
	if err != nil {
		return nil, err
	}

	claims := make([]unitClaim, len(r.Units))
	for i, u := range r.Units {
		claims[i] = unitClaim{ItemID: r.ItemID, Day: u.Day, Hour: u.Hour, ReservationID: r.ID}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateID
			}
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claims)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(claims)) {
			return errClaimTaken
		}
		return nil
	})
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, errClaimTaken) {
		return nil, err
	}

	reserved, err := s.UnitsReserved(ctx, r.ItemID)
	if err != nil {
		return nil, err
	}
	held := make(map[models.TimeUnit]struct{}, len(reserved))
	for _, u := range reserved {
		held[u] = struct{}{}
	}
	var taken []models.TimeUnit
	for _, u := range r.Units {
		if _, ok := held[u]; ok {
			taken = append(taken, u)
		}
	}
	if len(taken) == 0 {
		// The competing reservation was cancelled in between; report the
		// whole request so the caller re-reads availability.
		taken = append(taken, r.Units...)
	}
	return taken, nil
}

func (s *Postgres) UnitsReserved(ctx context.Context, itemID string) ([]models.TimeUnit, error) {
	var claims []unitClaim
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("day, hour").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}

	units := make([]models.TimeUnit, len(claims))
	for i, c := range claims {
		units[i] = models.TimeUnit{Day: c.Day, Hour: c.Hour}
	}
	return units, nil
}

func (s *Postgres) HasActive(ctx context.Context, itemID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&unitClaim{}).Where("item_id = ?", itemID).Count(&n).Error
	return n > 0, err
}

func (s *Postgres) Get(ctx context.Context, id string) (*models.Reservation, error) {
	var rec reservationRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.toModel()
}

// Cancel locks the reservation row, flips its status and deletes its claims
// in one transaction.
func (s *Postgres) Cancel(ctx context.Context, id, by string, at time.Time) (*models.Reservation, bool, error) {
	var rec reservationRecord
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rec.Status != string(models.StatusActive) {
			return nil
		}

		if err := tx.Where("reservation_id = ?", rec.ID).Delete(&unitClaim{}).Error; err != nil {
			return err
		}
		rec.Status = string(models.StatusCancelled)
		rec.CancelledAt = &at
		rec.CancelledBy = by
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	r, err := rec.toModel()
	if err != nil {
		return nil, false, err
	}
	return r, changed, nil
}

func (s *Postgres) ListByItem(ctx context.Context, itemID string) ([]models.Reservation, error) {
	return s.list(ctx, "item_id = ?", itemID)
}

func (s *Postgres) ListByRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	return s.list(ctx, "renter_id = ?", renterID)
}

func (s *Postgres) list(ctx context.Context, query string, arg string) ([]models.Reservation, error) {
	var recs []reservationRecord
	err := s.db.WithContext(ctx).Where(query, arg).Order("created_at DESC, id").Find(&recs).Error
	if err != nil {
		return nil, err
	}

	items := make([]models.Reservation, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *r)
	}
	return items, nil
}

func toRecord(r *models.Reservation) (reservationRecord, error) {
	units, err := json.Marshal(r.Units)
	if err != nil {
		return reservationRecord{}, err
	}
	return reservationRecord{
		ID:          r.ID,
		ItemID:      r.ItemID,
		RenterID:    r.RenterID,
		OwnerID:     r.OwnerID,
		ItemTitle:   r.ItemTitle,
		Units:       datatypes.JSON(units),
		TotalCost:   r.TotalCost,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		CancelledAt: r.CancelledAt,
		CancelledBy: r.CancelledBy,
	}, nil
}

func (rec reservationRecord) toModel() (*models.Reservation, error) {
	var units []models.TimeUnit
	if err := json.Unmarshal(rec.Units, &units); err != nil {
		return nil, fmt.Errorf("decode units of reservation %s: %w", rec.ID, err)
	}
	return &models.Reservation{
		ID:          rec.ID,
		ItemID:      rec.ItemID,
		RenterID:    rec.RenterID,
		OwnerID:     rec.OwnerID,
		ItemTitle:   rec.ItemTitle,
		Units:       units,
		TotalCost:   rec.TotalCost,
		Status:      models.Status(rec.Status),
		CreatedAt:   rec.CreatedAt,
		CancelledAt: rec.CancelledAt,
		CancelledBy: rec.CancelledBy,
	}, nil
}
