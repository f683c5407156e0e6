// Package catalog is the item and user collaborator of the reservation
// engine. Listing and account management live elsewhere; this package only
// reads items and users and removes retired items.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nejcselan19/rezervacije/models"
)

var (
	ErrItemNotFound = fmt.Errorf("item %w", models.ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", models.ErrNotFound)
)

// Open connects to Postgres. Driver errors such as unique violations are
// translated into gorm's portable errors.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	return db, nil
}

// Cache is an optional read-through cache of items.
type Cache interface {
	Get(ctx context.Context, id string) (*models.Item, bool)
	Set(ctx context.Context, item *models.Item)
	Delete(ctx context.Context, id string)
}

// Catalog reads items and users from Postgres.
type Catalog struct {
	db    *gorm.DB
	cache Cache
}

// New returns a catalog. cache may be nil.
func New(db *gorm.DB, cache Cache) *Catalog {
	return &Catalog{db: db, cache: cache}
}

// Migrate creates the items and users tables.
func (c *Catalog) Migrate() error {
	return c.db.AutoMigrate(&models.User{}, &models.Item{})
}

func (c *Catalog) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if c.cache != nil {
		if item, ok := c.cache.Get(ctx, id); ok {
			return item, nil
		}
	}

	var item models.Item
	if err := c.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, &item)
	}
	return &item, nil
}

func (c *Catalog) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeleteItem removes an item and evicts it from the cache.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	res := c.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if c.cache != nil {
		c.cache.Delete(ctx, id)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	log.Printf("catalog: item %s deleted", id)
	return nil
}
