package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

type PantryItem struct {
	UserID    string `gorm:"primaryKey;size:64;not null"`
	Name      string `gorm:"primaryKey;size:128;not null"`
	Quantity  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p PantryItem) toDomain() domain.Item {
	return domain.Item{Name: p.Name, Quantity: p.Quantity, UpdatedAt: p.UpdatedAt}
}

// GormAdapter stores items through gorm. The upsert expressions target
// sqlite and mysql.
type GormAdapter struct {
	db *gorm.DB
}

func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db}
}

func (g *GormAdapter) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&PantryItem{})
}

func (g *GormAdapter) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	var rec PantryItem
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	item := rec.toDomain()
	return &item, nil
}

func (g *GormAdapter) GetAllItems(ctx context.Context, userID string) ([]domain.Item, error) {
	var recs []PantryItem
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	items := make([]domain.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.toDomain())
	}
	return items, nil
}

func (g *GormAdapter) CreateItem(ctx context.Context, userID, name string, quantity int) error {
	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&PantryItem{UserID: userID, Name: name, Quantity: quantity})

	if result.Error != nil {
		return fmt.Errorf("create item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item %q: %w", name, domain.ErrAlreadyExists)
	}
	return nil
}

func (g *GormAdapter) IncrementItem(ctx context.Context, userID, name string, delta int) error {
	result := g.db.WithContext(ctx).
		Model(&PantryItem{}).
		Where("user_id = ? AND name = ?", userID, name).
		Update("quantity", gorm.Expr("quantity + ?", delta))

	if result.Error != nil {
		return fmt.Errorf("increment item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

func (g *GormAdapter) AddQuantity(ctx context.Context, userID, name string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta must be positive", domain.ErrInvalidArgument)
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&PantryItem{UserID: userID, Name: name, Quantity: delta}).Error
}

func (g *GormAdapter) TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error) {
	var remaining int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec PantryItem
		err := lockedItem(tx, userID, name).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if rec.Quantity <= amount {
			remaining = 0
			return tx.Delete(&rec).Error
		}

		remaining = rec.Quantity - amount
		return tx.Model(&rec).Update("quantity", remaining).Error
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// lockedItem selects the row FOR UPDATE. The sqlite dialect drops the
// clause; its write transactions are already serialized.
func lockedItem(tx *gorm.DB, userID, name string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND name = ?", userID, name)
}

func (g *GormAdapter) DeleteItem(ctx context.Context, userID, name string) error {
	return g.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&PantryItem{}).Error
}

func (g *GormAdapter) DeleteScope(ctx context.Context, userID string) error {
	return g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&PantryItem{}).Error
}
