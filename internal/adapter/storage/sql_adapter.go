package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

// Dialect holds the statements that differ between SQL backends.
// Every statement takes its arguments in the same order on every dialect.
type Dialect struct {
	Name        string
	DriverName  string
	schema      string
	selectOne   string
	selectAll   string
	selectLock  string
	insert      string
	increment   string
	upsert      string
	deleteOne   string
	deleteScope string
	isDuplicate func(error) bool
}

var MySQLDialect = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	schema: `
		CREATE TABLE IF NOT EXISTS pantry_items (
			user_id    VARCHAR(64)  NOT NULL,
			name       VARCHAR(128) NOT NULL,
			quantity   INT          NOT NULL,
			created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, name),
			CHECK (quantity > 0)
		)`,
	selectOne:  `SELECT name, quantity, updated_at FROM pantry_items WHERE user_id = ? AND name = ?`,
	selectAll:  `SELECT name, quantity, updated_at FROM pantry_items WHERE user_id = ?`,
	selectLock: `SELECT quantity FROM pantry_items WHERE user_id = ? AND name = ? FOR UPDATE`,
	insert:     `INSERT INTO pantry_items (user_id, name, quantity) VALUES (?, ?, ?)`,
	increment: `
		UPDATE pantry_items
		SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND name = ?`,
	upsert: `
		INSERT INTO pantry_items (user_id, name, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = CURRENT_TIMESTAMP`,
	deleteOne:   `DELETE FROM pantry_items WHERE user_id = ? AND name = ?`,
	deleteScope: `DELETE FROM pantry_items WHERE user_id = ?`,
	isDuplicate: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1062
	},
}

var PostgresDialect = Dialect{
	Name:       "postgres",
	DriverName: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS pantry_items (
			user_id    VARCHAR(64)  NOT NULL,
			name       VARCHAR(128) NOT NULL,
			quantity   INTEGER      NOT NULL CHECK (quantity > 0),
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, name)
		)`,
	selectOne:  `SELECT name, quantity, updated_at FROM pantry_items WHERE user_id = $1 AND name = $2`,
	selectAll:  `SELECT name, quantity, updated_at FROM pantry_items WHERE user_id = $1`,
	selectLock: `SELECT quantity FROM pantry_items WHERE user_id = $1 AND name = $2 FOR UPDATE`,
	insert:     `INSERT INTO pantry_items (user_id, name, quantity) VALUES ($1, $2, $3)`,
	increment: `
		UPDATE pantry_items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE user_id = $2 AND name = $3`,
	upsert: `
		INSERT INTO pantry_items (user_id, name, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name)
		DO UPDATE SET quantity = pantry_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
	deleteOne:   `DELETE FROM pantry_items WHERE user_id = $1 AND name = $2`,
	deleteScope: `DELETE FROM pantry_items WHERE user_id = $1`,
	isDuplicate: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// Migrate creates the pantry_items table if it does not exist.
func (s *SQLAdapter) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("create pantry_items: %w", err)
	}
	return nil
}

func (s *SQLAdapter) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, s.dialect.selectOne, userID, name).
		Scan(&item.Name, &item.Quantity, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (s *SQLAdapter) GetAllItems(ctx context.Context, userID string) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.selectAll, userID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.Name, &item.Quantity, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *SQLAdapter) CreateItem(ctx context.Context, userID, name string, quantity int) error {
	_, err := s.db.ExecContext(ctx, s.dialect.insert, userID, name, quantity)
	if err != nil && s.dialect.isDuplicate(err) {
		return fmt.Errorf("item %q: %w", name, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *SQLAdapter) IncrementItem(ctx context.Context, userID, name string, delta int) error {
	result, err := s.db.ExecContext(ctx, s.dialect.increment, delta, userID, name)
	if err != nil {
		return fmt.Errorf("increment item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment item: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLAdapter) AddQuantity(ctx context.Context, userID, name string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta must be positive", domain.ErrInvalidArgument)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, userID, name, delta); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// TakeQuantity locks the row, then decrements or deletes it in one transaction.
func (s *SQLAdapter) TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, s.dialect.selectLock, userID, name).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lock item: %w", err)
	}

	remaining := current - amount
	if remaining <= 0 {
		remaining = 0
		_, err = tx.ExecContext(ctx, s.dialect.deleteOne, userID, name)
	} else {
		_, err = tx.ExecContext(ctx, s.dialect.increment, -amount, userID, name)
	}
	if err != nil {
		return 0, fmt.Errorf("update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return remaining, nil
}

func (s *SQLAdapter) DeleteItem(ctx context.Context, userID, name string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.deleteOne, userID, name); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *SQLAdapter) DeleteScope(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.deleteScope, userID); err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	return nil
}
