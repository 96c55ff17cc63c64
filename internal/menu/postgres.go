package menu

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads active rows of the menu_items table.
type PostgresSource struct {
	db querier
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	if pool == nil {
		panic("menu: pgx pool required")
	}
	return &PostgresSource{db: pool}
}

func newPostgresSourceWithQuerier(q querier) *PostgresSource {
	return &PostgresSource{db: q}
}

func (s *PostgresSource) List(ctx context.Context) ([]Item, error) {
	query := `
		SELECT name, duration_minutes, price_yen
		FROM menu_items
		WHERE active
		ORDER BY sort_order, name
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("menu: query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Name, &item.DurationMinutes, &item.PriceYen); err != nil {
			return nil, fmt.Errorf("menu: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("menu: iterate items: %w", err)
	}
	return items, nil
}
