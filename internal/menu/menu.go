// Package menu loads the salon's course catalog.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCourse is returned when a course name is missing or not in the catalog.
	ErrUnknownCourse = errors.New("menu: unknown course")
	// ErrInvalidItem marks a catalog entry that violates duration/price bounds.
	ErrInvalidItem = errors.New("menu: invalid item")
)

// Item is an immutable catalog entry.
type Item struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	PriceYen        int    `json:"priceYen"`
}

// Validate enforces a non-empty name, positive duration and non-negative price.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidItem)
	}
	if i.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %q duration must be positive", ErrInvalidItem, i.Name)
	}
	if i.PriceYen < 0 {
		return fmt.Errorf("%w: %q price must not be negative", ErrInvalidItem, i.Name)
	}
	return nil
}

// Source returns the current catalog entries.
type Source interface {
	List(ctx context.Context) ([]Item, error)
}

// DefaultItems is served when the configured source cannot be reached.
func DefaultItems() []Item {
	return []Item{
		{Name: "ハンドケア", DurationMinutes: 60, PriceYen: 5000},
		{Name: "ジェルネイル", DurationMinutes: 90, PriceYen: 8000},
		{Name: "スカルプチュア", DurationMinutes: 120, PriceYen: 12000},
	}
}

// StaticSource serves a fixed list.
type StaticSource struct {
	items []Item
}

// NewStaticSource copies items; nil selects DefaultItems.
func NewStaticSource(items []Item) *StaticSource {
	if items == nil {
		items = DefaultItems()
	}
	return &StaticSource{items: append([]Item(nil), items...)}
}

func (s *StaticSource) List(ctx context.Context) ([]Item, error) {
	return append([]Item(nil), s.items...), nil
}

// Catalog is a read-only view over a loaded menu.
type Catalog struct {
	items []Item
}

// NewCatalog keeps the valid entries of items in order.
func NewCatalog(items []Item) Catalog {
	valid := make([]Item, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Validate() == nil {
			valid = append(valid, item)
		}
	}
	return Catalog{items: valid}
}

// Items returns a copy of the entries, never nil.
func (c Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Empty reports whether the catalog has no bookable course.
func (c Catalog) Empty() bool {
	return len(c.items) == 0
}

// Find looks a course up by exact (trimmed) name.
func (c Catalog) Find(name string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("%w: course name required", ErrUnknownCourse)
	}
	for _, item := range c.items {
		if item.Name == name {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %q", ErrUnknownCourse, name)
}
