// Package pricing turns a course plus add-on selections into a total
// service duration and a price breakdown.
package pricing

import (
	"errors"
	"fmt"

	"github.com/wolfman30/salon-booking/internal/menu"
)

// ErrInvalidInput is returned for out-of-range add-on selections or an invalid course.
var ErrInvalidInput = errors.New("pricing: invalid input")

const (
	NailOffMinutes = 30

	MaxLengthExtensionCount = 10

	// Counts up to SmallExtensionMaxCount cost minutes per nail only.
	SmallExtensionMaxCount       = 3
	SmallExtensionMinutesPerNail = 5
	LargeExtensionMinutes        = 30
	LargeExtensionPriceYen       = 3500

	StaffAssignmentPriceYen = 400
)

// Options are the add-ons selected on top of a course.
type Options struct {
	NailOff              bool `json:"nailOff"`
	LengthExtensionCount int  `json:"lengthExtensionCount"`
	StaffAssignment      bool `json:"staffAssignment"`
}

// Breakdown itemises the price in yen.
type Breakdown struct {
	BasePriceYen       int `json:"basePriceYen"`
	LengthExtensionYen int `json:"lengthExtensionYen"`
	StaffAssignmentYen int `json:"staffAssignmentYen"`
	TotalYen           int `json:"totalYen"`
}

// Quote is the server-side result for one course and option set.
type Quote struct {
	CourseName   string    `json:"courseName"`
	TotalMinutes int       `json:"totalMinutes"`
	Breakdown    Breakdown `json:"breakdown"`
}

// ComputeDuration adds nail-off and length-extension minutes to baseMinutes.
// Staff assignment never changes the duration.
func ComputeDuration(baseMinutes int, nailOff bool, lengthExtensionCount int) (int, error) {
	if baseMinutes <= 0 {
		return 0, fmt.Errorf("%w: base duration must be positive", ErrInvalidInput)
	}
	extMinutes, _, err := lengthExtension(lengthExtensionCount)
	if err != nil {
		return 0, err
	}
	total := baseMinutes + extMinutes
	if nailOff {
		total += NailOffMinutes
	}
	return total, nil
}

// Calculate quotes item with opts applied.
func Calculate(item menu.Item, opts Options) (Quote, error) {
	if err := item.Validate(); err != nil {
		return Quote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	minutes, err := ComputeDuration(item.DurationMinutes, opts.NailOff, opts.LengthExtensionCount)
	if err != nil {
		return Quote{}, err
	}
	_, extYen, _ := lengthExtension(opts.LengthExtensionCount)

	b := Breakdown{
		BasePriceYen:       item.PriceYen,
		LengthExtensionYen: extYen,
	}
	if opts.StaffAssignment {
		b.StaffAssignmentYen = StaffAssignmentPriceYen
	}
	b.TotalYen = b.BasePriceYen + b.LengthExtensionYen + b.StaffAssignmentYen

	return Quote{CourseName: item.Name, TotalMinutes: minutes, Breakdown: b}, nil
}

// QuoteFor looks courseName up in cat and prices it.
func QuoteFor(cat menu.Catalog, courseName string, opts Options) (Quote, error) {
	item, err := cat.Find(courseName)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return Calculate(item, opts)
}

func lengthExtension(count int) (minutes, priceYen int, err error) {
	switch {
	case count < 0 || count > MaxLengthExtensionCount:
		return 0, 0, fmt.Errorf("%w: length extension count %d outside 0..%d", ErrInvalidInput, count, MaxLengthExtensionCount)
	case count == 0:
		return 0, 0, nil
	case count <= SmallExtensionMaxCount:
		return count * SmallExtensionMinutesPerNail, 0, nil
	default:
		return LargeExtensionMinutes, LargeExtensionPriceYen, nil
	}
}
