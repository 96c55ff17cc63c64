package menu

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// ValuesReader reads a cell range as rows of unformatted values.
type ValuesReader interface {
	ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}

// SheetsSource reads the menu from a spreadsheet tab laid out as
// name | duration minutes | price yen, with a header in row 1.
type SheetsSource struct {
	reader        ValuesReader
	spreadsheetID string
	sheetName     string
	logger        *logging.Logger
}

// NewSheetsSource builds a spreadsheet-backed menu source.
func NewSheetsSource(reader ValuesReader, spreadsheetID, sheetName string, logger *logging.Logger) *SheetsSource {
	if reader == nil {
		panic("menu: values reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsSource{reader: reader, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}
}

func (s *SheetsSource) List(ctx context.Context) ([]Item, error) {
	readRange := fmt.Sprintf("'%s'!A2:C", s.sheetName)
	rows, err := s.reader.ReadValues(ctx, s.spreadsheetID, readRange)
	if err != nil {
		return nil, fmt.Errorf("menu: read sheet %s: %w", s.sheetName, err)
	}

	items := make([]Item, 0, len(rows))
	for i, row := range rows {
		item, ok := parseRow(row)
		if !ok {
			s.logger.Debug("menu: skipping invalid sheet row", "row", i+2)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func parseRow(row []any) (Item, bool) {
	if len(row) < 3 {
		return Item{}, false
	}
	name := strings.TrimSpace(fmt.Sprint(row[0]))
	duration, ok := wholeNumber(row[1])
	if !ok {
		return Item{}, false
	}
	price, ok := wholeNumber(row[2])
	if !ok {
		return Item{}, false
	}
	item := Item{Name: name, DurationMinutes: duration, PriceYen: price}
	if item.Validate() != nil {
		return Item{}, false
	}
	return item, true
}

func wholeNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case string:
		cleaned := strings.NewReplacer(",", "", "円", "", "¥", "").Replace(strings.TrimSpace(n))
		parsed, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
