// Package gworkspace holds the Google Workspace clients shared by the menu,
// ledger, calendar and attachment adapters.
package gworkspace

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ClientOptions authenticates with a service-account key file when one is
// configured and falls back to application default credentials otherwise.
func ClientOptions(credentialsFile string, scopes ...string) []option.ClientOption {
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	if len(scopes) > 0 {
		opts = append(opts, option.WithScopes(scopes...))
	}
	return opts
}

// Sheets reads and appends spreadsheet rows.
type Sheets struct {
	svc *sheets.Service
}

// NewSheets builds a Sheets client; opts usually come from ClientOptions.
func NewSheets(ctx context.Context, opts ...option.ClientOption) (*Sheets, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gworkspace: sheets client: %w", err)
	}
	return &Sheets{svc: svc}, nil
}

// ReadValues returns the unformatted cell values in readRange.
func (s *Sheets) ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gworkspace: read %s: %w", readRange, err)
	}
	return resp.Values, nil
}

// AppendRow inserts row after the last non-empty row of tableRange.
func (s *Sheets) AppendRow(ctx context.Context, spreadsheetID, tableRange string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, tableRange, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("gworkspace: append %s: %w", tableRange, err)
	}
	return nil
}

// WriteRow overwrites the cells starting at writeRange with row.
func (s *Sheets) WriteRow(ctx context.Context, spreadsheetID, writeRange string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("gworkspace: write %s: %w", writeRange, err)
	}
	return nil
}
