package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const sheetTimeLayout = "2006/01/02 15:04"

// Header is the fixed column order of the ledger tab.
var Header = []string{
	"予約日時", "終了日時", "お名前", "コース名", "オフ有無", "長さ出し本数",
	"価格", "追加料金", "担当者指名", "指名担当者", "MENU種別", "電話番号",
	"メールアドレス", "顧客区分", "登録日時", "デザイン画像URL", "指名料", "合計金額",
}

// SheetWriter is the subset of the Sheets client the ledger needs.
type SheetWriter interface {
	ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
	AppendRow(ctx context.Context, spreadsheetID, tableRange string, row []any) error
	WriteRow(ctx context.Context, spreadsheetID, writeRange string, row []any) error
}

// Sheets appends one row per reservation to a spreadsheet tab and makes sure
// the header row is present before the first append.
type Sheets struct {
	client        SheetWriter
	spreadsheetID string
	sheetName     string
	loc           *time.Location
	headerOK      atomic.Bool
}

func NewSheets(client SheetWriter, spreadsheetID, sheetName string, loc *time.Location) *Sheets {
	if client == nil {
		panic("ledger: sheet client required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Sheets{client: client, spreadsheetID: spreadsheetID, sheetName: sheetName, loc: loc}
}

func (s *Sheets) Append(ctx context.Context, rec Record) error {
	if err := s.ensureHeader(ctx); err != nil {
		return err
	}
	tableRange := fmt.Sprintf("'%s'!A:%s", s.sheetName, columnLetter(len(Header)))
	if err := s.client.AppendRow(ctx, s.spreadsheetID, tableRange, s.row(rec)); err != nil {
		return fmt.Errorf("ledger: append row: %w", err)
	}
	return nil
}

func (s *Sheets) ensureHeader(ctx context.Context) error {
	if s.headerOK.Load() {
		return nil
	}
	headerRange := fmt.Sprintf("'%s'!A1:%s1", s.sheetName, columnLetter(len(Header)))
	rows, err := s.client.ReadValues(ctx, s.spreadsheetID, headerRange)
	if err != nil {
		return fmt.Errorf("ledger: read header: %w", err)
	}
	if len(rows) == 0 || !headerMatches(rows[0]) {
		row := make([]any, len(Header))
		for i, h := range Header {
			row[i] = h
		}
		if err := s.client.WriteRow(ctx, s.spreadsheetID, headerRange, row); err != nil {
			return fmt.Errorf("ledger: write header: %w", err)
		}
	}
	s.headerOK.Store(true)
	return nil
}

func headerMatches(row []any) bool {
	if len(row) < len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(fmt.Sprint(row[i])) != h {
			return false
		}
	}
	return true
}

// row renders rec in Header order.
func (s *Sheets) row(rec Record) []any {
	selected := ""
	if rec.StaffAssignment {
		selected = rec.SelectedStaff
	}
	return []any{
		rec.Start.In(s.loc).Format(sheetTimeLayout),
		rec.End.In(s.loc).Format(sheetTimeLayout),
		rec.CustomerName,
		rec.CourseName,
		yesNo(rec.NailOff),
		rec.LengthExtensionCount,
		rec.Breakdown.BasePriceYen,
		rec.Breakdown.LengthExtensionYen,
		yesNo(rec.StaffAssignment),
		selected,
		rec.MenuType,
		// Leading apostrophe keeps Sheets from dropping the phone number's leading zero.
		"'" + rec.Phone,
		rec.Email,
		rec.VisitStatus,
		rec.CreatedAt.In(s.loc).Format(sheetTimeLayout),
		rec.AttachmentURL,
		rec.Breakdown.StaffAssignmentYen,
		rec.Breakdown.TotalYen,
	}
}

func yesNo(v bool) string {
	if v {
		return "あり"
	}
	return "なし"
}

// columnLetter maps 1 to A, 26 to Z and 27 to AA.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
