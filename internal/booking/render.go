package booking

import (
	"fmt"
	"strings"

	"github.com/wolfman30/salon-booking/internal/pricing"
)

// eventTitle renders "[予約] 【初回】Name様 (HAND (+オフ/長さ出し3本))".
func eventTitle(req Request) string {
	visit := ""
	if req.VisitStatus == VisitFirst {
		visit = "【初回】"
	}
	var opts []string
	if req.NailOff {
		opts = append(opts, "オフ")
	}
	if req.LengthExtensionCount > 0 {
		opts = append(opts, fmt.Sprintf("長さ出し%d本", req.LengthExtensionCount))
	}
	optTitle := ""
	if len(opts) > 0 {
		optTitle = " (+" + strings.Join(opts, "/") + ")"
	}
	return fmt.Sprintf("[予約] %s%s様 (%s%s)", visit, req.Name, req.MenuType, optTitle)
}

func eventDescription(req Request, quote pricing.Quote, attachmentURL, reservationID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "コース: %s (%d分)\n", quote.CourseName, quote.TotalMinutes)
	fmt.Fprintf(&b, "オフ: %s\n", yesNo(req.NailOff))
	if req.LengthExtensionCount > 0 {
		fmt.Fprintf(&b, "長さ出し: %d本\n", req.LengthExtensionCount)
	}
	if req.StaffAssignment {
		fmt.Fprintf(&b, "担当者指名: %s\n", req.SelectedStaff)
	}
	fmt.Fprintf(&b, "価格: %d円\n", quote.Breakdown.BasePriceYen)
	if quote.Breakdown.LengthExtensionYen > 0 {
		fmt.Fprintf(&b, "追加料金(長さ出し): %d円\n", quote.Breakdown.LengthExtensionYen)
	}
	if quote.Breakdown.StaffAssignmentYen > 0 {
		fmt.Fprintf(&b, "追加料金(担当者指名): %d円\n", quote.Breakdown.StaffAssignmentYen)
	}
	fmt.Fprintf(&b, "合計: %d円\n", quote.Breakdown.TotalYen)
	fmt.Fprintf(&b, "電話番号: %s\nメールアドレス: %s\n顧客区分: %s\n", req.Phone, req.Email, req.VisitStatus)
	fmt.Fprintf(&b, "予約ID: %s", reservationID)
	if attachmentURL != "" {
		fmt.Fprintf(&b, "\n\n添付されたデザイン画像:\n%s", attachmentURL)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "あり"
	}
	return "なし"
}
