package notify

import (
	"html"
	"strconv"
	"strings"
	"text/template"
	"time"
)

var weekdaysJA = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// FormatStart renders t as 2026年11月02日（月）13:00.
func FormatStart(t time.Time) string {
	return t.Format("2006年01月02日") + "（" + weekdaysJA[t.Weekday()] + "）" + t.Format("15:04")
}

// Yen renders n with thousands separators and a 円 suffix.
func Yen(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "円"
	if neg {
		return "-" + out
	}
	return out
}

func plainToHTML(body string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
}

var templateFuncs = template.FuncMap{
	"yen":   Yen,
	"start": FormatStart,
}

var customerTemplate = template.Must(template.New("customer").Funcs(templateFuncs).Parse(
	`{{.R.CustomerName}} 様

この度は、数あるネイルサロンの中から {{.Salon}} をお選びいただき誠にありがとうございます。
下記の通り、ご予約を確定させていただきましたのでご確認ください。

────────────────────
【ご予約内容】
ご予約日時：{{start .Start}}〜
MENU：{{.R.MenuType}}
コース名：{{.R.CourseName}}　{{yen .R.Breakdown.BasePriceYen}}
{{- if .Options}}
オプション：{{range $i, $o := .Options}}{{if $i}}
           {{end}}{{$o}}{{end}}
{{- else}}
オプション：なし
{{- end}}
合計金額：{{yen .R.Breakdown.TotalYen}}
────────────────────
{{- if .Policies}}

{{.Policies}}

────────────────────
{{- end}}

当日のご来店を心よりお待ちしております。
{{- if .Footer}}

{{.Footer}}
{{- end}}
`))

var salonTemplate = template.Must(template.New("salon").Funcs(templateFuncs).Parse(
	`新しい予約が入りました。

────────────────────
【予約者情報】
お名前: {{.R.CustomerName}}
電話番号: {{.R.Phone}}
メールアドレス: {{.R.Email}}
顧客区分: {{.R.VisitStatus}}

【予約内容】
予約日時: {{start .Start}}〜
MENU: {{.R.MenuType}}
コース: {{.R.CourseName}} ({{.R.DurationMinutes}}分)
基本価格: {{yen .R.Breakdown.BasePriceYen}}

【オプション】
{{- range .SalonOptions}}
・{{.}}
{{- else}}
なし
{{- end}}
{{- if .R.StaffAssignment}}
担当者指名: {{.R.SelectedStaff}}
{{- end}}

【料金内訳】
基本料金: {{yen .R.Breakdown.BasePriceYen}}
{{- if gt .R.Breakdown.LengthExtensionYen 0}}
長さ出し追加料金: {{yen .R.Breakdown.LengthExtensionYen}}
{{- end}}
{{- if gt .R.Breakdown.StaffAssignmentYen 0}}
担当者指名料金: {{yen .R.Breakdown.StaffAssignmentYen}}
{{- end}}
合計金額: {{yen .R.Breakdown.TotalYen}}
{{- if .R.AttachmentURL}}

【その他】
デザイン画像: {{.R.AttachmentURL}}
{{- end}}
────────────────────

予約ID: {{.R.ReservationID}}
このメールは自動送信されています。
`))
