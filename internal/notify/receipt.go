package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ReceiptData is everything printed on a donation receipt.
type ReceiptData struct {
	OrgName       string
	TaxID         string
	DonorName     string
	DonorEmail    string
	Amount        decimal.Decimal
	Currency      string
	DonationType  string
	TransactionID string
	Date          time.Time
	IsEmergency   bool
}

type receiptView struct {
	ReceiptData
	AmountText string
	TypeText   string
	DateText   string
}

const receiptHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Thank you, {{.DonorName}}!</h2>
<p>Your {{.TypeText}} donation to {{.OrgName}} has been received.</p>
<table cellpadding="4">
<tr><td>Amount</td><td><strong>{{.AmountText}} {{.Currency}}</strong></td></tr>
<tr><td>Donation type</td><td>{{.TypeText}}</td></tr>
<tr><td>Transaction</td><td>{{.TransactionID}}</td></tr>
<tr><td>Date</td><td>{{.DateText}}</td></tr>
{{- if .TaxID}}
<tr><td>Tax ID</td><td>{{.TaxID}}</td></tr>
{{- end}}
</table>
{{- if .IsEmergency}}
<p>Your gift goes to our emergency appeal and will be used where it is needed most urgently.</p>
{{- end}}
<p>Please keep this email as your donation receipt.</p>
<p>{{.OrgName}}</p>
</body></html>
`

const receiptText = `Thank you, {{.DonorName}}!

Your {{.TypeText}} donation to {{.OrgName}} has been received.

Amount:        {{.AmountText}} {{.Currency}}
Donation type: {{.TypeText}}
Transaction:   {{.TransactionID}}
Date:          {{.DateText}}
{{- if .TaxID}}
Tax ID:        {{.TaxID}}
{{- end}}
{{if .IsEmergency}}
Your gift goes to our emergency appeal and will be used where it is needed most urgently.
{{end}}
Please keep this email as your donation receipt.

{{.OrgName}}
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("receipt.html").Parse(receiptHTML))
	textTmpl = texttemplate.Must(texttemplate.New("receipt.txt").Parse(receiptText))
)

// RenderReceipt renders the receipt email for d, addressed to d.DonorEmail.
func RenderReceipt(d ReceiptData) (Message, error) {
	if d.Date.IsZero() {
		d.Date = time.Now().UTC()
	}
	v := receiptView{
		ReceiptData: d,
		AmountText:  formatAmount(d.Amount, d.Currency),
		TypeText:    cases.Title(language.English).String(d.DonationType),
		DateText:    d.Date.UTC().Format("January 2, 2006"),
	}

	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, v); err != nil {
		return Message{}, err
	}
	if err := textTmpl.Execute(&t, v); err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.DonorEmail,
		Subject: "Thank you for your donation to " + d.OrgName,
		HTML:    h.String(),
		Text:    t.String(),
	}, nil
}

// formatAmount prints amount with digit grouping and the currency's scale.
func formatAmount(amount decimal.Decimal, code string) string {
	scale := 2
	if u, err := currency.ParseISO(strings.ToUpper(code)); err == nil {
		scale, _ = currency.Standard.Rounding(u)
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(scale)))
}
