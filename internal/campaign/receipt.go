package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/doozitravel/gateway/internal/reconcile"
)

// Receipt is what the business keeps after filing a campaign.
type Receipt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	Submission
}

var (
	receiptID   = reconcile.Aliases([]string{"data", ""}, "id", "_id", "campaign_id")
	receiptTime = reconcile.Aliases([]string{"data", ""}, "submittedAt", "submitted_at", "createdAt", "created_at")
)

// NewReceipt pairs the submitted payload with the id and timestamp the
// backend assigned. now stands in when the backend sent no timestamp.
func NewReceipt(body reconcile.Payload, sub Submission, now time.Time) Receipt {
	r := Receipt{Submission: sub, SubmittedAt: now.UTC()}
	r.ID, _ = reconcile.Lookup(body, receiptID, func(v any) (string, bool) {
		s, err := cast.ToStringE(v)
		return s, err == nil && s != ""
	})
	if t, ok := reconcile.Lookup(body, receiptTime, func(v any) (time.Time, bool) {
		t, err := cast.ToTimeE(v)
		return t, err == nil && !t.IsZero()
	}); ok {
		r.SubmittedAt = t.UTC()
	}
	return r
}

// DecodeReceipt reads a receipt as previously returned to the client.
func DecodeReceipt(r io.Reader) (Receipt, error) {
	var rc Receipt
	if err := json.NewDecoder(r).Decode(&rc); err != nil {
		return Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}
	return rc, nil
}

// Filename is the download name of the HTML receipt.
func (r Receipt) Filename() string {
	id := r.ID
	if id == "" {
		id = r.SubmittedAt.Format("20060102-150405")
	}
	id = strings.Map(func(c rune) rune {
		if c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return c
		}
		return -1
	}, id)
	return "doozi-campaign-receipt-" + id + ".html"
}

// Text renders the plain-text receipt used as the email fallback part.
func (r Receipt) Text() string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%-20s %s\n", label+":", value)
	}
	b.WriteString("Doozi campaign request receipt\n\n")
	line("Submission ID", orNA(r.ID))
	line("Date", r.SubmittedAt.Format(receiptTimeLayout))
	line("Business name", r.BusinessName)
	line("Category", r.BusinessCategory)
	line("Address", r.BusinessAddress)
	line("City", r.City)
	line("Country", r.Country)
	line("Contact email", r.ContactEmail)
	line("Phone", r.Phone)
	line("In-kind value", r.InKindValue)
	line("Paid compensation", r.Paid())
	line("Highlight request", strings.ReplaceAll(r.HighlightRequest, "\n", " "))
	line("Delivery by", r.DeliveryBy)
	line("Post to", r.Posts())
	line("Reuse for marketing", yesNo(r.ReuseContent))
	b.WriteString("\n" + receiptFooter + "\n")
	return b.String()
}

// HTML renders the downloadable receipt page.
func (r Receipt) HTML() (string, error) {
	var buf bytes.Buffer
	if err := r.WriteHTML(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteHTML renders the receipt page to w.
func (r Receipt) WriteHTML(w io.Writer) error {
	if err := receiptTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

// Paid is the cash compensation offered, or "Not offering".
func (r Receipt) Paid() string {
	if r.PaidCompensation == nil {
		return "Not offering"
	}
	return *r.PaidCompensation
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

const (
	receiptTimeLayout = "Jan 2, 2006 15:04 MST"
	receiptFooter     = "Doozi: travel discovery made simple. This receipt confirms your campaign request was received."
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"dash":  orDash,
	"na":    orNA,
	"yesno": yesNo,
	"oneline": func(s string) string {
		return strings.ReplaceAll(s, "\n", " ")
	},
	"when":   func(t time.Time) string { return t.Format(receiptTimeLayout) },
	"footer": func() string { return receiptFooter },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Doozi Campaign Receipt - {{.BusinessName}}</title>
  <style>
    * { box-sizing: border-box; }
    body { font-family: system-ui, -apple-system, sans-serif; max-width: 640px; margin: 0 auto; padding: 32px 24px; color: #18181B; line-height: 1.5; }
    .header { text-align: center; margin-bottom: 32px; padding-bottom: 24px; border-bottom: 2px solid #f4f4f5; }
    .logo { font-size: 24px; font-weight: 800; color: #FF4785; }
    .title { font-size: 14px; color: #71717a; text-transform: uppercase; letter-spacing: 0.05em; margin-top: 4px; }
    .section { margin-bottom: 24px; }
    .section h2 { font-size: 12px; color: #8F65F6; text-transform: uppercase; letter-spacing: 0.05em; margin: 0 0 12px 0; font-weight: 600; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f4f4f5; font-size: 14px; }
    .label { color: #71717a; }
    .value { font-weight: 500; text-align: right; max-width: 60%; }
    .footer { margin-top: 32px; padding-top: 24px; border-top: 2px solid #f4f4f5; font-size: 12px; color: #71717a; text-align: center; }
  </style>
</head>
<body>
  <div class="header">
    <div class="logo">Doozi</div>
    <div class="title">Campaign request receipt</div>
    <div class="row"><span class="label">Submission ID</span><span class="value">{{na .ID}}</span></div>
    <div class="row"><span class="label">Date</span><span class="value">{{when .SubmittedAt}}</span></div>
  </div>
  <div class="section">
    <h2>Business information</h2>
    <div class="row"><span class="label">Business name</span><span class="value">{{dash .BusinessName}}</span></div>
    <div class="row"><span class="label">Category</span><span class="value">{{dash .BusinessCategory}}</span></div>
    <div class="row"><span class="label">Address</span><span class="value">{{dash .BusinessAddress}}</span></div>
    <div class="row"><span class="label">City</span><span class="value">{{dash .City}}</span></div>
    <div class="row"><span class="label">Country</span><span class="value">{{dash .Country}}</span></div>
    <div class="row"><span class="label">Contact email</span><span class="value">{{dash .ContactEmail}}</span></div>
    <div class="row"><span class="label">Phone</span><span class="value">{{dash .Phone}}</span></div>
  </div>
  <div class="section">
    <h2>Campaign investment</h2>
    <div class="row"><span class="label">In-kind value</span><span class="value">{{dash .InKindValue}}</span></div>
    <div class="row"><span class="label">Paid compensation</span><span class="value">{{.Paid}}</span></div>
  </div>
  <div class="section">
    <h2>Content</h2>
    <div class="row"><span class="label">Highlight request</span><span class="value">{{oneline .HighlightRequest | dash}}</span></div>
    <div class="row"><span class="label">Delivery by</span><span class="value">{{dash .DeliveryBy}}</span></div>
    <div class="row"><span class="label">Post to</span><span class="value">{{.Posts}}</span></div>
    <div class="row"><span class="label">Reuse for marketing</span><span class="value">{{yesno .ReuseContent}}</span></div>
  </div>
  <div class="footer">{{footer}}</div>
</body>
</html>
`))

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
