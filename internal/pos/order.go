package pos

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos-service/internal/domain"
)

// DefaultQRBaseURL renders the payment payload as a QR image.
const DefaultQRBaseURL = "https://api.qrserver.com/v1/create-qr-code/"

// now is replaced in tests.
var now = time.Now

// Finalize confirms payment for the current cart: it captures the total and
// only then clears the ledger. Calling it on an empty ledger yields a zero
// receipt.
func Finalize(l *Ledger) domain.Receipt {
	b := l.Breakdown()
	l.Clear()
	return domain.Receipt{
		Total:  b.Gross,
		Net:    b.Net,
		Tax:    b.Tax,
		PaidAt: now().UTC(),
	}
}

// PaymentQR is the payload and image URL shown to the customer before the
// cashier confirms payment.
type PaymentQR struct {
	Payload  string `json:"payload"`
	ImageURL string `json:"image_url"`
}

// NewPaymentQR builds the PromptPay bill payload for total. An empty baseURL
// falls back to DefaultQRBaseURL.
func NewPaymentQR(total decimal.Decimal, baseURL string) PaymentQR {
	if baseURL == "" {
		baseURL = DefaultQRBaseURL
	}
	payload := "PROMPTPAY:BILL:" + total.StringFixed(2)
	q := url.Values{}
	q.Set("size", "300x300")
	q.Set("data", payload)
	return PaymentQR{
		Payload:  payload,
		ImageURL: baseURL + "?" + q.Encode(),
	}
}
