package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/pos"
)

// --- Cart Handlers ---

// CartView is the cart with its VAT-inclusive totals.
type CartView struct {
	Items []domain.CartEntry `json:"items"`
	Count int                `json:"count"`
	Total decimal.Decimal    `json:"total"`
	Net   decimal.Decimal    `json:"net"`
	Tax   decimal.Decimal    `json:"tax"`
}

func cartView(l *pos.Ledger) CartView {
	b := l.Breakdown()
	return CartView{Items: l.Entries(), Count: l.Len(), Total: b.Gross, Net: b.Net, Tax: b.Tax}
}

// withLedger runs fn on the ledger of the request's session and responds
// with the resulting cart.
func (h *HTTPHandler) withLedger(w http.ResponseWriter, r *http.Request, fn func(l *pos.Ledger)) {
	var view CartView
	h.terminals.Terminal(sessionFrom(r.Context()).ID).Do(func(l *pos.Ledger) {
		if fn != nil {
			fn(l)
		}
		view = cartView(l)
	})
	respondWithJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withLedger(w, r, nil)
}

// CartItemInput adds one unit of a product.
type CartItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
}

// AddCartItem adds the product as it is in the current snapshot. Sold-out
// products are ignored and the cart is returned unchanged.
func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartItemInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	product, ok := h.catalog.Lookup(input.ProductID)
	if !ok {
		respondWithAppError(w, r, errx.WithMessage(errx.ErrStoreNotFound, "product not found"))
		return
	}
	h.withLedger(w, r, func(l *pos.Ledger) { l.Add(product) })
}

// QuantityInput moves a line quantity by Delta, never below one.
type QuantityInput struct {
	Delta int `json:"delta" validate:"required,min=-1000,max=1000"`
}

func (h *HTTPHandler) ChangeCartQuantity(w http.ResponseWriter, r *http.Request) {
	var input QuantityInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	productID := chi.URLParam(r, "productId")
	h.withLedger(w, r, func(l *pos.Ledger) { l.SetQuantityDelta(productID, input.Delta) })
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	h.withLedger(w, r, func(l *pos.Ledger) { l.Remove(productID) })
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withLedger(w, r, func(l *pos.Ledger) { l.Clear() })
}

// GetPaymentQR returns the PromptPay QR for the current total. The cart is
// left as is until Checkout.
func (h *HTTPHandler) GetPaymentQR(w http.ResponseWriter, r *http.Request) {
	var total decimal.Decimal
	var empty bool
	h.terminals.Terminal(sessionFrom(r.Context()).ID).Do(func(l *pos.Ledger) {
		total = l.Total()
		empty = l.Len() == 0
	})
	if empty {
		respondWithAppError(w, r, errx.ErrCartEmpty)
		return
	}
	qr := pos.NewPaymentQR(total, h.qrBaseURL)
	respondWithJSON(w, http.StatusOK, struct {
		Total decimal.Decimal `json:"total"`
		pos.PaymentQR
	}{Total: total, PaymentQR: qr})
}

// Checkout confirms payment: the receipt carries the total captured just
// before the cart is cleared.
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	var receipt domain.Receipt
	h.terminals.Terminal(session.ID).Do(func(l *pos.Ledger) {
		receipt = pos.Finalize(l)
	})
	logx.Info().Str("session_id", session.ID).Str("total", receipt.Total.StringFixed(2)).Msg("order paid")
	respondWithJSON(w, http.StatusOK, receipt)
}
