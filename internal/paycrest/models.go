package paycrest

// Webhook event names sent by the provider.
const (
	EventOrderPending  = "payment_order.pending"
	EventOrderSettled  = "payment_order.settled"
	EventOrderExpired  = "payment_order.expired"
	EventOrderRefunded = "payment_order.refunded"
)

// WebhookNotification is the envelope of a signed provider callback.
type WebhookNotification struct {
	Event string       `json:"event"`
	Data  OrderPayload `json:"data"`
}

// OrderPayload carries the provider's view of a payment order. Money fields
// arrive as decimal strings.
type OrderPayload struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Rate        string    `json:"rate"`
	FromAddress string    `json:"fromAddress"` // merchant wallet
	Status      string    `json:"status"`
	Recipient   Recipient `json:"recipient"`
}

type Recipient struct {
	Currency          string `json:"currency"`
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"accountIdentifier"`
	AccountName       string `json:"accountName"`
}

// API request/response structures

type CreateOrderRequest struct {
	Amount    string    `json:"amount"`
	Rate      string    `json:"rate"`
	Network   string    `json:"network"`
	Token     string    `json:"token"`
	Recipient Recipient `json:"recipient"`
	Reference string    `json:"reference,omitempty"`
	ReturnURL string    `json:"returnAddress,omitempty"`
}

type OrderResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    OrderPayload `json:"data"`
}

// eventStatus maps a webhook event name to the local order status.
// Unknown events map to "".
func eventStatus(event string) string {
	switch event {
	case EventOrderPending:
		return "pending"
	case EventOrderSettled:
		return "settled"
	case EventOrderExpired:
		return "expired"
	case EventOrderRefunded:
		return "refunded"
	}
	return ""
}
