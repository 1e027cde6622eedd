package payments

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PaymentIntent is the subset of a provider payment intent used to record
// a donation.
type PaymentIntent struct {
	ID             string          `json:"id"`
	Amount         int64           `json:"amount"`
	AmountReceived int64           `json:"amount_received"`
	Currency       string          `json:"currency"`
	Customer       json.RawMessage `json:"customer"`
	ReceiptEmail   string          `json:"receipt_email"`
	Metadata       map[string]any  `json:"metadata"`
}

type expandedCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ParsePaymentIntent decodes data.object of a payment_intent event.
func ParsePaymentIntent(raw json.RawMessage) (*PaymentIntent, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrInvalidPayload
	}
	var pi PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, ErrInvalidPayload
	}
	pi.ID = strings.TrimSpace(pi.ID)
	if pi.ID == "" {
		return nil, ErrInvalidPayload
	}
	return &pi, nil
}

// MinorAmount returns the captured amount in minor units, preferring
// amount_received when the provider reports it.
func (p *PaymentIntent) MinorAmount() int64 {
	if p.AmountReceived > 0 {
		return p.AmountReceived
	}
	return p.Amount
}

// CustomerID returns the customer reference, whether it was sent as a
// plain id or as an expanded object.
func (p *PaymentIntent) CustomerID() string {
	id, _ := p.customer()
	return id
}

// CustomerEmail returns the email of an expanded customer object, if any.
func (p *PaymentIntent) CustomerEmail() string {
	_, email := p.customer()
	return email
}

func (p *PaymentIntent) customer() (id, email string) {
	raw := bytes.TrimSpace(p.Customer)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), ""
	}
	var c expandedCustomer
	if err := json.Unmarshal(raw, &c); err == nil {
		return strings.TrimSpace(c.ID), strings.TrimSpace(c.Email)
	}
	return "", ""
}

// Meta returns the first non-empty metadata value among keys.
func (p *PaymentIntent) Meta(keys ...string) string {
	for _, k := range keys {
		if v := readMetadataValue(p.Metadata, k); v != "" {
			return v
		}
	}
	return ""
}

// MetaBool interprets a metadata value as a flag ("true", "1", "yes").
func (p *PaymentIntent) MetaBool(keys ...string) bool {
	switch strings.ToLower(p.Meta(keys...)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case bool:
		return strconv.FormatBool(cast)
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case json.Number:
		return cast.String()
	}
	return ""
}
