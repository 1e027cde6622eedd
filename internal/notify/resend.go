package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tbourn/go-shelter-backend/internal/config"
)

// DefaultResendBaseURL is the public Resend API endpoint.
const DefaultResendBaseURL = "https://api.resend.com"

// ResendTransport sends mail through the Resend HTTP API.
type ResendTransport struct {
	apiKey  string
	baseURL string
	from    string
	client  *http.Client
}

// NewResendTransport builds a transport for apiKey. An empty baseURL uses
// DefaultResendBaseURL; a nil client uses http.DefaultClient.
func NewResendTransport(apiKey, baseURL, from string, client *http.Client) *ResendTransport {
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ResendTransport{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		from:    from,
		client:  client,
	}
}

// Name implements Transport.
func (t *ResendTransport) Name() string { return config.TransportResend }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send implements Transport.
func (t *ResendTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	body, err := json.Marshal(resendRequest{
		From:    t.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr resendError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || strings.TrimSpace(apiErr.Message) == "" {
			return Receipt{}, fmt.Errorf("resend request failed with status %d", resp.StatusCode)
		}
		return Receipt{}, fmt.Errorf("resend request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(apiErr.Message))
	}

	var out resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Receipt{}, errors.New("resend response could not be decoded")
	}
	return Receipt{Transport: t.Name(), ID: out.ID}, nil
}
