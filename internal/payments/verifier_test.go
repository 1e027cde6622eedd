package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

var succeededPayload = []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","created":1700000000,` +
	`"data":{"object":{"id":"pi_1","amount":2500,"currency":"usd","metadata":{"donor_email":"a@b.com","donor_name":"A"}}}}`)

func TestVerify_ValidSignature(t *testing.T) {
	v := NewVerifier(testSecret, 0)
	header := buildStripeSignatureHeader(testSecret, succeededPayload, time.Now().Unix())

	evt, err := v.Verify(succeededPayload, header)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if evt.ID != "evt_1" || evt.Type != EventPaymentSucceeded {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Created.Unix() != 1700000000 {
		t.Fatalf("created not decoded: %v", evt.Created)
	}
	pi, err := ParsePaymentIntent(evt.Object)
	if err != nil || pi.ID != "pi_1" || pi.Amount != 2500 {
		t.Fatalf("data.object not carried through: pi=%+v err=%v", pi, err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	now := time.Now().Unix()
	cases := []struct {
		name    string
		secret  string
		payload []byte
		header  string
		want    error
	}{
		{"no secret", "", succeededPayload, buildStripeSignatureHeader(testSecret, succeededPayload, now), ErrSecretNotConfigured},
		{"no header", testSecret, succeededPayload, "", ErrMissingSignature},
		{"malformed header", testSecret, succeededPayload, "garbage", ErrInvalidSignature},
		{"wrong secret", testSecret, succeededPayload, buildStripeSignatureHeader("whsec_other", succeededPayload, now), ErrInvalidSignature},
		{"tampered body", testSecret, append([]byte(nil), succeededPayload[:len(succeededPayload)-1]...), buildStripeSignatureHeader(testSecret, succeededPayload, now), ErrInvalidSignature},
		{"too old", testSecret, succeededPayload, buildStripeSignatureHeader(testSecret, succeededPayload, now-3600), ErrInvalidSignature},
		{"not json", testSecret, []byte("hello"), buildStripeSignatureHeader(testSecret, []byte("hello"), now), ErrInvalidPayload},
		{"no type", testSecret, []byte(`{"id":"evt_x"}`), buildStripeSignatureHeader(testSecret, []byte(`{"id":"evt_x"}`), now), ErrInvalidPayload},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVerifier(tc.secret, 5*time.Minute).Verify(tc.payload, tc.header)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerify_ToleranceIsConfigurable(t *testing.T) {
	ts := time.Now().Add(-10 * time.Minute).Unix()
	header := buildStripeSignatureHeader(testSecret, succeededPayload, ts)
	if _, err := NewVerifier(testSecret, time.Hour).Verify(succeededPayload, header); err != nil {
		t.Fatalf("a wide tolerance should accept a 10m old delivery: %v", err)
	}
}

func TestVerifier_Configured(t *testing.T) {
	if NewVerifier("  ", 0).Configured() {
		t.Fatalf("blank secret must not count as configured")
	}
	var nilV *Verifier
	if nilV.Configured() {
		t.Fatalf("nil verifier must not be configured")
	}
}
