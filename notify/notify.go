// Package notify hands prescription events to humans over an external
// channel. Delivery is best effort: the caller never waits on it and a
// failure never rolls back the event that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

type Message struct {
	RecordID  int64  `json:"record_id"`
	DeepLink  string `json:"deep_link"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// WhatsApp posts the message to a relay webhook together with a wa.me
// deep link the pharmacist can answer from. With no webhook configured
// it only logs, which keeps development setups working.
type WhatsApp struct {
	// Number is the pharmacy's WhatsApp MSISDN, digits only.
	Number     string
	WebhookURL string
	Client     *http.Client
}

func (w *WhatsApp) Notify(ctx context.Context, msg Message) error {
	payload := struct {
		Message
		WhatsAppLink string `json:"whatsapp_link"`
	}{
		Message:      msg,
		WhatsAppLink: w.deepLink(msg.Text),
	}

	if w.WebhookURL == "" {
		logrus.WithFields(logrus.Fields{
			"record_id": msg.RecordID,
			"link":      payload.WhatsAppLink,
		}).Info("notification webhook not configured, skipping delivery")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.WebhookURL,
		bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %s", resp.Status)
	}

	return nil
}

func (w *WhatsApp) deepLink(text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", w.Number, url.QueryEscape(text))
}
