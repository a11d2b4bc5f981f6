package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppDeliversToWebhook(t *testing.T) {
	var received struct {
		Message
		WhatsAppLink string `json:"whatsapp_link"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	w := &WhatsApp{
		Number:     "233200000000",
		WebhookURL: srv.URL,
		Client:     srv.Client(),
	}

	msg := Message{
		RecordID:  7,
		DeepLink:  "https://pharmacy.example.com/admin/prescriptions/7",
		Recipient: "kofi@example.com",
		Text:      "New prescription #7",
	}
	require.NoError(t, w.Notify(context.Background(), msg))

	assert.Equal(t, msg.RecordID, received.RecordID)
	assert.Equal(t, msg.Text, received.Text)
	assert.Equal(t,
		"https://wa.me/233200000000?text=New+prescription+%237",
		received.WhatsAppLink)
}

func TestWhatsAppWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := &WhatsApp{Number: "233200000000", WebhookURL: srv.URL, Client: srv.Client()}

	err := w.Notify(context.Background(), Message{RecordID: 1, Text: "hi"})
	assert.Error(t, err)
}

func TestWhatsAppWithoutWebhookOnlyLogs(t *testing.T) {
	w := &WhatsApp{Number: "233200000000"}

	assert.NoError(t, w.Notify(context.Background(), Message{RecordID: 1, Text: "hi"}))
}
