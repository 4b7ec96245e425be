package domain

import (
	"errors"
	"testing"
)

func TestDecodeMessageRequiresEnvelope(t *testing.T) {
	t.Parallel()

	_, err := DecodeMessage(map[string]any{"foo": "bar"})
	if !errors.Is(err, ErrMissingEnvelope) {
		t.Fatalf("expected ErrMissingEnvelope, got %v", err)
	}

	_, err = DecodeMessage(map[string]any{"aps": map[string]any{"title": "t"}})
	if !errors.Is(err, ErrMissingHash) {
		t.Fatalf("expected ErrMissingHash, got %v", err)
	}
}

func TestDecodeMessageFields(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"aps": map[string]any{
			"message-hash": "h1",
			"title":        "  Sale  ",
			"body":         "half off",
			"image":        "https://img.example.com/p.png",
			"contact-id":   "c1",
			"mailing-id":   "42",
			"device-id":    float64(7),
			"latitude":     "41.15",
			"longitude":    -8.61,
			"radius":       "500",
			"duration":     "600000",
			"time-start":   "09:00",
			"time-end":     "18:00",
		},
	}

	message, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if message.Data.MessageHash != "h1" || message.Notification.Title != "Sale" {
		t.Fatalf("unexpected decode: %+v", message)
	}
	if message.Data.MailingID != 42 || message.Data.DeviceID != 7 {
		t.Fatalf("numeric fields must accept string and number forms: %+v", message.Data)
	}
	if message.Data.Geo.Latitude != 41.15 || message.Data.Geo.Longitude != -8.61 || message.Data.Geo.Radius != 500 {
		t.Fatalf("unexpected geofence: %+v", message.Data.Geo)
	}
	if message.Data.Geo.DurationMS != 600000 {
		t.Fatalf("unexpected duration: %d", message.Data.Geo.DurationMS)
	}
	if !message.IsGeo() {
		t.Fatal("message with complete geofence must be geo")
	}
	if message.Data.OS != "ios" {
		t.Fatalf("unexpected os: %q", message.Data.OS)
	}
}

func TestDecodeMessageActions(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"aps": map[string]any{
			"message-hash": "h1",
			"actions":      `{"type":"deeplink","text":"Open","url":"app://deal","text-cancel":"Dismiss"}`,
		},
	}

	message, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !message.IsActionable() {
		t.Fatalf("expected actionable message, got %+v", message.Data.Actions)
	}
	if message.Data.Actions.Type != ActionTypeDeepLink || message.Data.Actions.URL != "app://deal" {
		t.Fatalf("unexpected actions: %+v", message.Data.Actions)
	}
}

func TestDecodeMessageIgnoresMalformedActions(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"aps": map[string]any{
			"message-hash": "h1",
			"actions":      "{not json",
		},
	}

	message, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if message.IsActionable() {
		t.Fatalf("malformed actions must decode to none, got %+v", message.Data.Actions)
	}
}

func TestDecodeMessageJSON(t *testing.T) {
	t.Parallel()

	if _, err := DecodeMessageJSON([]byte("{broken")); err == nil {
		t.Fatal("expected decode error")
	}

	message, err := DecodeMessageJSON([]byte(`{"aps":{"message-hash":"h2","title":"t","body":"b"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if message.Data.MessageHash != "h2" || message.IsGeo() {
		t.Fatalf("unexpected message: %+v", message)
	}
}
