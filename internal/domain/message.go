package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingEnvelope indicates a payload without the aps envelope.
	ErrMissingEnvelope = errors.New("payload has no aps envelope")
	// ErrMissingHash indicates a payload without a usable message hash.
	ErrMissingHash = errors.New("payload has no message hash")
)

// Message is one decoded push payload, immutable after construction.
// Params: presentation fields and tracking/geo/action metadata.
// Returns: identity-bearing value keyed by Data.MessageHash.
type Message struct {
	Notification MessageNotification `json:"notification"`
	Data         MessageData         `json:"data"`
}

// MessageNotification carries user-visible notification content.
// Params: title, body, and optional image reference URL.
// Returns: displayable content copied verbatim into local notifications.
type MessageNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// MessageData carries tracking identifiers and optional geo/action metadata.
// Params: opaque backend identifiers plus geo and action sections.
// Returns: dispatch and telemetry context for one message.
type MessageData struct {
	OS            string         `json:"os"`
	MessageHash   string         `json:"message_hash"`
	MailingID     int64          `json:"mailing_id,omitempty"`
	ListID        int64          `json:"list_id,omitempty"`
	ContactID     string         `json:"contact_id,omitempty"`
	AccountID     int64          `json:"account_id,omitempty"`
	ApplicationID string         `json:"application_id,omitempty"`
	MessageID     int64          `json:"message_id,omitempty"`
	DeviceID      int64          `json:"device_id,omitempty"`
	Geo           MessageGeo     `json:"geo"`
	Actions       MessageActions `json:"actions"`
}

// MessageGeo describes an optional geofence attached to one message.
// Params: region center/radius, lifetime in milliseconds, and daily window bounds.
// Returns: geofence parameters; zero center+radius marks a direct message.
type MessageGeo struct {
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	DurationMS  int64   `json:"duration,omitempty"`
	PeriodStart string  `json:"period_start,omitempty"`
	PeriodEnd   string  `json:"period_end,omitempty"`
}

// MessageActions describes an optional confirm/cancel action pair.
// Params: action type, confirm label/target, and cancel label.
// Returns: action metadata decoded from the nested actions JSON string.
type MessageActions struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	TextCancel string `json:"text-cancel,omitempty"`
}

// ActionTypeDeepLink routes confirm interactions to the application deep-link callback.
const ActionTypeDeepLink = "deeplink"

// IsGeo reports whether the message must be withheld until region entry.
// Params: none.
// Returns: true when latitude, longitude, and radius are all set.
func (m Message) IsGeo() bool {
	return m.Data.Geo.Latitude != 0 && m.Data.Geo.Longitude != 0 && m.Data.Geo.Radius != 0
}

// IsActionable reports whether the message carries a complete action pair.
// Params: none.
// Returns: true when both confirm and cancel labels are non-empty.
func (m Message) IsActionable() bool {
	return m.Data.Actions.Text != "" && m.Data.Actions.TextCancel != ""
}

// DecodeMessage builds a Message from one loosely typed push payload.
// Params: payload as delivered by the push transport (map with aps envelope).
// Returns: validated message or decode error when envelope/hash are missing.
func DecodeMessage(payload map[string]any) (Message, error) {
	aps, ok := payload["aps"].(map[string]any)
	if !ok {
		return Message{}, ErrMissingEnvelope
	}

	hash := stringField(aps, "message-hash")
	if hash == "" {
		return Message{}, ErrMissingHash
	}

	message := Message{
		Notification: MessageNotification{
			Title: stringField(aps, "title"),
			Body:  stringField(aps, "body"),
			Image: stringField(aps, "image"),
		},
		Data: MessageData{
			OS:            "ios",
			MessageHash:   hash,
			MailingID:     intField(aps, "mailing-id"),
			ListID:        intField(aps, "list-id"),
			ContactID:     stringField(aps, "contact-id"),
			AccountID:     intField(aps, "account-id"),
			ApplicationID: stringField(aps, "application-id"),
			MessageID:     intField(aps, "message-id"),
			DeviceID:      intField(aps, "device-id"),
			Geo: MessageGeo{
				Latitude:    floatField(aps, "latitude"),
				Longitude:   floatField(aps, "longitude"),
				Radius:      floatField(aps, "radius"),
				DurationMS:  intField(aps, "duration"),
				PeriodStart: stringField(aps, "time-start"),
				PeriodEnd:   stringField(aps, "time-end"),
			},
		},
	}

	if raw := stringField(aps, "actions"); raw != "" {
		var actions MessageActions
		if err := json.Unmarshal([]byte(raw), &actions); err == nil {
			message.Data.Actions = actions
		}
	}

	return message, nil
}

// DecodeMessageJSON decodes one JSON push payload document.
// Params: raw JSON bytes with the aps envelope at the top level.
// Returns: validated message or decode error.
func DecodeMessageJSON(raw []byte) (Message, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}
	return DecodeMessage(payload)
}

// stringField reads one optional string field from the envelope.
// Params: envelope map and field key.
// Returns: trimmed string value or empty string.
func stringField(aps map[string]any, key string) string {
	value, ok := aps[key]
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return ""
	}
}

// intField reads one optional integer field that may arrive as string or number.
// Params: envelope map and field key.
// Returns: parsed value or zero on absence/parse failure.
func intField(aps map[string]any, key string) int64 {
	switch typed := aps[key].(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	case float64:
		return int64(typed)
	case int64:
		return typed
	case int:
		return int64(typed)
	default:
		return 0
	}
}

// floatField reads one optional float field that may arrive as string or number.
// Params: envelope map and field key.
// Returns: parsed value or zero on absence/parse failure.
func floatField(aps map[string]any, key string) float64 {
	switch typed := aps[key].(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	case float64:
		return typed
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	default:
		return 0
	}
}
