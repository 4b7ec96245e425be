package domain

// EventType is one outbound telemetry event kind.
// Params: open/canceled/received constants.
// Returns: normalized event names for the backend event call.
type EventType string

const (
	// EventOpen marks a user opening or confirming a notification.
	EventOpen EventType = "open"
	// EventCanceled marks a user dismissing a notification.
	EventCanceled EventType = "canceled"
	// EventReceived marks a notification surfacing to the user.
	EventReceived EventType = "received"
)

// InteractionKind identifies one user interaction with a delivered notification.
// Params: default/confirm/close/foreground constants.
// Returns: normalized interaction names for routing.
type InteractionKind string

const (
	// InteractionDefault marks the default tap on the notification body.
	InteractionDefault InteractionKind = "default"
	// InteractionConfirm marks the confirm action button.
	InteractionConfirm InteractionKind = "confirm"
	// InteractionClose marks the cancel/close action button.
	InteractionClose InteractionKind = "close"
	// InteractionForeground marks an in-app foreground preview of the notification.
	InteractionForeground InteractionKind = "foreground"
)
