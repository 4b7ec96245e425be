package interaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"geopush/internal/domain"
	"geopush/internal/present"
	"geopush/internal/registry"
)

// ErrUnresolved indicates an interaction that maps to no known message.
var ErrUnresolved = errors.New("interaction resolves to no message")

// Interaction is one user response to a delivered notification.
// Params: interaction kind, message hash, and optional raw payload fallback.
// Returns: routing input for the router.
type Interaction struct {
	Kind    domain.InteractionKind
	Key     string
	Payload map[string]any
}

// EventReporter sends interaction telemetry to the backend.
// Params: contact, hash, event kind, and device id.
// Returns: error on transport or rejection; the router never retries.
type EventReporter interface {
	RegisterEvent(ctx context.Context, contactID, messageHash string, event domain.EventType, deviceID int64) error
}

// CategoryCleaner drops one action category after its interaction resolved.
// Params: category identifier.
// Returns: category removed from the presentation surface.
type CategoryCleaner interface {
	RemoveCategory(identifier string)
}

// Prompter shows an in-app confirm/cancel dialog for actionable messages.
// Params: context and message whose actions should be offered.
// Returns: dialog shown; its outcome arrives as a later confirm/close interaction.
type Prompter interface {
	ShowDialog(ctx context.Context, message domain.Message) error
}

// DeepLinkFunc hands a deep-link target to the embedding application.
// Params: deep-link URL from the message actions.
// Returns: navigation delegated to the application.
type DeepLinkFunc func(url string)

// Router resolves interactions against pending messages and emits telemetry.
// Params: registry, reporter, presenter, category cleaner, and action targets.
// Returns: interaction routing with once-per-message received reporting.
type Router struct {
	registry  *registry.PendingRegistry
	reporter  EventReporter
	presenter present.Presenter
	cleaner   CategoryCleaner
	opener    present.LinkOpener
	prompter  Prompter
	deepLink  DeepLinkFunc
	logger    *slog.Logger

	mu       sync.Mutex
	received map[string]struct{}
}

// NewRouter creates an interaction router.
// Params: dependencies; opener, prompter, and deepLink may be nil.
// Returns: initialized router.
func NewRouter(
	reg *registry.PendingRegistry,
	reporter EventReporter,
	presenter present.Presenter,
	cleaner CategoryCleaner,
	opener present.LinkOpener,
	prompter Prompter,
	deepLink DeepLinkFunc,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry:  reg,
		reporter:  reporter,
		presenter: presenter,
		cleaner:   cleaner,
		opener:    opener,
		prompter:  prompter,
		deepLink:  deepLink,
		logger:    logger,
		received:  make(map[string]struct{}),
	}
}

// HandleInteraction routes one interaction to telemetry and action handling.
// Params: context and interaction.
// Returns: ErrUnresolved when no message matches; nil otherwise.
func (r *Router) HandleInteraction(ctx context.Context, interaction Interaction) error {
	message, ok := r.resolve(interaction)
	if !ok {
		r.logger.Warn("interaction for unknown message", "hash", interaction.Key, "kind", interaction.Kind)
		return ErrUnresolved
	}
	hash := message.Data.MessageHash

	r.reportReceivedOnce(ctx, message)

	switch interaction.Kind {
	case domain.InteractionForeground:
		// Foreground preview keeps the message pending for a later tap.
		return nil
	case domain.InteractionDefault:
		if message.IsActionable() && r.prompter != nil {
			if err := r.prompter.ShowDialog(ctx, message); err != nil {
				r.logger.Warn("dialog failed", "hash", hash, "error", err)
			}
			// The dialog outcome arrives as a confirm/close interaction.
			return nil
		}
		r.report(ctx, message, domain.EventOpen)
	case domain.InteractionConfirm:
		r.report(ctx, message, domain.EventOpen)
		r.followAction(message)
	case domain.InteractionClose:
		r.report(ctx, message, domain.EventCanceled)
	default:
		r.logger.Warn("unknown interaction kind", "hash", hash, "kind", interaction.Kind)
		return nil
	}

	r.cleanup(hash)
	return nil
}

// resolve finds the message for one interaction.
// Params: interaction with hash key and optional payload fallback.
// Returns: message and resolution flag.
func (r *Router) resolve(interaction Interaction) (domain.Message, bool) {
	if interaction.Key != "" {
		if message, ok := r.registry.Get(interaction.Key); ok {
			return message, true
		}
	}
	if interaction.Payload != nil {
		message, err := domain.DecodeMessage(interaction.Payload)
		if err == nil {
			return message, true
		}
	}
	return domain.Message{}, false
}

// reportReceivedOnce emits the received event for one message at most once.
// Params: context and resolved message.
// Returns: received reported or skipped.
func (r *Router) reportReceivedOnce(ctx context.Context, message domain.Message) {
	hash := message.Data.MessageHash
	r.mu.Lock()
	_, done := r.received[hash]
	if !done {
		r.received[hash] = struct{}{}
	}
	r.mu.Unlock()
	if done {
		return
	}
	r.report(ctx, message, domain.EventReceived)
}

// report emits one telemetry event when the message carries tracking identity.
// Params: context, message, and event kind.
// Returns: failures logged; events without contact or hash are skipped.
func (r *Router) report(ctx context.Context, message domain.Message, event domain.EventType) {
	if message.Data.ContactID == "" || message.Data.MessageHash == "" {
		r.logger.Debug("telemetry skipped, missing identity", "hash", message.Data.MessageHash, "event", event)
		return
	}
	err := r.reporter.RegisterEvent(ctx, message.Data.ContactID, message.Data.MessageHash, event, message.Data.DeviceID)
	if err != nil {
		r.logger.Warn("telemetry failed", "hash", message.Data.MessageHash, "event", event, "error", err)
	}
}

// followAction navigates the confirm action target.
// Params: confirmed message.
// Returns: deep links delegated to the application, URLs to the opener.
func (r *Router) followAction(message domain.Message) {
	actions := message.Data.Actions
	if actions.URL == "" {
		return
	}
	if actions.Type == domain.ActionTypeDeepLink {
		if r.deepLink != nil {
			r.deepLink(actions.URL)
		}
		return
	}
	if r.opener == nil || !r.opener.CanOpen(actions.URL) {
		r.logger.Warn("action url cannot be opened", "hash", message.Data.MessageHash, "url", actions.URL)
		return
	}
	if err := r.opener.Open(actions.URL); err != nil {
		r.logger.Warn("action url open failed", "hash", message.Data.MessageHash, "error", err)
	}
}

// cleanup retires one resolved message.
// Params: message hash.
// Returns: registry entry, category, received marker, and badge cleared.
func (r *Router) cleanup(hash string) {
	r.registry.Remove(hash)
	if r.cleaner != nil {
		r.cleaner.RemoveCategory(hash)
	}
	r.mu.Lock()
	delete(r.received, hash)
	r.mu.Unlock()
	r.presenter.SetBadge(0)
}
