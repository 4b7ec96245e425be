package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"geopush/internal/domain"
	"geopush/internal/present"
	"geopush/internal/registry"
)

type recordedEvent struct {
	contact string
	hash    string
	event   domain.EventType
}

type fakeReporter struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakeReporter) RegisterEvent(ctx context.Context, contactID, messageHash string, event domain.EventType, deviceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, recordedEvent{contact: contactID, hash: messageHash, event: event})
	return nil
}

func (f *fakeReporter) kinds() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.event)
	}
	return out
}

type fakeCleaner struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeCleaner) RemoveCategory(identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, identifier)
}

type fakeOpener struct {
	canOpen bool
	opened  []string
}

func (f *fakeOpener) CanOpen(url string) bool { return f.canOpen }

func (f *fakeOpener) Open(url string) error {
	f.opened = append(f.opened, url)
	return nil
}

type fakePrompter struct {
	shown []string
}

func (f *fakePrompter) ShowDialog(ctx context.Context, message domain.Message) error {
	f.shown = append(f.shown, message.Data.MessageHash)
	return nil
}

func plainMessage(hash string) domain.Message {
	return domain.Message{
		Notification: domain.MessageNotification{Title: "t", Body: "b"},
		Data:         domain.MessageData{MessageHash: hash, ContactID: "c1", DeviceID: 7},
	}
}

func actionableMessage(hash, actionType, url string) domain.Message {
	message := plainMessage(hash)
	message.Data.Actions = domain.MessageActions{Type: actionType, Text: "Yes", URL: url, TextCancel: "No"}
	return message
}

type routerFixture struct {
	router    *Router
	registry  *registry.PendingRegistry
	reporter  *fakeReporter
	presenter *present.LogPresenter
	cleaner   *fakeCleaner
	opener    *fakeOpener
	prompter  *fakePrompter
	deepLinks []string
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()
	fixture := &routerFixture{
		registry:  registry.New(nil),
		reporter:  &fakeReporter{},
		presenter: present.NewLogPresenter(nil),
		cleaner:   &fakeCleaner{},
		opener:    &fakeOpener{canOpen: true},
		prompter:  &fakePrompter{},
	}
	fixture.router = NewRouter(
		fixture.registry,
		fixture.reporter,
		fixture.presenter,
		fixture.cleaner,
		fixture.opener,
		fixture.prompter,
		func(url string) { fixture.deepLinks = append(fixture.deepLinks, url) },
		nil,
	)
	return fixture
}

func TestUnresolvedInteraction(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "ghost"})
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if len(fixture.reporter.events) != 0 {
		t.Fatalf("expected no telemetry, got %v", fixture.reporter.events)
	}
}

func TestDefaultWithoutActions(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.registry.Put("h1", plainMessage("h1"))
	fixture.presenter.SetBadge(3)

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kinds := fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[0] != domain.EventReceived || kinds[1] != domain.EventOpen {
		t.Fatalf("expected received then open, got %v", kinds)
	}
	if _, ok := fixture.registry.Get("h1"); ok {
		t.Fatalf("expected registry entry removed")
	}
	if fixture.presenter.Badge() != 0 {
		t.Fatalf("expected badge cleared, got %d", fixture.presenter.Badge())
	}
	if len(fixture.cleaner.removed) != 1 || fixture.cleaner.removed[0] != "h1" {
		t.Fatalf("expected category cleanup, got %v", fixture.cleaner.removed)
	}
}

func TestDefaultWithActionsShowsDialog(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.registry.Put("h1", actionableMessage("h1", "url", "https://example.com"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fixture.prompter.shown) != 1 || fixture.prompter.shown[0] != "h1" {
		t.Fatalf("expected dialog shown for h1, got %v", fixture.prompter.shown)
	}

	kinds := fixture.reporter.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventReceived {
		t.Fatalf("expected only received before dialog outcome, got %v", kinds)
	}
	if _, ok := fixture.registry.Get("h1"); !ok {
		t.Fatalf("message must stay pending until the dialog resolves")
	}

	// Dialog outcome: confirm.
	err = fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionConfirm, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds = fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventOpen {
		t.Fatalf("expected open after confirm without duplicate received, got %v", kinds)
	}
	if len(fixture.opener.opened) != 1 || fixture.opener.opened[0] != "https://example.com" {
		t.Fatalf("expected url opened, got %v", fixture.opener.opened)
	}
	if _, ok := fixture.registry.Get("h1"); ok {
		t.Fatalf("expected registry entry removed after confirm")
	}
}

func TestConfirmDeepLink(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.registry.Put("h1", actionableMessage("h1", domain.ActionTypeDeepLink, "myapp://offers/1"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionConfirm, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fixture.deepLinks) != 1 || fixture.deepLinks[0] != "myapp://offers/1" {
		t.Fatalf("expected deep link delegated, got %v", fixture.deepLinks)
	}
	if len(fixture.opener.opened) != 0 {
		t.Fatalf("deep link must not use the url opener, got %v", fixture.opener.opened)
	}
}

func TestConfirmUnopenableURL(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.opener.canOpen = false
	fixture.registry.Put("h1", actionableMessage("h1", "url", "https://example.com"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionConfirm, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fixture.opener.opened) != 0 {
		t.Fatalf("unopenable url must not be opened")
	}
	kinds := fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventOpen {
		t.Fatalf("open must still be reported, got %v", kinds)
	}
}

func TestCloseReportsCanceled(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.registry.Put("h1", actionableMessage("h1", "url", "https://example.com"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionClose, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventCanceled {
		t.Fatalf("expected canceled, got %v", kinds)
	}
	if _, ok := fixture.registry.Get("h1"); ok {
		t.Fatalf("expected registry entry removed after close")
	}
}

func TestForegroundKeepsPending(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.registry.Put("h1", plainMessage("h1"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionForeground, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := fixture.reporter.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventReceived {
		t.Fatalf("expected only received, got %v", kinds)
	}
	if _, ok := fixture.registry.Get("h1"); !ok {
		t.Fatalf("foreground preview must keep the message pending")
	}

	// Later tap reports open without a duplicate received.
	err = fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds = fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventOpen {
		t.Fatalf("expected single received then open, got %v", kinds)
	}
}

func TestPayloadFallbackResolution(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	payload := map[string]any{
		"aps": map[string]any{
			"message-hash": "h9",
			"title":        "t",
			"body":         "b",
			"contact-id":   "c1",
		},
	}

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h9", Payload: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := fixture.reporter.kinds()
	if len(kinds) != 2 || kinds[0] != domain.EventReceived || kinds[1] != domain.EventOpen {
		t.Fatalf("expected received then open via payload fallback, got %v", kinds)
	}
}

func TestTelemetrySkippedWithoutContact(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	message := plainMessage("h1")
	message.Data.ContactID = ""
	fixture.registry.Put("h1", message)

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fixture.reporter.events) != 0 {
		t.Fatalf("expected no telemetry without contact id, got %v", fixture.reporter.events)
	}
	if _, ok := fixture.registry.Get("h1"); ok {
		t.Fatalf("entry must still be cleaned up")
	}
}

func TestReporterFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	fixture := newFixture(t)
	fixture.reporter.err = errors.New("backend down")
	fixture.registry.Put("h1", plainMessage("h1"))

	err := fixture.router.HandleInteraction(context.Background(), Interaction{Kind: domain.InteractionDefault, Key: "h1"})
	if err != nil {
		t.Fatalf("telemetry failures must not surface: %v", err)
	}
	if _, ok := fixture.registry.Get("h1"); ok {
		t.Fatalf("cleanup must run despite telemetry failure")
	}
}
