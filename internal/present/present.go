package present

import (
	"context"
	"sync"
)

// LocalNotification is one notification handed to the presentation surface.
// Params: identifier (message hash), content, and optional category/badge.
// Returns: presentation request consumed by a Presenter.
type LocalNotification struct {
	Identifier string
	Title      string
	Body       string
	ImagePath  string
	Category   string
	Badge      int
}

// Category is one registered action set keyed by message hash.
// Params: identifier plus confirm/cancel button labels.
// Returns: action metadata attached to actionable notifications.
type Category struct {
	Identifier   string
	ConfirmLabel string
	CancelLabel  string
}

// Presenter is the notification presentation surface.
// Params: permission, submission, category, and badge operations.
// Returns: boundary over the platform notification center.
type Presenter interface {
	// RequestPermission asks the user for notification authorization.
	RequestPermission(ctx context.Context) (bool, error)
	// Submit surfaces one local notification.
	Submit(ctx context.Context, notification LocalNotification) error
	// Categories returns the currently registered action categories.
	Categories() []Category
	// SetCategories replaces the registered action categories.
	SetCategories(categories []Category)
	// Badge returns the current badge count.
	Badge() int
	// SetBadge replaces the badge count; negative values clamp to zero.
	SetBadge(count int)
}

// LinkOpener validates and opens external URLs for confirm actions.
// Params: URL validation and navigation.
// Returns: boundary over the platform URL handler.
type LinkOpener interface {
	// CanOpen reports whether the URL can be handled.
	CanOpen(url string) bool
	// Open navigates to the URL.
	Open(url string) error
}

// categoryBook holds shared category and badge bookkeeping for presenters.
// Params: mutex-guarded category list and badge counter.
// Returns: embedded state reused by all presenter implementations.
type categoryBook struct {
	mu         sync.RWMutex
	categories []Category
	badge      int
}

// Categories returns a copy of the registered categories.
// Params: none.
// Returns: defensive copy of the category list.
func (b *categoryBook) Categories() []Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Category, len(b.categories))
	copy(out, b.categories)
	return out
}

// SetCategories replaces the registered categories.
// Params: full replacement list.
// Returns: list copied defensively.
func (b *categoryBook) SetCategories(categories []Category) {
	copied := make([]Category, len(categories))
	copy(copied, categories)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = copied
}

// Badge returns the current badge count.
// Params: none.
// Returns: non-negative badge value.
func (b *categoryBook) Badge() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.badge
}

// SetBadge replaces the badge count.
// Params: new count; negative values clamp to zero.
// Returns: badge updated in place.
func (b *categoryBook) SetBadge(count int) {
	if count < 0 {
		count = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.badge = count
}
