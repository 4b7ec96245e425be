package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"geopush/internal/clock"
	"geopush/internal/domain"
	"geopush/internal/present"
	"geopush/internal/registry"
)

// RegionArmer arms one geofence for a geo message.
// Params: decoded geo message.
// Returns: error when the region cannot be monitored.
type RegionArmer interface {
	RequestMonitor(message domain.Message) error
}

// Dispatcher routes incoming payloads to geofence arming or immediate delivery.
// Params: pending registry, region armer, presenter, and delivery options.
// Returns: payload intake plus delivery and category maintenance.
type Dispatcher struct {
	registry     *registry.PendingRegistry
	presenter    present.Presenter
	clk          clock.Clock
	logger       *slog.Logger
	geoEnabled   bool
	imageTimeout time.Duration
	imageClient  *http.Client

	mu              sync.Mutex
	armer           RegionArmer
	categoryCreated map[string]time.Time
}

// New creates a dispatcher.
// Params: registry, presenter, clock, geo switch, image fetch budget, and logger.
// Returns: dispatcher without an armer; call SetArmer before geo intake.
func New(
	reg *registry.PendingRegistry,
	presenter present.Presenter,
	clk clock.Clock,
	geoEnabled bool,
	imageTimeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:        reg,
		presenter:       presenter,
		clk:             clk,
		logger:          logger,
		geoEnabled:      geoEnabled,
		imageTimeout:    imageTimeout,
		imageClient:     &http.Client{},
		categoryCreated: make(map[string]time.Time),
	}
}

// SetArmer binds the region armer after construction.
// Params: armer implementation (the region monitor).
// Returns: armer bound for subsequent geo payloads.
func (d *Dispatcher) SetArmer(armer RegionArmer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armer = armer
}

// HandlePayload decodes and routes one incoming push payload.
// Params: context and raw JSON payload with the aps envelope.
// Returns: decode error for malformed payloads; routing failures are logged.
func (d *Dispatcher) HandlePayload(ctx context.Context, raw []byte) error {
	message, err := domain.DecodeMessageJSON(raw)
	if err != nil {
		return fmt.Errorf("handle payload: %w", err)
	}
	d.HandleMessage(ctx, message)
	return nil
}

// HandleMessage routes one decoded message.
// Params: context and decoded message.
// Returns: message registered and either armed or delivered.
func (d *Dispatcher) HandleMessage(ctx context.Context, message domain.Message) {
	hash := message.Data.MessageHash
	d.registry.Put(hash, message)

	if message.IsGeo() && d.geoEnabled {
		d.mu.Lock()
		armer := d.armer
		d.mu.Unlock()
		if armer == nil {
			d.logger.Warn("geo message dropped, no region armer", "hash", hash)
			d.registry.Remove(hash)
			return
		}
		if err := armer.RequestMonitor(message); err != nil {
			d.logger.Warn("geo message dropped", "hash", hash, "error", err)
			d.registry.Remove(hash)
		}
		return
	}

	d.FireNow(message)
}

// FireNow surfaces one message immediately.
// Params: decoded message whose delivery condition is satisfied.
// Returns: notification submitted; submission failures are logged.
func (d *Dispatcher) FireNow(message domain.Message) {
	hash := message.Data.MessageHash

	badge := d.presenter.Badge() + 1
	d.presenter.SetBadge(badge)

	notification := present.LocalNotification{
		Identifier: hash,
		Title:      message.Notification.Title,
		Body:       message.Notification.Body,
		Badge:      badge,
	}

	if message.Notification.Image != "" {
		path, err := d.fetchImage(message.Notification.Image)
		if err != nil {
			d.logger.Warn("image fetch failed, delivering without image", "hash", hash, "error", err)
		} else {
			notification.ImagePath = path
		}
	}

	if message.IsActionable() {
		notification.Category = hash
		d.registerCategory(hash, message.Data.Actions)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.imageTimeout)
	defer cancel()
	if err := d.presenter.Submit(ctx, notification); err != nil {
		d.logger.Error("notification submit failed", "hash", hash, "error", err)
		return
	}
	d.logger.Info("notification delivered", "hash", hash, "badge", badge)
}

// RemoveCategory drops one action category after its interaction resolved.
// Params: category identifier (message hash).
// Returns: category filtered out of the presenter set.
func (d *Dispatcher) RemoveCategory(identifier string) {
	d.mu.Lock()
	delete(d.categoryCreated, identifier)
	d.mu.Unlock()

	kept := make([]present.Category, 0)
	for _, category := range d.presenter.Categories() {
		if category.Identifier == identifier {
			continue
		}
		kept = append(kept, category)
	}
	d.presenter.SetCategories(kept)
}

// CompactCategories evicts action categories older than the TTL.
// Params: current time and TTL threshold (0 disables eviction).
// Returns: number of evicted categories.
func (d *Dispatcher) CompactCategories(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	d.mu.Lock()
	stale := make(map[string]struct{})
	for identifier, created := range d.categoryCreated {
		if now.Sub(created) < ttl {
			continue
		}
		stale[identifier] = struct{}{}
		delete(d.categoryCreated, identifier)
	}
	d.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}
	kept := make([]present.Category, 0)
	for _, category := range d.presenter.Categories() {
		if _, ok := stale[category.Identifier]; ok {
			continue
		}
		kept = append(kept, category)
	}
	d.presenter.SetCategories(kept)
	return len(stale)
}

// registerCategory unions one action category into the presenter set.
// Params: category identifier and decoded action pair.
// Returns: category registered and creation time recorded.
func (d *Dispatcher) registerCategory(identifier string, actions domain.MessageActions) {
	categories := d.presenter.Categories()
	replaced := false
	for i := range categories {
		if categories[i].Identifier == identifier {
			categories[i].ConfirmLabel = actions.Text
			categories[i].CancelLabel = actions.TextCancel
			replaced = true
			break
		}
	}
	if !replaced {
		categories = append(categories, present.Category{
			Identifier:   identifier,
			ConfirmLabel: actions.Text,
			CancelLabel:  actions.TextCancel,
		})
	}
	d.presenter.SetCategories(categories)

	d.mu.Lock()
	d.categoryCreated[identifier] = d.clk.Now()
	d.mu.Unlock()
}

// fetchImage downloads one notification image to a temporary file.
// Params: image URL.
// Returns: local file path or fetch error; bounded by the image timeout.
func (d *Dispatcher) fetchImage(imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.imageTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	response, err := d.imageClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("image fetch: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("image fetch status=%d", response.StatusCode)
	}

	file, err := os.CreateTemp("", "geopush-image-*")
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("save image: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close image file: %w", err)
	}
	return file.Name(), nil
}
