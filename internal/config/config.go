package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultHTTPListen        = ":8080"
	defaultHealthPath        = "/healthz"
	defaultReadyPath         = "/readyz"
	defaultPayloadPath       = "/notification"
	defaultInteractionPath   = "/interaction"
	defaultLocationPath      = "/location"
	defaultTokenPath         = "/token"
	defaultNATSSubject       = "geopush.notifications"
	defaultNATSStream        = "GEOPUSH_NOTIFICATIONS"
	defaultNATSConsumer      = "geopush-ingest"
	defaultNATSGroup         = "geopush-workers"
	defaultNATSWorkers       = 1
	defaultNATSAckWaitSec    = 30
	defaultNATSNackDelayMS   = 1000
	defaultNATSMaxDeliver    = -1
	defaultNATSMaxAckPending = 2048
	defaultNATSURL           = "nats://127.0.0.1:4222"
	defaultAPIBaseURL        = "https://api.egoiapp.com"
	defaultAPITimeoutSec     = 30
	defaultImageTimeoutSec   = 10
	defaultSweepIntervalSec  = 3600
	defaultPendingTTLHours   = 48
	defaultCategoryTTLHours  = 48

	// ServiceModeNATS enables JetStream payload ingestion.
	ServiceModeNATS = "nats"
	// ServiceModeSingle keeps single-instance mode without NATS dependencies.
	ServiceModeSingle = "single"

	// APISuccessModeData expects `{"data":"OK"}` success bodies.
	APISuccessModeData = "data"
	// APISuccessModeFlag expects `{"success":true}` success bodies.
	APISuccessModeFlag = "flag"

	// PresentModeLog surfaces notifications to the structured log.
	PresentModeLog = "log"
	// PresentModeTelegram mirrors notifications to a Telegram chat.
	PresentModeTelegram = "telegram"
)

// Config holds service runtime settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Log     LogConfig     `toml:"log"`
	API     APIConfig     `toml:"api"`
	Geo     GeoConfig     `toml:"geo"`
	Ingest  IngestConfig  `toml:"ingest"`
	Present PresentConfig `toml:"present"`
}

// ServiceConfig contains process-level settings.
// Params: name, runtime mode, and maintenance sweep controls.
// Returns: service behavior defaults.
type ServiceConfig struct {
	Name             string `toml:"name"`
	Mode             string `toml:"mode"`
	SweepIntervalSec int    `toml:"sweep_interval_sec"`
	PendingTTLHours  int    `toml:"pending_ttl_hours"`
	CategoryTTLHours int    `toml:"category_ttl_hours"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// APIConfig defines the backend token and event endpoints.
// Params: base URL, application credentials, timeout, and success decoding mode.
// Returns: backend client configuration.
type APIConfig struct {
	BaseURL     string `toml:"base_url"`
	AppID       string `toml:"app_id"`
	APIKey      string `toml:"api_key"`
	TimeoutSec  int    `toml:"timeout_sec"`
	SuccessMode string `toml:"success_mode"`
}

// GeoConfig controls geofence-gated delivery.
// Params: optional enabled flag (defaults to enabled).
// Returns: geo behavior toggle.
type GeoConfig struct {
	Enabled *bool `toml:"enabled"`
}

// IsEnabled reports whether geofence delivery is active.
// Params: none.
// Returns: true when unset or explicitly enabled.
func (g GeoConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// IngestConfig defines inbound payload interfaces.
// Params: embedded HTTP and NATS subscription controls.
// Returns: ingestion runtime options.
type IngestConfig struct {
	HTTP HTTPIngestConfig `toml:"http"`
	NATS NATSIngestConfig `toml:"nats"`
}

// HTTPIngestConfig configures the HTTP payload and interaction endpoints.
// Params: listen/endpoint paths and optional body size limit.
// Returns: HTTP ingest behavior.
type HTTPIngestConfig struct {
	Listen          string `toml:"listen"`
	HealthPath      string `toml:"health_path"`
	ReadyPath       string `toml:"ready_path"`
	PayloadPath     string `toml:"payload_path"`
	InteractionPath string `toml:"interaction_path"`
	LocationPath    string `toml:"location_path"`
	TokenPath       string `toml:"token_path"`
	MaxBodyBytes    int64  `toml:"max_body_bytes"`
}

// NATSIngestConfig configures JetStream queue-consumer payload ingestion.
// Params: connection + worker/ack/redelivery policy; stream routing keys are runtime-fixed.
// Returns: NATS ingest behavior.
type NATSIngestConfig struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"url"`
	Subject       string   `toml:"-"`
	Stream        string   `toml:"-"`
	ConsumerName  string   `toml:"-"`
	DeliverGroup  string   `toml:"-"`
	Workers       int      `toml:"workers"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// PresentConfig defines the notification presentation surface.
// Params: mode selector, image fetch budget, and Telegram transport settings.
// Returns: presentation configuration.
type PresentConfig struct {
	Mode            string            `toml:"mode"`
	ImageTimeoutSec int               `toml:"image_timeout_sec"`
	Telegram        TelegramPresenter `toml:"telegram"`
}

// TelegramPresenter defines Telegram presentation settings.
// Params: bot token, chat ID, API base URL, and message template.
// Returns: Telegram presenter configuration.
type TelegramPresenter struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	APIBase  string `toml:"api_base"`
	Template string `toml:"template"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NormalizeServiceMode lowercases and defaults the service mode.
// Params: raw mode value from config.
// Returns: normalized mode key.
func NormalizeServiceMode(mode string) string {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		return ServiceModeSingle
	}
	return normalized
}

// IsSupportedServiceMode checks the normalized mode value.
// Params: normalized mode key.
// Returns: true for known modes.
func IsSupportedServiceMode(mode string) bool {
	return mode == ServiceModeSingle || mode == ServiceModeNATS
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir reads and merges TOML files from one directory.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	for _, file := range files {
		fragment, err := loadFile(file)
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays one fragment onto the destination at section level.
// Params: destination config and next fragment.
// Returns: merged configuration side-effect in dst.
func mergeConfig(dst *Config, src Config) {
	if src.Service != (ServiceConfig{}) {
		dst.Service = src.Service
	}
	if src.Log != (LogConfig{}) {
		dst.Log = src.Log
	}
	if src.API != (APIConfig{}) {
		dst.API = src.API
	}
	if src.Geo.Enabled != nil {
		dst.Geo = src.Geo
	}
	if hasIngestConfig(src.Ingest) {
		dst.Ingest = src.Ingest
	}
	if hasPresentConfig(src.Present) {
		dst.Present = src.Present
	}
}

// hasIngestConfig checks whether ingest section contains any explicit values.
// Params: ingest configuration fragment.
// Returns: true when section should be merged.
func hasIngestConfig(cfg IngestConfig) bool {
	if cfg.HTTP != (HTTPIngestConfig{}) {
		return true
	}
	return cfg.NATS.Enabled ||
		len(cfg.NATS.URL) > 0 ||
		cfg.NATS.Workers != 0 ||
		cfg.NATS.AckWaitSec != 0 ||
		cfg.NATS.NackDelayMS != 0 ||
		cfg.NATS.MaxDeliver != 0 ||
		cfg.NATS.MaxAckPending != 0
}

// hasPresentConfig checks whether present section contains any explicit values.
// Params: present configuration fragment.
// Returns: true when section should be merged.
func hasPresentConfig(cfg PresentConfig) bool {
	return strings.TrimSpace(cfg.Mode) != "" ||
		cfg.ImageTimeoutSec != 0 ||
		cfg.Telegram != (TelegramPresenter{})
}

// applyDefaults fills omitted config fields with safe defaults.
// Params: cfg pointer to decoded snapshot.
// Returns: defaults applied in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = "geopush"
	}
	cfg.Service.Mode = NormalizeServiceMode(cfg.Service.Mode)
	if cfg.Service.SweepIntervalSec <= 0 {
		cfg.Service.SweepIntervalSec = defaultSweepIntervalSec
	}
	if cfg.Service.PendingTTLHours <= 0 {
		cfg.Service.PendingTTLHours = defaultPendingTTLHours
	}
	if cfg.Service.CategoryTTLHours <= 0 {
		cfg.Service.CategoryTTLHours = defaultCategoryTTLHours
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = defaultAPIBaseURL
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = defaultAPITimeoutSec
	}
	if strings.TrimSpace(cfg.API.SuccessMode) == "" {
		cfg.API.SuccessMode = APISuccessModeData
	}

	if strings.TrimSpace(cfg.Ingest.HTTP.Listen) == "" {
		cfg.Ingest.HTTP.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.HealthPath) == "" {
		cfg.Ingest.HTTP.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.ReadyPath) == "" {
		cfg.Ingest.HTTP.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.PayloadPath) == "" {
		cfg.Ingest.HTTP.PayloadPath = defaultPayloadPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.InteractionPath) == "" {
		cfg.Ingest.HTTP.InteractionPath = defaultInteractionPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.LocationPath) == "" {
		cfg.Ingest.HTTP.LocationPath = defaultLocationPath
	}
	if strings.TrimSpace(cfg.Ingest.HTTP.TokenPath) == "" {
		cfg.Ingest.HTTP.TokenPath = defaultTokenPath
	}
	if cfg.Ingest.HTTP.MaxBodyBytes <= 0 {
		cfg.Ingest.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.Service.Mode == ServiceModeSingle {
		// Single mode always disables NATS-dependent paths regardless of user flags.
		cfg.Ingest.NATS.Enabled = false
	} else {
		cfg.Ingest.NATS.URL = normalizeNATSURLs(cfg.Ingest.NATS.URL)
		if len(cfg.Ingest.NATS.URL) == 0 {
			cfg.Ingest.NATS.URL = []string{defaultNATSURL}
		}
		cfg.Ingest.NATS.Subject = defaultNATSSubject
		cfg.Ingest.NATS.Stream = defaultNATSStream
		cfg.Ingest.NATS.ConsumerName = defaultNATSConsumer
		cfg.Ingest.NATS.DeliverGroup = defaultNATSGroup
		if cfg.Ingest.NATS.Workers == 0 {
			cfg.Ingest.NATS.Workers = defaultNATSWorkers
		}
		if cfg.Ingest.NATS.AckWaitSec <= 0 {
			cfg.Ingest.NATS.AckWaitSec = defaultNATSAckWaitSec
		}
		if cfg.Ingest.NATS.NackDelayMS <= 0 {
			cfg.Ingest.NATS.NackDelayMS = defaultNATSNackDelayMS
		}
		if cfg.Ingest.NATS.MaxDeliver == 0 {
			cfg.Ingest.NATS.MaxDeliver = defaultNATSMaxDeliver
		}
		if cfg.Ingest.NATS.MaxAckPending <= 0 {
			cfg.Ingest.NATS.MaxAckPending = defaultNATSMaxAckPending
		}
	}

	if strings.TrimSpace(cfg.Present.Mode) == "" {
		cfg.Present.Mode = PresentModeLog
	} else {
		cfg.Present.Mode = strings.ToLower(strings.TrimSpace(cfg.Present.Mode))
	}
	if cfg.Present.ImageTimeoutSec <= 0 {
		cfg.Present.ImageTimeoutSec = defaultImageTimeoutSec
	}
	if cfg.Present.Telegram.APIBase == "" {
		cfg.Present.Telegram.APIBase = "https://api.telegram.org"
	}
}

// normalizeNATSURLs trims and deduplicates the NATS URL list.
// Params: raw URL list from config.
// Returns: normalized URL list preserving order.
func normalizeNATSURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// validateConfig validates the full runtime configuration.
// Params: cfg snapshot to validate.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	mode := NormalizeServiceMode(cfg.Service.Mode)
	if !IsSupportedServiceMode(mode) {
		return fmt.Errorf("service.mode has unsupported value %q", cfg.Service.Mode)
	}
	if strings.TrimSpace(cfg.API.AppID) == "" {
		return errors.New("api.app_id is required")
	}
	if strings.TrimSpace(cfg.API.APIKey) == "" {
		return errors.New("api.api_key is required")
	}
	if cfg.API.SuccessMode != APISuccessModeData && cfg.API.SuccessMode != APISuccessModeFlag {
		return fmt.Errorf("api.success_mode has unsupported value %q", cfg.API.SuccessMode)
	}
	switch cfg.Present.Mode {
	case PresentModeLog:
	case PresentModeTelegram:
		if strings.TrimSpace(cfg.Present.Telegram.BotToken) == "" {
			return errors.New("present.telegram.bot_token is required in telegram mode")
		}
		if strings.TrimSpace(cfg.Present.Telegram.ChatID) == "" {
			return errors.New("present.telegram.chat_id is required in telegram mode")
		}
	default:
		return fmt.Errorf("present.mode has unsupported value %q", cfg.Present.Mode)
	}
	if mode == ServiceModeNATS && cfg.Ingest.NATS.Enabled && len(cfg.Ingest.NATS.URL) == 0 {
		return errors.New("ingest.nats.url is required when NATS ingest is enabled")
	}
	return nil
}
