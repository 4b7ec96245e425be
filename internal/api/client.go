package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"geopush/internal/config"
	"geopush/internal/domain"
)

// ErrRejected indicates a 2xx response whose body did not signal success.
var ErrRejected = errors.New("backend rejected the request")

// TwoStepsData re-associates a rotated token with an existing contact.
// Params: contact field name and value stored at first registration.
// Returns: optional token registration extension.
type TwoStepsData struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Client calls the backend token and event endpoints.
// Params: base URL, credentials, and success decoding mode from config.
// Returns: one-shot HTTP client without retries.
type Client struct {
	baseURL     string
	appID       string
	apiKey      string
	successMode string
	client      *http.Client
}

// NewClient creates a backend API client.
// Params: API config section.
// Returns: initialized client with configured timeout.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		appID:       strings.TrimSpace(cfg.AppID),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		successMode: cfg.SuccessMode,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// tokenRequest is the token registration body.
type tokenRequest struct {
	APIKey       string        `json:"api_key"`
	AppID        string        `json:"app_id"`
	Token        string        `json:"token"`
	OS           string        `json:"os"`
	TwoStepsData *TwoStepsData `json:"two_steps_data,omitempty"`
}

// eventRequest is the interaction telemetry body.
type eventRequest struct {
	APIKey      string `json:"api_key"`
	AppID       string `json:"app_id"`
	Contact     string `json:"contact"`
	OS          string `json:"os"`
	MessageHash string `json:"message_hash"`
	Event       string `json:"event"`
	DeviceID    int64  `json:"device_id"`
}

// RegisterToken registers one device token with the backend.
// Params: context, device token, and optional two-steps contact binding.
// Returns: nil on confirmed success; ErrRejected or transport error otherwise.
func (c *Client) RegisterToken(ctx context.Context, token string, twoSteps *TwoStepsData) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("device token is required")
	}
	body := tokenRequest{
		APIKey:       c.apiKey,
		AppID:        c.appID,
		Token:        token,
		OS:           "ios",
		TwoStepsData: twoSteps,
	}
	endpoint := fmt.Sprintf("%s/push/apps/%s/token", c.baseURL, c.appID)
	return c.post(ctx, endpoint, body)
}

// RegisterEvent reports one interaction event to the backend.
// Params: context, contact id, message hash, event kind, and device id.
// Returns: nil on confirmed success; ErrRejected or transport error otherwise.
func (c *Client) RegisterEvent(ctx context.Context, contactID, messageHash string, event domain.EventType, deviceID int64) error {
	if strings.TrimSpace(contactID) == "" {
		return errors.New("contact id is required")
	}
	if strings.TrimSpace(messageHash) == "" {
		return errors.New("message hash is required")
	}
	body := eventRequest{
		APIKey:      c.apiKey,
		AppID:       c.appID,
		Contact:     contactID,
		OS:          "ios",
		MessageHash: messageHash,
		Event:       string(event),
		DeviceID:    deviceID,
	}
	endpoint := fmt.Sprintf("%s/push/apps/%s/event", c.baseURL, c.appID)
	return c.post(ctx, endpoint, body)
}

// post sends one JSON request and applies the success predicate.
// Params: context, absolute endpoint, and request body.
// Returns: transport, status, or rejection error.
func (c *Client) post(ctx context.Context, endpoint string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Cache-Control", "no-cache")
	request.Header.Set("ApiKey", c.apiKey)

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("backend send: %w", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read backend response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		trimmed := strings.TrimSpace(string(responseBody))
		if trimmed == "" {
			return fmt.Errorf("backend status=%d", response.StatusCode)
		}
		return fmt.Errorf("backend status=%d body=%s", response.StatusCode, trimmed)
	}

	ok, err := c.decodeSuccess(responseBody)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(responseBody)))
	}
	return nil
}

// decodeSuccess applies the configured success predicate to one 2xx body.
// Params: raw response body.
// Returns: success flag or decode error.
func (c *Client) decodeSuccess(body []byte) (bool, error) {
	switch c.successMode {
	case config.APISuccessModeFlag:
		var decoded struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false, fmt.Errorf("decode backend response: %w", err)
		}
		return decoded.Success, nil
	default:
		var decoded struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false, fmt.Errorf("decode backend response: %w", err)
		}
		return strings.EqualFold(decoded.Data, "OK"), nil
	}
}
