package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"geopush/internal/config"
	"geopush/internal/domain"
)

func testConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:     baseURL,
		AppID:       "123",
		APIKey:      "secret",
		TimeoutSec:  5,
		SuccessMode: config.APISuccessModeData,
	}
}

func TestRegisterTokenSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("ApiKey") != "secret" {
			t.Errorf("missing ApiKey header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":"OK"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if err := client.RegisterToken(context.Background(), "tok-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/push/apps/123/token" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["token"] != "tok-1" || gotBody["os"] != "ios" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if _, ok := gotBody["two_steps_data"]; ok {
		t.Fatalf("two_steps_data must be omitted when nil")
	}
}

func TestRegisterTokenTwoSteps(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":"OK"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.RegisterToken(context.Background(), "tok-2", &TwoStepsData{Field: "email", Value: "user@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twoSteps, ok := gotBody["two_steps_data"].(map[string]any)
	if !ok {
		t.Fatalf("missing two_steps_data: %v", gotBody)
	}
	if twoSteps["field"] != "email" || twoSteps["value"] != "user@example.com" {
		t.Fatalf("unexpected two_steps_data: %v", twoSteps)
	}
}

func TestRegisterEventBody(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":"OK"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.RegisterEvent(context.Background(), "c1", "h1", domain.EventOpen, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/push/apps/123/event" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["contact"] != "c1" || gotBody["message_hash"] != "h1" || gotBody["event"] != "open" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if gotBody["device_id"] != float64(7) {
		t.Fatalf("unexpected device id: %v", gotBody["device_id"])
	}
}

func TestRejectedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"NOK"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.RegisterEvent(context.Background(), "c1", "h1", domain.EventReceived, 0)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestSuccessModeFlag(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.SuccessMode = config.APISuccessModeFlag
	client := NewClient(cfg)
	if err := client.RegisterToken(context.Background(), "tok-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if err := client.RegisterToken(context.Background(), "tok-1", nil); err == nil {
		t.Fatalf("expected error for 500 status")
	}
}

func TestInputValidation(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("http://127.0.0.1:1"))
	if err := client.RegisterToken(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if err := client.RegisterEvent(context.Background(), "", "h1", domain.EventOpen, 0); err == nil {
		t.Fatalf("expected error for empty contact")
	}
	if err := client.RegisterEvent(context.Background(), "c1", "", domain.EventOpen, 0); err == nil {
		t.Fatalf("expected error for empty hash")
	}
}
