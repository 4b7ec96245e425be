package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// TokenSink receives device token updates from ingest interfaces.
// Params: context plus token and optional contact binding.
// Returns: registration error.
type TokenSink interface {
	// SetToken stores a new device token, re-registering on rotation.
	SetToken(ctx context.Context, token string) error
	// RegisterToken registers the current token with the backend.
	RegisterToken(ctx context.Context, field, value string) error
}

// tokenUpdateRequest is the token endpoint body.
type tokenUpdateRequest struct {
	Token    string `json:"token"`
	Register bool   `json:"register"`
	Field    string `json:"field,omitempty"`
	Value    string `json:"value,omitempty"`
}

// TokenHandler decodes token updates and forwards them to the sink.
// Params: sink receives tokens, max body limits payload size.
// Returns: HTTP handler for the token endpoint.
type TokenHandler struct {
	sink        TokenSink
	maxBodySize int64
}

// NewTokenHandler creates the token HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewTokenHandler(sink TokenSink, maxBodySize int64) *TokenHandler {
	return &TokenHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one incoming token update.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode/registration result.
func (h *TokenHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	var decoded tokenUpdateRequest
	if err := json.Unmarshal(body, &decoded); err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(decoded.Token) == "" {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.sink.SetToken(request.Context(), decoded.Token); err != nil {
		writer.WriteHeader(http.StatusBadGateway)
		return
	}
	if decoded.Register {
		if err := h.sink.RegisterToken(request.Context(), decoded.Field, decoded.Value); err != nil {
			writer.WriteHeader(http.StatusBadGateway)
			return
		}
	}
	writer.WriteHeader(http.StatusAccepted)
}
