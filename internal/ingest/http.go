package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"geopush/internal/domain"
	"geopush/internal/interaction"
)

// PayloadSink receives raw push payloads from ingest interfaces.
// Params: context and raw JSON payload.
// Returns: decode error for malformed payloads.
type PayloadSink interface {
	HandlePayload(ctx context.Context, raw []byte) error
}

// InteractionSink receives decoded interactions from ingest interfaces.
// Params: context and interaction.
// Returns: routing error.
type InteractionSink interface {
	HandleInteraction(ctx context.Context, in interaction.Interaction) error
}

// PayloadHandler decodes JSON push payloads and forwards them to the sink.
// Params: sink receives raw payloads, max body limits payload size.
// Returns: HTTP handler for the payload endpoint.
type PayloadHandler struct {
	sink        PayloadSink
	maxBodySize int64
}

// NewPayloadHandler creates the payload HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewPayloadHandler(sink PayloadSink, maxBodySize int64) *PayloadHandler {
	return &PayloadHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one incoming payload request.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode result.
func (h *PayloadHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
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

	if err := h.sink.HandlePayload(request.Context(), body); err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}

// interactionRequest is the interaction endpoint body.
type interactionRequest struct {
	Kind    string         `json:"kind"`
	Hash    string         `json:"hash"`
	Payload map[string]any `json:"payload,omitempty"`
}

// InteractionHandler decodes interaction requests and forwards them to the sink.
// Params: sink receives interactions, max body limits payload size.
// Returns: HTTP handler for the interaction endpoint.
type InteractionHandler struct {
	sink        InteractionSink
	maxBodySize int64
}

// NewInteractionHandler creates the interaction HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewInteractionHandler(sink InteractionSink, maxBodySize int64) *InteractionHandler {
	return &InteractionHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one incoming interaction request.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode/routing result.
func (h *InteractionHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
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

	var decoded interactionRequest
	if err := json.Unmarshal(body, &decoded); err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}
	kind, ok := parseInteractionKind(decoded.Kind)
	if !ok {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.sink.HandleInteraction(request.Context(), interaction.Interaction{
		Kind:    kind,
		Key:     decoded.Hash,
		Payload: decoded.Payload,
	})
	if err != nil {
		if errors.Is(err, interaction.ErrUnresolved) {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}

// parseInteractionKind validates one interaction kind value.
// Params: raw kind string.
// Returns: typed kind and validity flag.
func parseInteractionKind(raw string) (domain.InteractionKind, bool) {
	switch domain.InteractionKind(raw) {
	case domain.InteractionDefault, domain.InteractionConfirm, domain.InteractionClose, domain.InteractionForeground:
		return domain.InteractionKind(raw), true
	default:
		return "", false
	}
}
