package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// LocationSink receives device position updates from ingest interfaces.
// Params: context and decimal-degree coordinates.
// Returns: processing error.
type LocationSink interface {
	UpdateLocation(ctx context.Context, latitude, longitude float64) error
}

// locationRequest is the position update body.
type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// LocationHandler decodes position updates and forwards them to the sink.
// Params: sink receives coordinates, max body limits payload size.
// Returns: HTTP handler for the location endpoint.
type LocationHandler struct {
	sink        LocationSink
	maxBodySize int64
}

// NewLocationHandler creates the location HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewLocationHandler(sink LocationSink, maxBodySize int64) *LocationHandler {
	return &LocationHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one incoming position update.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode result.
func (h *LocationHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
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

	var decoded locationRequest
	if err := json.Unmarshal(body, &decoded); err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}
	if decoded.Latitude == nil || decoded.Longitude == nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.sink.UpdateLocation(request.Context(), *decoded.Latitude, *decoded.Longitude); err != nil {
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writer.WriteHeader(http.StatusAccepted)
}
