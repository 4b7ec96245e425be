package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geopush/internal/domain"
	"geopush/internal/interaction"
)

type fakePayloadSink struct {
	payloads [][]byte
	err      error
}

func (f *fakePayloadSink) HandlePayload(ctx context.Context, raw []byte) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, raw)
	return nil
}

type fakeInteractionSink struct {
	got []interaction.Interaction
	err error
}

func (f *fakeInteractionSink) HandleInteraction(ctx context.Context, in interaction.Interaction) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, in)
	return nil
}

func TestPayloadHandlerAccepts(t *testing.T) {
	t.Parallel()

	sink := &fakePayloadSink{}
	handler := NewPayloadHandler(sink, 1<<20)
	body := `{"aps":{"message-hash":"h1","title":"t","body":"b"}}`

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/notification", strings.NewReader(body)))

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if len(sink.payloads) != 1 {
		t.Fatalf("expected payload forwarded, got %d", len(sink.payloads))
	}
}

func TestPayloadHandlerRejectsBadPayload(t *testing.T) {
	t.Parallel()

	sink := &fakePayloadSink{err: errors.New("no aps envelope")}
	handler := NewPayloadHandler(sink, 1<<20)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/notification", strings.NewReader(`{}`)))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestPayloadHandlerMethodNotAllowed(t *testing.T) {
	t.Parallel()

	handler := NewPayloadHandler(&fakePayloadSink{}, 1<<20)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/notification", nil))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestInteractionHandlerRoutes(t *testing.T) {
	t.Parallel()

	sink := &fakeInteractionSink{}
	handler := NewInteractionHandler(sink, 1<<20)
	body := `{"kind":"confirm","hash":"h1"}`

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/interaction", strings.NewReader(body)))

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if len(sink.got) != 1 {
		t.Fatalf("expected interaction forwarded")
	}
	if sink.got[0].Kind != domain.InteractionConfirm || sink.got[0].Key != "h1" {
		t.Fatalf("unexpected interaction: %+v", sink.got[0])
	}
}

func TestInteractionHandlerRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	handler := NewInteractionHandler(&fakeInteractionSink{}, 1<<20)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/interaction", strings.NewReader(`{"kind":"swipe","hash":"h1"}`)))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestInteractionHandlerUnresolved(t *testing.T) {
	t.Parallel()

	sink := &fakeInteractionSink{err: interaction.ErrUnresolved}
	handler := NewInteractionHandler(sink, 1<<20)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/interaction", strings.NewReader(`{"kind":"default","hash":"ghost"}`)))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
