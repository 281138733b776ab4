package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wagerlens/slipscan/internal/usecase"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		httpStatus int
		status     string
	}{
		{"invalid input", fmt.Errorf("%w: bad field", usecase.ErrInvalidInput), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"not found", fmt.Errorf("%w: slip x", usecase.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"dependency unavailable", usecase.ErrDependencyUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		mapped := mapError(context.Background(), tc.err)
		if mapped.HTTPStatus != tc.httpStatus || mapped.Status != tc.status {
			t.Errorf("%s: got %+v", tc.name, mapped)
		}
	}
}

func TestWriteError_Envelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: owner_id is required", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.APIVersion != googleAPIVersion {
		t.Fatalf("unexpected apiVersion %q", envelope.APIVersion)
	}
	if envelope.Error == nil {
		t.Fatal("expected error body")
	}
	if envelope.Error.Code != http.StatusBadRequest || envelope.Error.Status != "INVALID_ARGUMENT" {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}
	if len(envelope.Error.Errors) != 1 || envelope.Error.Errors[0].Domain != errorDomain {
		t.Fatalf("unexpected error items %+v", envelope.Error.Errors)
	}
}

func TestWriteInternalError_HidesDetail(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeInternalError(context.Background(), rec)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.Error == nil || envelope.Error.Message != "internal server error" {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}
}

func TestWriteSuccess_Envelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.APIVersion != googleAPIVersion || envelope.Error != nil {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["status"] != "ok" {
		t.Fatalf("unexpected data %+v", envelope.Data)
	}
}
