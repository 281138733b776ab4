package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/wagerlens/slipscan/internal/domain/slip"
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/usecase"
)

type stubSlipService struct {
	ingestFn    func(ctx context.Context, input usecase.IngestInput) (slip.Slip, error)
	getFn       func(ctx context.Context, slipID string) (slip.Slip, error)
	listFn      func(ctx context.Context, ownerID string) ([]slip.Slip, error)
	reresolveFn func(ctx context.Context, slipID string) (int, error)
}

func (s *stubSlipService) Ingest(ctx context.Context, input usecase.IngestInput) (slip.Slip, error) {
	if s.ingestFn == nil {
		return slip.Slip{}, nil
	}
	return s.ingestFn(ctx, input)
}

func (s *stubSlipService) Get(ctx context.Context, slipID string) (slip.Slip, error) {
	if s.getFn == nil {
		return slip.Slip{}, nil
	}
	return s.getFn(ctx, slipID)
}

func (s *stubSlipService) List(ctx context.Context, ownerID string) ([]slip.Slip, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, ownerID)
}

func (s *stubSlipService) Reresolve(ctx context.Context, slipID string) (int, error) {
	if s.reresolveFn == nil {
		return 0, nil
	}
	return s.reresolveFn(ctx, slipID)
}

type stubHTTPResolver struct {
	res sportevent.Resolution
	err error
}

func (s *stubHTTPResolver) ResolveFixture(context.Context, string, string) (sportevent.Resolution, error) {
	return s.res, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(service SlipService, resolver FixtureResolver) http.Handler {
	handler := NewHandler(service, resolver, testLogger())
	return NewRouter(handler, testLogger(), []string{"*"}, "job-secret")
}

func decodeEnvelope(t *testing.T, body []byte) googleResponseEnvelope {
	t.Helper()
	var envelope googleResponseEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, body)
	}
	return envelope
}

func TestCreateSlip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC)
	service := &stubSlipService{
		ingestFn: func(_ context.Context, input usecase.IngestInput) (slip.Slip, error) {
			if input.OwnerID != "owner-1" || input.ImageURL != "https://img.example/slip.jpg" {
				t.Fatalf("unexpected input %+v", input)
			}
			return slip.Slip{
				ID:       "slip-1",
				OwnerID:  input.OwnerID,
				ImageURL: input.ImageURL,
				Status:   slip.StatusParsed,
				Selections: []slip.Selection{
					{ID: "sel-1", MatchText: "J. Sinner vs F. Cerundolo", Tournament: "Paris Masters", StartAt: &start, Resolved: true},
				},
			}, nil
		},
	}
	router := newTestRouter(service, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodPost, "/v1/slips",
		strings.NewReader(`{"owner_id":"owner-1","image_url":"https://img.example/slip.jpg"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.Error != nil {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}

	raw, _ := sonic.Marshal(envelope.Data)
	var dto slipDTO
	if err := sonic.Unmarshal(raw, &dto); err != nil {
		t.Fatalf("decode slip dto: %v", err)
	}
	if dto.ID != "slip-1" || dto.Status != slip.StatusParsed || len(dto.Selections) != 1 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.Selections[0].Tournament == nil || *dto.Selections[0].Tournament != "Paris Masters" {
		t.Fatalf("tournament missing from %+v", dto.Selections[0])
	}
	if dto.Selections[0].StartISO == nil || *dto.Selections[0].StartISO != "2026-09-02T19:00:00Z" {
		t.Fatalf("start_iso missing from %+v", dto.Selections[0])
	}
}

func TestCreateSlip_ValidationError(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubSlipService{}, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodPost, "/v1/slips",
		strings.NewReader(`{"owner_id":"owner-1","image_url":"not a url"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.Error == nil || envelope.Error.Status != "INVALID_ARGUMENT" {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}
}

func TestCreateSlip_MalformedJSON(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubSlipService{}, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodPost, "/v1/slips", strings.NewReader(`{"owner_id":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSlip_NotFound(t *testing.T) {
	t.Parallel()

	service := &stubSlipService{
		getFn: func(_ context.Context, slipID string) (slip.Slip, error) {
			return slip.Slip{}, fmt.Errorf("%w: slip %s", usecase.ErrNotFound, slipID)
		},
	}
	router := newTestRouter(service, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/slips/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.Error == nil || envelope.Error.Status != "NOT_FOUND" {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}
}

func TestListSlips(t *testing.T) {
	t.Parallel()

	service := &stubSlipService{
		listFn: func(_ context.Context, ownerID string) ([]slip.Slip, error) {
			if ownerID != "owner-1" {
				t.Fatalf("unexpected owner %q", ownerID)
			}
			return []slip.Slip{{ID: "slip-1", OwnerID: ownerID}}, nil
		},
	}
	router := newTestRouter(service, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/slips?owner_id=owner-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestResolveFixture_ResolvedAndNull(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC)
	router := newTestRouter(&stubSlipService{}, &stubHTTPResolver{
		res: sportevent.Resolution{Tournament: "Paris Masters", StartAt: start},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/resolve",
		strings.NewReader(`{"match_text":"J. Sinner vs F. Cerundolo","sport_hint":"tennis"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tournament":"Paris Masters"`) ||
		!strings.Contains(rec.Body.String(), `"start_iso":"2026-09-02T19:00:00Z"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	// Unresolved: both fields render as explicit nulls.
	nullRouter := newTestRouter(&stubSlipService{}, &stubHTTPResolver{})
	req = httptest.NewRequest(http.MethodPost, "/v1/resolve",
		strings.NewReader(`{"match_text":"Equipo Fantasma FC vs Atletico Inexistente"}`))
	rec = httptest.NewRecorder()
	nullRouter.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for null resolution, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tournament":null`) ||
		!strings.Contains(rec.Body.String(), `"start_iso":null`) {
		t.Fatalf("null contract violated: %s", rec.Body.String())
	}
}

func TestReresolveSlipJob_RequiresToken(t *testing.T) {
	t.Parallel()

	service := &stubSlipService{
		reresolveFn: func(_ context.Context, slipID string) (int, error) {
			if slipID != "slip-1" {
				t.Fatalf("unexpected slip id %q", slipID)
			}
			return 2, nil
		},
	}
	router := newTestRouter(service, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/slips/reresolve",
		strings.NewReader(`{"slip_id":"slip-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token must 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/slips/reresolve",
		strings.NewReader(`{"slip_id":"slip-1"}`))
	req.Header.Set("X-Internal-Job-Token", "job-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"newly_resolved":2`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	service := &stubSlipService{
		getFn: func(context.Context, string) (slip.Slip, error) {
			panic("boom")
		},
	}
	router := newTestRouter(service, &stubHTTPResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/slips/slip-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec.Body.Bytes())
	if envelope.Error == nil || envelope.Error.Status != "INTERNAL" {
		t.Fatalf("unexpected error body %+v", envelope.Error)
	}
}
