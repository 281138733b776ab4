package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/wagerlens/slipscan/internal/domain/slip"
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

// SlipService is the slip lifecycle surface the API exposes.
type SlipService interface {
	Ingest(ctx context.Context, input usecase.IngestInput) (slip.Slip, error)
	Get(ctx context.Context, slipID string) (slip.Slip, error)
	List(ctx context.Context, ownerID string) ([]slip.Slip, error)
	Reresolve(ctx context.Context, slipID string) (int, error)
}

// FixtureResolver exposes the resolution engine directly, mainly for clients
// that want to resolve a match text without submitting a slip.
type FixtureResolver interface {
	ResolveFixture(ctx context.Context, matchText, sportHint string) (sportevent.Resolution, error)
}

type Handler struct {
	slipService SlipService
	resolver    FixtureResolver
	logger      *slog.Logger
	validator   *validator.Validate
}

func NewHandler(slipService SlipService, resolver FixtureResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		slipService: slipService,
		resolver:    resolver,
		logger:      logger,
		validator:   validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSlipRequest struct {
	OwnerID  string `json:"owner_id" validate:"required,max=128"`
	ImageURL string `json:"image_url" validate:"required,url,max=2048"`
}

func (h *Handler) CreateSlip(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateSlip")
	defer span.End()

	var payload createSlipRequest
	if err := h.decodeRequest(ctx, r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.slipService.Ingest(ctx, usecase.IngestInput{
		OwnerID:  payload.OwnerID,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "create slip failed", "owner_id", payload.OwnerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, slipToDTO(record))
}

func (h *Handler) GetSlip(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSlip")
	defer span.End()

	slipID := r.PathValue("slipID")
	record, err := h.slipService.Get(ctx, slipID)
	if err != nil {
		h.logger.WarnContext(ctx, "get slip failed", "slip_id", slipID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, slipToDTO(record))
}

func (h *Handler) ListSlips(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSlips")
	defer span.End()

	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	records, err := h.slipService.List(ctx, ownerID)
	if err != nil {
		h.logger.WarnContext(ctx, "list slips failed", "owner_id", ownerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]slipDTO, 0, len(records))
	for _, record := range records {
		items = append(items, slipToDTO(record))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

type resolveFixtureRequest struct {
	MatchText string `json:"match_text" validate:"required,max=256"`
	SportHint string `json:"sport_hint" validate:"omitempty,max=32"`
}

type resolveFixtureResponse struct {
	Tournament *string `json:"tournament"`
	StartISO   *string `json:"start_iso"`
}

func (h *Handler) ResolveFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveFixture")
	defer span.End()

	var payload resolveFixtureRequest
	if err := h.decodeRequest(ctx, r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.resolver.ResolveFixture(ctx, payload.MatchText, payload.SportHint)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve fixture failed", "match_text", payload.MatchText, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, resolutionToDTO(res))
}

type reresolveSlipRequest struct {
	SlipID string `json:"slip_id" validate:"required"`
}

type reresolveSlipResponse struct {
	SlipID        string `json:"slip_id"`
	NewlyResolved int    `json:"newly_resolved"`
}

// ReresolveSlipJob is the deferred-job callback: it retries resolution for a
// slip's unresolved selections.
func (h *Handler) ReresolveSlipJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReresolveSlipJob")
	defer span.End()

	var payload reresolveSlipRequest
	if err := h.decodeRequest(ctx, r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	resolved, err := h.slipService.Reresolve(ctx, payload.SlipID)
	if err != nil {
		h.logger.ErrorContext(ctx, "slip re-resolution job failed", "slip_id", payload.SlipID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reresolveSlipResponse{
		SlipID:        payload.SlipID,
		NewlyResolved: resolved,
	})
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.decodeRequest")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if err := sonic.Unmarshal(body, payload); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", usecase.ErrInvalidInput, err)
	}
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type slipDTO struct {
	ID         string         `json:"id"`
	OwnerID    string         `json:"owner_id"`
	ImageURL   string         `json:"image_url"`
	Status     string         `json:"status"`
	Selections []selectionDTO `json:"selections"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

type selectionDTO struct {
	ID         string  `json:"id"`
	MatchText  string  `json:"match_text"`
	Market     string  `json:"market,omitempty"`
	Pick       string  `json:"pick,omitempty"`
	Odds       float64 `json:"odds,omitempty"`
	Bookmaker  string  `json:"bookmaker,omitempty"`
	Tournament *string `json:"tournament"`
	StartISO   *string `json:"start_iso"`
	Resolved   bool    `json:"resolved"`
}

func slipToDTO(record slip.Slip) slipDTO {
	selections := make([]selectionDTO, 0, len(record.Selections))
	for _, selection := range record.Selections {
		selections = append(selections, selectionToDTO(selection))
	}
	return slipDTO{
		ID:         record.ID,
		OwnerID:    record.OwnerID,
		ImageURL:   record.ImageURL,
		Status:     record.Status,
		Selections: selections,
		CreatedAt:  formatTimestamp(record.CreatedAt),
		UpdatedAt:  formatTimestamp(record.UpdatedAt),
	}
}

func selectionToDTO(selection slip.Selection) selectionDTO {
	dto := selectionDTO{
		ID:        selection.ID,
		MatchText: selection.MatchText,
		Market:    selection.Market,
		Pick:      selection.Pick,
		Odds:      selection.Odds,
		Bookmaker: selection.Bookmaker,
		Resolved:  selection.Resolved,
	}
	if selection.Tournament != "" {
		tournament := selection.Tournament
		dto.Tournament = &tournament
	}
	if selection.StartAt != nil {
		startISO := selection.StartAt.UTC().Format(time.RFC3339)
		dto.StartISO = &startISO
	}
	return dto
}

// resolutionToDTO renders unresolved fields as JSON null, per the contract
// that callers treat null as "leave it blank", never as an error.
func resolutionToDTO(res sportevent.Resolution) resolveFixtureResponse {
	var out resolveFixtureResponse
	if res.Tournament != "" {
		tournament := res.Tournament
		out.Tournament = &tournament
	}
	if !res.StartAt.IsZero() {
		startISO := res.StartISO()
		out.StartISO = &startISO
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
