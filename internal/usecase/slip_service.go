package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/wagerlens/slipscan/internal/domain/slip"
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/id"
	"github.com/wagerlens/slipscan/internal/platform/logging"
)

// SelectionExtractor reads raw wager lines off a slip image.
type SelectionExtractor interface {
	Extract(ctx context.Context, imageURL string) ([]slip.RawSelection, error)
}

// FixtureResolver resolves one match description. A zero Resolution means
// "no confident match", never a failure.
type FixtureResolver interface {
	ResolveFixture(ctx context.Context, matchText, sportHint string) (sportevent.Resolution, error)
}

// ReresolveScheduler defers another resolution pass for slips that still have
// unresolved selections.
type ReresolveScheduler interface {
	EnqueueSlipReresolve(ctx context.Context, slipID string, delay time.Duration) error
}

type SlipServiceConfig struct {
	MaxWorkers     int
	ReresolveDelay time.Duration
}

func normalizeSlipServiceConfig(cfg SlipServiceConfig) SlipServiceConfig {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 4
	}
	if cfg.ReresolveDelay <= 0 {
		cfg.ReresolveDelay = 30 * time.Minute
	}
	return cfg
}

// SlipService owns the slip lifecycle: ingest a photo, extract its wager
// lines, resolve each line's fixture, persist everything.
type SlipService struct {
	repo      slip.Repository
	extractor SelectionExtractor
	resolver  FixtureResolver
	scheduler ReresolveScheduler
	ids       id.Generator
	logger    *logging.Logger
	cfg       SlipServiceConfig
	now       func() time.Time
}

func NewSlipService(
	repo slip.Repository,
	extractor SelectionExtractor,
	resolver FixtureResolver,
	scheduler ReresolveScheduler,
	ids id.Generator,
	logger *logging.Logger,
	cfg SlipServiceConfig,
) *SlipService {
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlipService{
		repo:      repo,
		extractor: extractor,
		resolver:  resolver,
		scheduler: scheduler,
		ids:       ids,
		logger:    logger,
		cfg:       normalizeSlipServiceConfig(cfg),
		now:       time.Now,
	}
}

type IngestInput struct {
	OwnerID  string
	ImageURL string
}

// Ingest runs the full pipeline for one submitted slip photo. The slip record
// is created first so a failed extraction still leaves an auditable FAILED
// row behind.
func (s *SlipService) Ingest(ctx context.Context, input IngestInput) (slip.Slip, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SlipService.Ingest")
	defer span.End()

	ownerID := strings.TrimSpace(input.OwnerID)
	imageURL := strings.TrimSpace(input.ImageURL)
	if ownerID == "" {
		return slip.Slip{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if imageURL == "" {
		return slip.Slip{}, fmt.Errorf("%w: image url is required", ErrInvalidInput)
	}

	slipID, err := s.ids.NewID()
	if err != nil {
		return slip.Slip{}, fmt.Errorf("generate slip id: %w", err)
	}

	now := s.now().UTC()
	record := slip.Slip{
		ID:        slipID,
		OwnerID:   ownerID,
		ImageURL:  imageURL,
		Status:    slip.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertSlip(ctx, record); err != nil {
		return slip.Slip{}, fmt.Errorf("insert slip: %w", err)
	}

	rawSelections, err := s.extractor.Extract(ctx, imageURL)
	if err != nil {
		s.markFailed(ctx, record.ID)
		return slip.Slip{}, fmt.Errorf("%w: extract selections: %v", ErrDependencyUnavailable, err)
	}
	if len(rawSelections) == 0 {
		s.logger.InfoContext(ctx, "no selections extracted from slip", "slip_id", record.ID)
		s.markFailed(ctx, record.ID)
		record.Status = slip.StatusFailed
		return record, nil
	}

	selections, unresolved, err := s.resolveSelections(ctx, record.ID, rawSelections)
	if err != nil {
		s.markFailed(ctx, record.ID)
		return slip.Slip{}, err
	}

	if err := s.repo.InsertSelections(ctx, record.ID, selections); err != nil {
		s.markFailed(ctx, record.ID)
		return slip.Slip{}, fmt.Errorf("insert selections: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, record.ID, slip.StatusParsed); err != nil {
		return slip.Slip{}, fmt.Errorf("update slip status: %w", err)
	}
	record.Status = slip.StatusParsed
	record.Selections = selections

	if unresolved > 0 && s.scheduler != nil {
		if err := s.scheduler.EnqueueSlipReresolve(ctx, record.ID, s.cfg.ReresolveDelay); err != nil {
			// Retry scheduling is best effort, the slip itself is parsed.
			s.logger.WarnContext(ctx, "schedule slip re-resolution failed",
				"slip_id", record.ID,
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "slip ingested",
		"slip_id", record.ID,
		"selections", len(selections),
		"unresolved", unresolved,
	)
	return record, nil
}

// resolveSelections resolves every raw line on a worker pool and returns
// selections in slip order plus the count still unresolved. A resolution
// failure leaves its line unresolved, it never fails the slip.
func (s *SlipService) resolveSelections(ctx context.Context, slipID string, raw []slip.RawSelection) ([]slip.Selection, int, error) {
	workerCount := s.cfg.MaxWorkers
	if workerCount > len(raw) {
		workerCount = len(raw)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	selections := make([]slip.Selection, len(raw))
	var unresolvedCount atomic.Int32

	var workers sync.WaitGroup
	for i, line := range raw {
		i, line := i, line
		selectionID, err := s.ids.NewID()
		if err != nil {
			workers.Wait()
			return nil, 0, fmt.Errorf("generate selection id: %w", err)
		}
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			selection := slip.Selection{
				ID:        selectionID,
				SlipID:    slipID,
				MatchText: line.MatchText,
				Market:    line.Market,
				Pick:      line.Pick,
				Odds:      line.Odds,
				Bookmaker: line.BookmakerText,
			}

			res, resolveErr := s.resolver.ResolveFixture(ctx, line.MatchText, line.SportHint)
			if resolveErr != nil {
				s.logger.WarnContext(ctx, "selection resolution failed",
					"slip_id", slipID,
					"match_text", line.MatchText,
					"error", resolveErr,
				)
			}
			applyResolution(&selection, line, res)
			if !selection.Resolved {
				unresolvedCount.Add(1)
			}

			selections[i] = selection
		}); err != nil {
			workers.Done()
			return nil, 0, fmt.Errorf("submit selection to worker pool: %w", err)
		}
	}
	workers.Wait()

	return selections, int(unresolvedCount.Load()), nil
}

// applyResolution fills the resolved fields, falling back to whatever the
// slip itself printed when the engine found nothing.
func applyResolution(selection *slip.Selection, line slip.RawSelection, res sportevent.Resolution) {
	selection.Tournament = res.Tournament
	if selection.Tournament == "" {
		selection.Tournament = line.TournamentText
	}
	if !res.StartAt.IsZero() {
		startAt := res.StartAt.UTC()
		selection.StartAt = &startAt
	}
	selection.Resolved = res.Tournament != "" && !res.StartAt.IsZero()
}

// Reresolve retries resolution for a slip's unresolved selections. Called by
// the deferred job the ingest path scheduled.
func (s *SlipService) Reresolve(ctx context.Context, slipID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SlipService.Reresolve")
	defer span.End()

	slipID = strings.TrimSpace(slipID)
	if slipID == "" {
		return 0, fmt.Errorf("%w: slip id is required", ErrInvalidInput)
	}

	record, found, err := s.repo.GetByID(ctx, slipID)
	if err != nil {
		return 0, fmt.Errorf("load slip: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: slip %s", ErrNotFound, slipID)
	}

	resolved := 0
	for _, selection := range record.Selections {
		if selection.Resolved {
			continue
		}
		res, err := s.resolver.ResolveFixture(ctx, selection.MatchText, "")
		if err != nil {
			s.logger.WarnContext(ctx, "selection re-resolution failed",
				"slip_id", slipID,
				"selection_id", selection.ID,
				"error", err,
			)
			continue
		}
		if res.Empty() || res.StartAt.IsZero() || res.Tournament == "" {
			continue
		}
		startAt := res.StartAt.UTC()
		if err := s.repo.UpdateSelectionResolution(ctx, selection.ID, res.Tournament, &startAt); err != nil {
			return resolved, fmt.Errorf("update selection %s: %w", selection.ID, err)
		}
		resolved++
	}

	s.logger.InfoContext(ctx, "slip re-resolution finished",
		"slip_id", slipID,
		"newly_resolved", resolved,
	)
	return resolved, nil
}

func (s *SlipService) Get(ctx context.Context, slipID string) (slip.Slip, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SlipService.Get")
	defer span.End()

	slipID = strings.TrimSpace(slipID)
	if slipID == "" {
		return slip.Slip{}, fmt.Errorf("%w: slip id is required", ErrInvalidInput)
	}

	record, found, err := s.repo.GetByID(ctx, slipID)
	if err != nil {
		return slip.Slip{}, fmt.Errorf("load slip: %w", err)
	}
	if !found {
		return slip.Slip{}, fmt.Errorf("%w: slip %s", ErrNotFound, slipID)
	}
	return record, nil
}

func (s *SlipService) List(ctx context.Context, ownerID string) ([]slip.Slip, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SlipService.List")
	defer span.End()

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}

	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list slips: %w", err)
	}
	return records, nil
}

func (s *SlipService) markFailed(ctx context.Context, slipID string) {
	if err := s.repo.UpdateStatus(ctx, slipID, slip.StatusFailed); err != nil {
		s.logger.WarnContext(ctx, "mark slip failed", "slip_id", slipID, "error", err)
	}
}
