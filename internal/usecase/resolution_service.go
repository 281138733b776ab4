package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/logging"
	"github.com/wagerlens/slipscan/internal/platform/matchtext"
)

// SportsDataClient is the provider surface the resolution engine consumes:
// entity search plus per-entity schedules.
type SportsDataClient interface {
	Search(ctx context.Context, query, sportHint string) ([]sportevent.Candidate, error)
	UpcomingEvents(ctx context.Context, externalID int64, kind sportevent.EntityKind) ([]sportevent.Event, error)
	PreviousEvents(ctx context.Context, externalID int64, kind sportevent.EntityKind) ([]sportevent.Event, error)
}

// FixtureVerifier is the trusted-source fallback consulted when provider
// search finds nothing. ok=false means "no confident answer", not an error.
type FixtureVerifier interface {
	VerifyFixture(ctx context.Context, matchText, sportHint string) (res sportevent.Resolution, ok bool, err error)
}

// ResolutionCache decouples the orchestrator from the cache implementation so
// tests can disable it and deployments can swap it out.
type ResolutionCache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
}

type ResolutionConfig struct {
	PastGrace      time.Duration
	AheadHorizon   time.Duration
	AttemptTimeout time.Duration

	// External call volume caps keep worst-case latency bounded even when no
	// match exists.
	MaxCombinedQueries    int
	MaxCandidatesPerQuery int
	MaxCandidatesPerSide  int
}

func normalizeResolutionConfig(cfg ResolutionConfig) ResolutionConfig {
	if cfg.PastGrace <= 0 {
		cfg.PastGrace = defaultPastGrace
	}
	if cfg.AheadHorizon <= 0 {
		cfg.AheadHorizon = defaultAheadHorizon
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 45 * time.Second
	}
	if cfg.MaxCombinedQueries < 1 {
		cfg.MaxCombinedQueries = 6
	}
	if cfg.MaxCandidatesPerQuery < 1 {
		cfg.MaxCandidatesPerQuery = 3
	}
	if cfg.MaxCandidatesPerSide < 1 {
		cfg.MaxCandidatesPerSide = 3
	}
	return cfg
}

type resolveQuery struct {
	matchText string
	sportHint string
	left      []string
	right     []string
}

// resolutionStrategy is one stage of the fallback pipeline. Stages are
// composed in a fixed order and the first hit short-circuits the rest.
type resolutionStrategy interface {
	name() string
	tryResolve(ctx context.Context, q resolveQuery) (sportevent.Resolution, bool, error)
}

// ResolutionService turns a loosely formatted match description into a
// verified tournament name and kickoff time, or a null result when no
// confident match exists. Null results are normal outcomes, never errors.
type ResolutionService struct {
	cache  ResolutionCache
	logger *logging.Logger
	cfg    ResolutionConfig
	stages []resolutionStrategy
	now    func() time.Time
}

func NewResolutionService(
	client SportsDataClient,
	verifier FixtureVerifier,
	cache ResolutionCache,
	logger *logging.Logger,
	cfg ResolutionConfig,
) *ResolutionService {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = normalizeResolutionConfig(cfg)

	stages := []resolutionStrategy{
		&combinedQueryStrategy{client: client, cfg: cfg, logger: logger},
		&crossReferenceStrategy{client: client, cfg: cfg, logger: logger},
	}
	if verifier != nil {
		stages = append(stages, &verifiedSourceStrategy{verifier: verifier})
	}

	return &ResolutionService{
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		stages: stages,
		now:    time.Now,
	}
}

// ResolveFixture runs the strategy pipeline for one match description.
// Upstream failures inside a stage never propagate; the only observable
// failure mode for "nothing found" is a zero Resolution.
func (s *ResolutionService) ResolveFixture(ctx context.Context, matchText, sportHint string) (sportevent.Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResolutionService.ResolveFixture")
	defer span.End()

	sides := matchtext.SplitSides(matchText)
	if len(sides) < 2 {
		s.logger.DebugContext(ctx, "match text has fewer than two sides", "match_text", matchText)
		return sportevent.Resolution{}, nil
	}

	q := resolveQuery{
		matchText: matchText,
		sportHint: strings.ToLower(strings.TrimSpace(sportHint)),
		left:      matchtext.WithDiacriticAlternates(matchtext.Variants(sides[0])),
		right:     matchtext.WithDiacriticAlternates(matchtext.Variants(sides[1])),
	}

	key := resolutionCacheKey(q)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			if res, ok := cached.(sportevent.Resolution); ok {
				return res, nil
			}
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	var result sportevent.Resolution
	for _, stage := range s.stages {
		res, ok, err := stage.tryResolve(attemptCtx, q)
		if err != nil {
			s.logger.WarnContext(ctx, "resolution strategy failed",
				"strategy", stage.name(),
				"match_text", matchText,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}
		result = validateResolution(res, s.now(), s.cfg.PastGrace, s.cfg.AheadHorizon)
		s.logger.InfoContext(ctx, "fixture resolved",
			"strategy", stage.name(),
			"match_text", matchText,
			"tournament", result.Tournament,
			"start_iso", result.StartISO(),
		)
		break
	}

	// Exhausted pipelines are cached too: a miss is as cacheable as a hit.
	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

// resolutionCacheKey is symmetric in side order: "A vs B" and "B vs A" share
// one entry.
func resolutionCacheKey(q resolveQuery) string {
	variants := make([]string, 0, len(q.left)+len(q.right))
	variants = append(variants, q.left...)
	variants = append(variants, q.right...)
	sort.Strings(variants)
	return "resolve:" + q.sportHint + ":" + strings.Join(variants, ",")
}

// combinedQueryStrategy searches each (left, right) variant pair as one joint
// query and scans the resulting entities' schedules for an event satisfying
// both sides.
type combinedQueryStrategy struct {
	client SportsDataClient
	cfg    ResolutionConfig
	logger *logging.Logger
}

func (s *combinedQueryStrategy) name() string { return "combined_query" }

func (s *combinedQueryStrategy) tryResolve(ctx context.Context, q resolveQuery) (sportevent.Resolution, bool, error) {
	queries := make([]string, 0, s.cfg.MaxCombinedQueries)
combinations:
	for _, leftVariant := range q.left {
		for _, rightVariant := range q.right {
			if len(queries) >= s.cfg.MaxCombinedQueries {
				break combinations
			}
			queries = append(queries, leftVariant+" "+rightVariant)
		}
	}

	for _, query := range queries {
		candidates, err := s.client.Search(ctx, query, q.sportHint)
		if err != nil {
			s.logger.DebugContext(ctx, "combined search failed", "query", query, "error", err)
			continue
		}
		if len(candidates) > s.cfg.MaxCandidatesPerQuery {
			candidates = candidates[:s.cfg.MaxCandidatesPerQuery]
		}

		for _, candidate := range candidates {
			events := fetchCandidateEvents(ctx, s.client, candidate, s.logger)
			if ev, ok := firstMatchingEvent(events, q.left, q.right); ok {
				return resolutionFromEvent(ev), true, nil
			}
		}
	}

	return sportevent.Resolution{}, false, nil
}

// crossReferenceStrategy searches each side independently, fans out schedule
// lookups for both sides' top candidates, and intersects the two fixture
// lists by signature.
type crossReferenceStrategy struct {
	client SportsDataClient
	cfg    ResolutionConfig
	logger *logging.Logger
}

func (s *crossReferenceStrategy) name() string { return "cross_reference" }

func (s *crossReferenceStrategy) tryResolve(ctx context.Context, q resolveQuery) (sportevent.Resolution, bool, error) {
	leftCandidates, ok := s.searchSide(ctx, q.left, q.sportHint)
	if !ok {
		return sportevent.Resolution{}, false, nil
	}
	rightCandidates, ok := s.searchSide(ctx, q.right, q.sportHint)
	if !ok {
		return sportevent.Resolution{}, false, nil
	}

	leftEvents := s.collectEvents(ctx, leftCandidates)
	rightEvents := s.collectEvents(ctx, rightCandidates)

	res, found := firstSignatureCollision(leftEvents, rightEvents)
	return res, found, nil
}

// searchSide tries each variant in order until one yields candidates; the
// first success wins and later variants are not merged in.
func (s *crossReferenceStrategy) searchSide(ctx context.Context, variants []string, sportHint string) ([]sportevent.Candidate, bool) {
	for _, variant := range variants {
		candidates, err := s.client.Search(ctx, variant, sportHint)
		if err != nil {
			s.logger.DebugContext(ctx, "side search failed", "query", variant, "error", err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > s.cfg.MaxCandidatesPerSide {
			candidates = candidates[:s.cfg.MaxCandidatesPerSide]
		}
		return candidates, true
	}
	return nil, false
}

// collectEvents fans out one schedule lookup per candidate and gathers every
// outcome: a failed branch contributes nothing but never aborts its siblings.
func (s *crossReferenceStrategy) collectEvents(ctx context.Context, candidates []sportevent.Candidate) []sportevent.Event {
	perCandidate := make([][]sportevent.Event, len(candidates))

	var wg conc.WaitGroup
	for i, candidate := range candidates {
		i, candidate := i, candidate
		wg.Go(func() {
			perCandidate[i] = fetchCandidateEvents(ctx, s.client, candidate, s.logger)
		})
	}
	wg.Wait()

	var out []sportevent.Event
	for _, events := range perCandidate {
		out = append(out, events...)
	}
	return out
}

// fetchCandidateEvents pulls the candidate's upcoming schedule, falling back
// to recent events when nothing is scheduled (the slip may describe a match
// already underway). Errors degrade to an empty list.
func fetchCandidateEvents(ctx context.Context, client SportsDataClient, candidate sportevent.Candidate, logger *logging.Logger) []sportevent.Event {
	events, err := client.UpcomingEvents(ctx, candidate.ExternalID, candidate.Kind)
	if err != nil {
		logger.DebugContext(ctx, "upcoming events lookup failed",
			"entity_id", candidate.ExternalID,
			"kind", candidate.Kind,
			"error", err,
		)
		events = nil
	}
	if len(events) > 0 {
		return events
	}

	previous, err := client.PreviousEvents(ctx, candidate.ExternalID, candidate.Kind)
	if err != nil {
		logger.DebugContext(ctx, "previous events lookup failed",
			"entity_id", candidate.ExternalID,
			"kind", candidate.Kind,
			"error", err,
		)
		return nil
	}
	return previous
}

// verifiedSourceStrategy delegates to the allow-listed external verifier.
type verifiedSourceStrategy struct {
	verifier FixtureVerifier
}

func (s *verifiedSourceStrategy) name() string { return "verified_source" }

func (s *verifiedSourceStrategy) tryResolve(ctx context.Context, q resolveQuery) (sportevent.Resolution, bool, error) {
	return s.verifier.VerifyFixture(ctx, q.matchText, q.sportHint)
}
