package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/cache"
)

type fakeSportsClient struct {
	mu          sync.Mutex
	searchCalls int
	eventCalls  int

	searchFn   func(query, sportHint string) ([]sportevent.Candidate, error)
	upcomingFn func(id int64, kind sportevent.EntityKind) ([]sportevent.Event, error)
	previousFn func(id int64, kind sportevent.EntityKind) ([]sportevent.Event, error)
}

func (f *fakeSportsClient) Search(_ context.Context, query, sportHint string) ([]sportevent.Candidate, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(query, sportHint)
}

func (f *fakeSportsClient) UpcomingEvents(_ context.Context, id int64, kind sportevent.EntityKind) ([]sportevent.Event, error) {
	f.mu.Lock()
	f.eventCalls++
	f.mu.Unlock()
	if f.upcomingFn == nil {
		return nil, nil
	}
	return f.upcomingFn(id, kind)
}

func (f *fakeSportsClient) PreviousEvents(_ context.Context, id int64, kind sportevent.EntityKind) ([]sportevent.Event, error) {
	f.mu.Lock()
	f.eventCalls++
	f.mu.Unlock()
	if f.previousFn == nil {
		return nil, nil
	}
	return f.previousFn(id, kind)
}

func (f *fakeSportsClient) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.eventCalls
}

type fakeVerifier struct {
	calls int
	res   sportevent.Resolution
	found bool
	err   error
}

func (f *fakeVerifier) VerifyFixture(context.Context, string, string) (sportevent.Resolution, bool, error) {
	f.calls++
	return f.res, f.found, f.err
}

func sinnerCerundoloClient(start int64) *fakeSportsClient {
	event := sportevent.Event{
		HomeName:       "Jannik Sinner",
		AwayName:       "Francisco Cerúndolo",
		TournamentName: "Paris Masters",
		StartTimestamp: start,
	}
	return &fakeSportsClient{
		searchFn: func(query, _ string) ([]sportevent.Candidate, error) {
			if strings.Contains(query, "sinner") || strings.Contains(query, "cerundolo") || strings.Contains(query, "cerúndolo") {
				return []sportevent.Candidate{{Kind: sportevent.KindPlayer, ExternalID: 101, DisplayName: "Jannik Sinner"}}, nil
			}
			return nil, nil
		},
		upcomingFn: func(int64, sportevent.EntityKind) ([]sportevent.Event, error) {
			return []sportevent.Event{event}, nil
		},
	}
}

func TestResolveFixture_CombinedQueryHappyPath(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(time.Hour).Unix()
	client := sinnerCerundoloClient(start)
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "J. Sinner vs F. Cerúndolo", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Tournament != "Paris Masters" {
		t.Fatalf("unexpected tournament %q", res.Tournament)
	}
	if res.StartAt.Unix() != start {
		t.Fatalf("unexpected start %v", res.StartAt)
	}
	if res.StartISO() != time.Unix(start, 0).UTC().Format(time.RFC3339) {
		t.Fatalf("unexpected iso %q", res.StartISO())
	}
}

func TestResolveFixture_SymmetricUnderSideOrder(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(time.Hour).Unix()

	a, err := NewResolutionService(sinnerCerundoloClient(start), nil, nil, nil, ResolutionConfig{}).
		ResolveFixture(context.Background(), "J. Sinner vs F. Cerúndolo", "tennis")
	if err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	b, err := NewResolutionService(sinnerCerundoloClient(start), nil, nil, nil, ResolutionConfig{}).
		ResolveFixture(context.Background(), "F. Cerúndolo vs J. Sinner", "tennis")
	if err != nil {
		t.Fatalf("resolve b: %v", err)
	}

	if a != b {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
}

func TestResolveFixture_CachedResultIssuesNoUpstreamCalls(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(time.Hour).Unix()
	client := sinnerCerundoloClient(start)
	store := cache.NewStore(5 * time.Minute)
	svc := NewResolutionService(client, nil, store, nil, ResolutionConfig{})

	first, err := svc.ResolveFixture(context.Background(), "J. Sinner vs F. Cerúndolo", "tennis")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	searchesAfterFirst, eventsAfterFirst := client.counts()

	second, err := svc.ResolveFixture(context.Background(), "J. Sinner vs F. Cerúndolo", "tennis")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first != second {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
	searches, events := client.counts()
	if searches != searchesAfterFirst || events != eventsAfterFirst {
		t.Fatalf("cached resolve issued upstream calls: %d->%d searches, %d->%d events",
			searchesAfterFirst, searches, eventsAfterFirst, events)
	}
}

func TestResolveFixture_UnsplittableInputMakesNoCalls(t *testing.T) {
	t.Parallel()

	client := &fakeSportsClient{}
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "just a tournament name", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
	if searches, events := client.counts(); searches != 0 || events != 0 {
		t.Fatalf("expected zero upstream calls, got %d searches %d events", searches, events)
	}
}

func TestResolveFixture_NoSearchHitsSkipsEventLookups(t *testing.T) {
	t.Parallel()

	client := &fakeSportsClient{} // every search returns no candidates
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "Equipo Fantasma FC vs Atlético Inexistente", "football")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
	if _, events := client.counts(); events != 0 {
		t.Fatalf("search exhaustion must short-circuit before lookups, got %d event calls", events)
	}
}

func TestResolveFixture_SingleSideCoincidenceNotReturned(t *testing.T) {
	t.Parallel()

	client := &fakeSportsClient{
		searchFn: func(query, _ string) ([]sportevent.Candidate, error) {
			if strings.Contains(query, "sinner") {
				return []sportevent.Candidate{{Kind: sportevent.KindPlayer, ExternalID: 101, DisplayName: "Jannik Sinner"}}, nil
			}
			return nil, nil
		},
		upcomingFn: func(int64, sportevent.EntityKind) ([]sportevent.Event, error) {
			// Home matches the left side; away matches nothing the slip said.
			return []sportevent.Event{{
				HomeName:       "Jannik Sinner",
				AwayName:       "Carlos Alcaraz",
				TournamentName: "Paris Masters",
				StartTimestamp: time.Now().Add(time.Hour).Unix(),
			}}, nil
		},
	}
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "J. Sinner vs F. Cerúndolo", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("single-side coincidence must not resolve, got %+v", res)
	}
}

func TestResolveFixture_CrossReferenceFallback(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(2 * time.Hour).Unix()
	fixture := func(tournament string, ts int64) sportevent.Event {
		return sportevent.Event{
			HomeName:       "Jannik Sinner",
			AwayName:       "Francisco Cerundolo",
			TournamentName: tournament,
			StartTimestamp: ts,
		}
	}

	client := &fakeSportsClient{
		searchFn: func(query, _ string) ([]sportevent.Candidate, error) {
			switch {
			case strings.Contains(query, " "): // combined query: no hits
				return nil, nil
			case strings.Contains(query, "sinner"):
				return []sportevent.Candidate{{Kind: sportevent.KindPlayer, ExternalID: 101}}, nil
			case strings.Contains(query, "cerundolo"), strings.Contains(query, "cerúndolo"):
				return []sportevent.Candidate{{Kind: sportevent.KindPlayer, ExternalID: 202}}, nil
			default:
				return nil, nil
			}
		},
		upcomingFn: func(id int64, _ sportevent.EntityKind) ([]sportevent.Event, error) {
			switch id {
			case 101:
				return []sportevent.Event{fixture("", 0)}, nil
			case 202:
				return []sportevent.Event{fixture("Paris Masters", start)}, nil
			default:
				return nil, nil
			}
		},
	}
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "Sinner vs Cerundolo", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Tournament != "Paris Masters" || res.StartAt.Unix() != start {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveFixture_VerifierFallbackUsed(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{
		res:   sportevent.Resolution{Tournament: "Swiss Indoors Basel (ATP 500)", StartAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second)},
		found: true,
	}
	svc := NewResolutionService(&fakeSportsClient{}, verifier, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "Unknown One vs Unknown Two", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected one verifier call, got %d", verifier.calls)
	}
	if res.Tournament != "Swiss Indoors Basel (ATP 500)" {
		t.Fatalf("unexpected tournament %q", res.Tournament)
	}
}

func TestResolveFixture_StrategyErrorDoesNotPropagate(t *testing.T) {
	t.Parallel()

	client := &fakeSportsClient{
		searchFn: func(string, string) ([]sportevent.Candidate, error) {
			return nil, fmt.Errorf("provider down")
		},
	}
	verifier := &fakeVerifier{err: fmt.Errorf("verifier down")}
	svc := NewResolutionService(client, verifier, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "A Team vs B Team", "football")
	if err != nil {
		t.Fatalf("upstream failures must not propagate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
}

func TestResolveFixture_ValidatorNullsImplausibleResult(t *testing.T) {
	t.Parallel()

	// Fixture resolved fine but kicked off yesterday: time must be nulled
	// while the concrete tournament survives.
	start := time.Now().Add(-24 * time.Hour).Unix()
	client := sinnerCerundoloClient(start)
	svc := NewResolutionService(client, nil, nil, nil, ResolutionConfig{})

	res, err := svc.ResolveFixture(context.Background(), "Sinner vs Cerundolo", "tennis")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.StartAt.IsZero() {
		t.Fatalf("stale kickoff must be nulled, got %v", res.StartAt)
	}
	if res.Tournament != "Paris Masters" {
		t.Fatalf("tournament should survive, got %q", res.Tournament)
	}
}
