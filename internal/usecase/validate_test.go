package usecase

import (
	"testing"
	"time"

	"github.com/wagerlens/slipscan/internal/domain/sportevent"
)

func TestValidateResolution_TemporalBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	grace := 10 * time.Minute
	horizon := 72 * time.Hour

	cases := []struct {
		name    string
		startAt time.Time
		keep    bool
	}{
		{"exactly at grace boundary", now.Add(-10 * time.Minute), true},
		{"one minute past grace", now.Add(-11 * time.Minute), false},
		{"one second inside horizon", now.Add(72*time.Hour - time.Second), true},
		{"exactly at horizon", now.Add(72 * time.Hour), true},
		{"one second past horizon", now.Add(72*time.Hour + time.Second), false},
		{"kickoff in an hour", now.Add(time.Hour), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := validateResolution(sportevent.Resolution{
				Tournament: "Paris Masters",
				StartAt:    tc.startAt,
			}, now, grace, horizon)

			if tc.keep && res.StartAt.IsZero() {
				t.Fatal("expected start time to survive validation")
			}
			if !tc.keep && !res.StartAt.IsZero() {
				t.Fatalf("expected start time to be nulled, got %v", res.StartAt)
			}
		})
	}
}

func TestValidateResolution_GenericTournamentNulled(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cases := []struct {
		tournament string
		keep       bool
	}{
		{"ATP Tour", false},
		{"WTA Tour", false},
		{"League", false},
		{"Swiss Indoors Basel (ATP 500)", true},
		{"Paris Masters", true},
		{"Wimbledon", true},
		{"Premier League", true},
	}

	for _, tc := range cases {
		res := validateResolution(sportevent.Resolution{Tournament: tc.tournament}, now, 0, 0)
		if tc.keep && res.Tournament == "" {
			t.Fatalf("%q: expected tournament to survive", tc.tournament)
		}
		if !tc.keep && res.Tournament != "" {
			t.Fatalf("%q: expected tournament to be nulled", tc.tournament)
		}
	}
}

func TestValidateResolution_EmptyResultPassesThrough(t *testing.T) {
	t.Parallel()

	res := validateResolution(sportevent.Resolution{}, time.Now(), 0, 0)
	if !res.Empty() {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
}
