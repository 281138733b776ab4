package usecase

import (
	"strings"
	"time"

	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/matchtext"
)

const (
	// A kickoff slightly in the past is still acceptable: the match may have
	// started while the slip photo was being processed.
	defaultPastGrace    = 10 * time.Minute
	defaultAheadHorizon = 72 * time.Hour
)

// genericTournaments are top-level category names that are technically true
// for almost any fixture and therefore useless on a slip.
var genericTournaments = []string{
	"atp tour",
	"wta tour",
	"atp",
	"wta",
	"league",
	"cup",
	"friendly",
}

// specificMarkers rescue a name that contains a generic term but also names a
// concrete competition.
var specificMarkers = []string{
	"masters",
	"grand slam",
	"atp 250",
	"atp 500",
	"atp 1000",
	"wta 250",
	"wta 500",
	"wta 1000",
	"challenger",
	"australian open",
	"roland garros",
	"french open",
	"wimbledon",
	"us open",
	"premier league",
	"la liga",
	"serie a",
	"bundesliga",
	"ligue 1",
	"champions league",
	"europa league",
	"world cup",
}

// validateResolution nulls out fields that are implausible: a kickoff outside
// the [now-grace, now+horizon] window, or a tournament name too generic to be
// useful. Pure and stateless.
func validateResolution(res sportevent.Resolution, now time.Time, grace, horizon time.Duration) sportevent.Resolution {
	if grace <= 0 {
		grace = defaultPastGrace
	}
	if horizon <= 0 {
		horizon = defaultAheadHorizon
	}

	if !res.StartAt.IsZero() {
		if res.StartAt.Before(now.Add(-grace)) || res.StartAt.After(now.Add(horizon)) {
			res.StartAt = time.Time{}
		}
	}

	if res.Tournament != "" && isGenericTournament(res.Tournament) {
		res.Tournament = ""
	}

	return res
}

func isGenericTournament(name string) bool {
	normalized := matchtext.Normalize(name)
	if normalized == "" {
		return true
	}
	for _, marker := range specificMarkers {
		if strings.Contains(normalized, marker) {
			return false
		}
	}
	for _, generic := range genericTournaments {
		if normalized == generic {
			return true
		}
	}
	return false
}
