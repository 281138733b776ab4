package usecase

import (
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/matchtext"
)

// eventMatchesSides reports whether one side's variant appears in the home
// name and the other side's variant in the away name (or vice versa). The two
// fixture fields must be genuinely distinct strings: a single shared surname
// showing up in both variant sets cannot satisfy both sides through one field.
func eventMatchesSides(ev sportevent.Event, left, right []string) bool {
	home := matchtext.Normalize(ev.HomeName)
	away := matchtext.Normalize(ev.AwayName)
	if home == "" || away == "" || home == away {
		return false
	}

	leftInHome := containsAnyVariant(ev.HomeName, left)
	leftInAway := containsAnyVariant(ev.AwayName, left)
	rightInHome := containsAnyVariant(ev.HomeName, right)
	rightInAway := containsAnyVariant(ev.AwayName, right)

	return (leftInHome && rightInAway) || (rightInHome && leftInAway)
}

func containsAnyVariant(name string, variants []string) bool {
	for _, variant := range variants {
		if matchtext.ContainsNormalized(name, variant) {
			return true
		}
	}
	return false
}

// firstMatchingEvent scans events in encounter order and returns the first
// one satisfying both sides. First-match-wins, no scoring.
func firstMatchingEvent(events []sportevent.Event, left, right []string) (sportevent.Event, bool) {
	for _, ev := range events {
		if eventMatchesSides(ev, left, right) {
			return ev, true
		}
	}
	return sportevent.Event{}, false
}

// firstSignatureCollision intersects two independently retrieved fixture
// lists by their order-independent name signature. The first collision wins;
// tournament and kickoff prefer whichever copy carries them.
func firstSignatureCollision(leftEvents, rightEvents []sportevent.Event) (sportevent.Resolution, bool) {
	bySignature := make(map[string]sportevent.Event, len(leftEvents))
	for _, ev := range leftEvents {
		sig := matchtext.Signature(ev.HomeName, ev.AwayName)
		if sig == "|" {
			continue
		}
		if _, exists := bySignature[sig]; !exists {
			bySignature[sig] = ev
		}
	}

	for _, rightEv := range rightEvents {
		sig := matchtext.Signature(rightEv.HomeName, rightEv.AwayName)
		if sig == "|" {
			continue
		}
		leftEv, ok := bySignature[sig]
		if !ok {
			continue
		}
		return mergeEventCopies(leftEv, rightEv), true
	}

	return sportevent.Resolution{}, false
}

func mergeEventCopies(a, b sportevent.Event) sportevent.Resolution {
	res := resolutionFromEvent(a)
	if res.Tournament == "" {
		res.Tournament = eventTournament(b)
	}
	if res.StartAt.IsZero() {
		res.StartAt = b.StartAt()
	}
	return res
}

func resolutionFromEvent(ev sportevent.Event) sportevent.Resolution {
	return sportevent.Resolution{
		Tournament: eventTournament(ev),
		StartAt:    ev.StartAt(),
	}
}

func eventTournament(ev sportevent.Event) string {
	if ev.TournamentName != "" {
		return ev.TournamentName
	}
	return ev.SeasonName
}
