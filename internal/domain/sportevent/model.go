package sportevent

import "time"

type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindTeam   EntityKind = "team"
)

// Candidate is one ranked search hit from the sports-data provider. Ordering
// is the provider's own relevance ordering; no local re-ranking happens.
type Candidate struct {
	Kind        EntityKind
	ExternalID  int64
	DisplayName string
}

// Event is a scheduled real-world fixture as reported by the provider.
// StartTimestamp is epoch seconds, zero when the provider omitted it.
type Event struct {
	HomeName       string
	AwayName       string
	TournamentName string
	SeasonName     string
	StartTimestamp int64
}

func (e Event) StartAt() time.Time {
	if e.StartTimestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(e.StartTimestamp, 0).UTC()
}

// Resolution is the engine's sole output. Zero fields mean "not found" and are
// a normal outcome, never an error. StartAt is always UTC when set.
type Resolution struct {
	Tournament string
	StartAt    time.Time
}

func (r Resolution) Empty() bool {
	return r.Tournament == "" && r.StartAt.IsZero()
}

// StartISO renders the kickoff time in the wire contract format, second
// precision UTC, or "" when unresolved.
func (r Resolution) StartISO() string {
	if r.StartAt.IsZero() {
		return ""
	}
	return r.StartAt.UTC().Format(time.RFC3339)
}
