package slip

import (
	"strings"
	"time"
)

const (
	StatusPending = "PENDING"
	StatusParsed  = "PARSED"
	StatusFailed  = "FAILED"
)

// RawSelection is one wager line exactly as the vision extraction step read it
// off the slip photo. It is never mutated by the resolution engine.
type RawSelection struct {
	MatchText      string
	TournamentText string
	StartTimeText  string
	Market         string
	Pick           string
	Odds           float64
	BookmakerText  string
	SportHint      string
}

// Selection is a persisted wager line, enriched with resolved fixture data
// where the resolution engine produced a confident match.
type Selection struct {
	ID         string
	SlipID     string
	MatchText  string
	Market     string
	Pick       string
	Odds       float64
	Bookmaker  string
	Tournament string
	StartAt    *time.Time
	Resolved   bool
}

// Slip is one submitted betting slip photo and everything parsed out of it.
type Slip struct {
	ID         string
	OwnerID    string
	ImageURL   string
	Status     string
	Selections []Selection
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusPending
	}
	return status
}

func IsTerminalStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusParsed, StatusFailed:
		return true
	default:
		return false
	}
}
