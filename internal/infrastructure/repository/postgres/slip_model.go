package postgres

import (
	"database/sql"
	"time"

	"github.com/wagerlens/slipscan/internal/domain/slip"
)

type slipTableModel struct {
	ID        int64      `db:"id"`
	PublicID  string     `db:"public_id"`
	OwnerID   string     `db:"owner_id"`
	ImageURL  string     `db:"image_url"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type slipSelectionTableModel struct {
	ID         int64          `db:"id"`
	PublicID   string         `db:"public_id"`
	SlipID     string         `db:"slip_public_id"`
	MatchText  string         `db:"match_text"`
	Market     sql.NullString `db:"market"`
	Pick       sql.NullString `db:"pick"`
	Odds       float64        `db:"odds"`
	Bookmaker  sql.NullString `db:"bookmaker"`
	Tournament sql.NullString `db:"tournament"`
	StartAt    *time.Time     `db:"start_at"`
	Resolved   bool           `db:"resolved"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type slipInsertModel struct {
	PublicID  string    `db:"public_id"`
	OwnerID   string    `db:"owner_id"`
	ImageURL  string    `db:"image_url"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func mapSlipRow(row slipTableModel) slip.Slip {
	return slip.Slip{
		ID:        row.PublicID,
		OwnerID:   row.OwnerID,
		ImageURL:  row.ImageURL,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapSelectionRow(row slipSelectionTableModel) slip.Selection {
	return slip.Selection{
		ID:         row.PublicID,
		SlipID:     row.SlipID,
		MatchText:  row.MatchText,
		Market:     row.Market.String,
		Pick:       row.Pick.String,
		Odds:       row.Odds,
		Bookmaker:  row.Bookmaker.String,
		Tournament: row.Tournament.String,
		StartAt:    row.StartAt,
		Resolved:   row.Resolved,
	}
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
