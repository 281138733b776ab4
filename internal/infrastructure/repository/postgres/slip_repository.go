package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wagerlens/slipscan/internal/domain/slip"
	qb "github.com/wagerlens/slipscan/internal/platform/querybuilder"
)

type SlipRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSlipRepository(db *sqlx.DB) *SlipRepository {
	return &SlipRepository{db: db, now: time.Now}
}

func (r *SlipRepository) InsertSlip(ctx context.Context, record slip.Slip) error {
	now := r.now().UTC()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query, args, err := qb.InsertModel("slips", slipInsertModel{
		PublicID:  record.ID,
		OwnerID:   record.OwnerID,
		ImageURL:  record.ImageURL,
		Status:    slip.NormalizeStatus(record.Status),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}, "")
	if err != nil {
		return fmt.Errorf("build insert slip query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slip %s already exists: %w", record.ID, err)
		}
		return fmt.Errorf("insert slip: %w", err)
	}
	return nil
}

func (r *SlipRepository) InsertSelections(ctx context.Context, slipID string, selections []slip.Selection) error {
	if len(selections) == 0 {
		return nil
	}

	now := r.now().UTC()
	builder := qb.InsertInto("slip_selections").
		Columns(
			"public_id", "slip_public_id", "match_text", "market", "pick",
			"odds", "bookmaker", "tournament", "start_at", "resolved",
			"created_at", "updated_at",
		).
		Suffix("ON CONFLICT (public_id) DO NOTHING")
	for _, selection := range selections {
		builder = builder.Values(
			selection.ID,
			slipID,
			selection.MatchText,
			nullString(selection.Market),
			nullString(selection.Pick),
			selection.Odds,
			nullString(selection.Bookmaker),
			nullString(selection.Tournament),
			selection.StartAt,
			selection.Resolved,
			now,
			now,
		)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert selections query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert selections: %w", err)
	}
	return nil
}

func (r *SlipRepository) UpdateStatus(ctx context.Context, slipID, status string) error {
	query, args, err := qb.Update("slips").
		Set("status", slip.NormalizeStatus(status)).
		Set("updated_at", r.now().UTC()).
		Where(
			qb.Eq("public_id", slipID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update slip status query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update slip status: %w", err)
	}
	return nil
}

func (r *SlipRepository) UpdateSelectionResolution(ctx context.Context, selectionID, tournament string, startAt *time.Time) error {
	query, args, err := qb.Update("slip_selections").
		Set("tournament", nullString(tournament)).
		Set("start_at", startAt).
		Set("resolved", tournament != "" && startAt != nil).
		Set("updated_at", r.now().UTC()).
		Where(qb.Eq("public_id", selectionID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update selection query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update selection resolution: %w", err)
	}
	return nil
}

func (r *SlipRepository) GetByID(ctx context.Context, slipID string) (slip.Slip, bool, error) {
	query, args, err := qb.Select("*").From("slips").
		Where(
			qb.Eq("public_id", slipID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return slip.Slip{}, false, fmt.Errorf("build get slip by id query: %w", err)
	}

	var row slipTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return slip.Slip{}, false, nil
		}
		return slip.Slip{}, false, fmt.Errorf("get slip by id: %w", err)
	}

	record := mapSlipRow(row)
	selectionsBySlip, err := r.selectionsForSlips(ctx, []string{record.ID})
	if err != nil {
		return slip.Slip{}, false, err
	}
	record.Selections = selectionsBySlip[record.ID]
	return record, true, nil
}

func (r *SlipRepository) ListByOwner(ctx context.Context, ownerID string) ([]slip.Slip, error) {
	query, args, err := qb.Select("*").From("slips").
		Where(
			qb.Eq("owner_id", ownerID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("created_at DESC", "id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list slips query: %w", err)
	}

	var rows []slipTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list slips: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	slipIDs := make([]string, 0, len(rows))
	out := make([]slip.Slip, 0, len(rows))
	for _, row := range rows {
		record := mapSlipRow(row)
		slipIDs = append(slipIDs, record.ID)
		out = append(out, record)
	}

	selectionsBySlip, err := r.selectionsForSlips(ctx, slipIDs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Selections = selectionsBySlip[out[i].ID]
	}
	return out, nil
}

func (r *SlipRepository) selectionsForSlips(ctx context.Context, slipIDs []string) (map[string][]slip.Selection, error) {
	idArgs := make([]any, 0, len(slipIDs))
	for _, slipID := range slipIDs {
		idArgs = append(idArgs, slipID)
	}

	query, args, err := qb.Select("*").From("slip_selections").
		Where(qb.In("slip_public_id", idArgs)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select selections query: %w", err)
	}

	var rows []slipSelectionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select selections: %w", err)
	}

	out := make(map[string][]slip.Selection, len(slipIDs))
	for _, row := range rows {
		out[row.SlipID] = append(out[row.SlipID], mapSelectionRow(row))
	}
	return out, nil
}
