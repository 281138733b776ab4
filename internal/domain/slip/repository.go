package slip

import (
	"context"
	"time"
)

// Repository is the persistence contract for slips and their selections.
type Repository interface {
	InsertSlip(ctx context.Context, record Slip) error
	InsertSelections(ctx context.Context, slipID string, selections []Selection) error
	UpdateStatus(ctx context.Context, slipID, status string) error
	UpdateSelectionResolution(ctx context.Context, selectionID, tournament string, startAt *time.Time) error
	GetByID(ctx context.Context, slipID string) (Slip, bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Slip, error)
}
