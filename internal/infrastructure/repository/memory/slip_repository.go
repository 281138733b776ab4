// Package memory holds map-backed repositories used when no database is
// configured, mainly local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wagerlens/slipscan/internal/domain/slip"
)

type SlipRepository struct {
	mu     sync.RWMutex
	items  map[string]slip.Slip
	orders []string
}

func NewSlipRepository() *SlipRepository {
	return &SlipRepository{
		items: make(map[string]slip.Slip),
	}
}

func (r *SlipRepository) InsertSlip(_ context.Context, record slip.Slip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[record.ID]; exists {
		return fmt.Errorf("slip %s already exists", record.ID)
	}
	record.Status = slip.NormalizeStatus(record.Status)
	record.Selections = cloneSelections(record.Selections)
	r.items[record.ID] = record
	r.orders = append(r.orders, record.ID)
	return nil
}

func (r *SlipRepository) InsertSelections(_ context.Context, slipID string, selections []slip.Selection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[slipID]
	if !ok {
		return fmt.Errorf("slip %s not found", slipID)
	}
	record.Selections = append(record.Selections, cloneSelections(selections)...)
	record.UpdatedAt = time.Now().UTC()
	r.items[slipID] = record
	return nil
}

func (r *SlipRepository) UpdateStatus(_ context.Context, slipID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[slipID]
	if !ok {
		return fmt.Errorf("slip %s not found", slipID)
	}
	record.Status = slip.NormalizeStatus(status)
	record.UpdatedAt = time.Now().UTC()
	r.items[slipID] = record
	return nil
}

func (r *SlipRepository) UpdateSelectionResolution(_ context.Context, selectionID, tournament string, startAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for slipID, record := range r.items {
		for i, selection := range record.Selections {
			if selection.ID != selectionID {
				continue
			}
			record.Selections[i].Tournament = tournament
			record.Selections[i].StartAt = cloneTime(startAt)
			record.Selections[i].Resolved = tournament != "" && startAt != nil
			record.UpdatedAt = time.Now().UTC()
			r.items[slipID] = record
			return nil
		}
	}
	return fmt.Errorf("selection %s not found", selectionID)
}

func (r *SlipRepository) GetByID(_ context.Context, slipID string) (slip.Slip, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[slipID]
	if !ok {
		return slip.Slip{}, false, nil
	}
	record.Selections = cloneSelections(record.Selections)
	return record, true, nil
}

func (r *SlipRepository) ListByOwner(_ context.Context, ownerID string) ([]slip.Slip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []slip.Slip
	for _, slipID := range r.orders {
		record := r.items[slipID]
		if record.OwnerID != ownerID {
			continue
		}
		record.Selections = cloneSelections(record.Selections)
		out = append(out, record)
	}
	return out, nil
}

func cloneSelections(selections []slip.Selection) []slip.Selection {
	if len(selections) == 0 {
		return nil
	}
	out := make([]slip.Selection, len(selections))
	for i, selection := range selections {
		selection.StartAt = cloneTime(selection.StartAt)
		out[i] = selection
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
