package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	DeliveryStatusProcessed = "processed"
	DeliveryStatusFailed    = "failed"
)

// DeliveryHistoryRepository records the outcome of each dispatched event.
type DeliveryHistoryRepository struct {
	db *sql.DB
}

// NewDeliveryHistoryRepository constructs a repository backed by MySQL.
func NewDeliveryHistoryRepository(db *sql.DB) *DeliveryHistoryRepository {
	return &DeliveryHistoryRepository{db: db}
}

// Record inserts one outcome row for a dispatched event. Redeliveries of
// the same event append further rows; the bus owns retry policy, the
// history just observes it.
func (r *DeliveryHistoryRepository) Record(ctx context.Context, eventID string, channel string, provider string, recipients int, status string, detail string) error {
	const query = `
		INSERT INTO delivery_history (event_id, channel, provider, recipients, status, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, eventID, channel, provider, recipients, status, detail); err != nil {
		return fmt.Errorf("insert delivery history for %s: %w", eventID, err)
	}
	return nil
}
