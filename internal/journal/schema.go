package journal

import (
	"context"
	"fmt"
)

const createDeliveries = `
CREATE TABLE IF NOT EXISTS deliveries (
	delivery_id UUID        NOT NULL,
	outcome     TEXT        NOT NULL,
	hub_id      TEXT        NOT NULL,
	target      TEXT        NOT NULL,
	filename    TEXT        NOT NULL,
	size_bytes  BIGINT      NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (delivery_id, outcome)
)`

const createDeliveriesTargetIndex = `
CREATE INDEX IF NOT EXISTS deliveries_target_recorded_at_idx
	ON deliveries (target, recorded_at DESC)`

const insertDelivery = `
INSERT INTO deliveries (delivery_id, outcome, hub_id, target, filename, size_bytes, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (delivery_id, outcome) DO NOTHING`

// EnsureSchema creates the deliveries table and its index if missing.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range []string{createDeliveries, createDeliveriesTargetIndex} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure deliveries schema: %w", err)
		}
	}
	return nil
}
