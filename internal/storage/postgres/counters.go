package postgres

import (
	"context"
	"fmt"
)

// DeliveryCounters aggregates per-tenant delivery outcomes for the
// back-office dashboard. Counting is lossy by design (best-effort, same as
// the deliveries themselves).
type DeliveryCounters struct {
	db *DB
}

func NewDeliveryCounters(db *DB) *DeliveryCounters { return &DeliveryCounters{db: db} }

func (c *DeliveryCounters) Record(ctx context.Context, tenantID, ch, eventName string, delivered bool) error {
	inc := [2]int64{0, 1} // failed
	if delivered {
		inc = [2]int64{1, 0}
	}
	_, err := c.db.Pool.Exec(ctx, `
INSERT INTO delivery_counts (tenant_id, channel, event_name, delivered, failed)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, channel, event_name) DO UPDATE
SET delivered = delivery_counts.delivered + EXCLUDED.delivered,
    failed    = delivery_counts.failed    + EXCLUDED.failed`,
		tenantID, ch, eventName, inc[0], inc[1])
	if err != nil {
		return fmt.Errorf("record delivery outcome: %w", err)
	}
	return nil
}

type DeliveryTotals struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

type DeliveryRow struct {
	Channel   string `json:"channel"`
	EventName string `json:"event_name"`
	Delivered int64  `json:"delivered"`
	Failed    int64  `json:"failed"`
}

// eventName is optional (nil or empty string means "no filter")
func (c *DeliveryCounters) QueryTotals(ctx context.Context, tenantID string, eventName *string) (DeliveryTotals, error) {
	var res DeliveryTotals

	cond := "WHERE tenant_id=$1"
	args := []any{tenantID}
	if eventName != nil && *eventName != "" {
		cond += " AND event_name=$2"
		args = append(args, *eventName)
	}

	sql := "SELECT COALESCE(SUM(delivered),0)::bigint, COALESCE(SUM(failed),0)::bigint FROM delivery_counts " + cond
	row := c.db.Pool.QueryRow(ctx, sql, args...)
	if err := row.Scan(&res.Delivered, &res.Failed); err != nil {
		return res, fmt.Errorf("scan delivery totals: %w", err)
	}
	return res, nil
}

func (c *DeliveryCounters) QueryByChannel(ctx context.Context, tenantID string) ([]DeliveryRow, error) {
	rows, err := c.db.Pool.Query(ctx, `
SELECT channel, event_name, delivered, failed
FROM delivery_counts
WHERE tenant_id=$1
ORDER BY channel, event_name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryRow
	for rows.Next() {
		var r DeliveryRow
		if err := rows.Scan(&r.Channel, &r.EventName, &r.Delivered, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
