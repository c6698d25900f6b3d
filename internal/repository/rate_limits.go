package repository

import "context"

// CheckAndIncrementRateLimit bumps the creator's counter for the current
// minute and returns the new value.
func (q *Queries) CheckAndIncrementRateLimit(ctx context.Context, creatorID int64) (int32, error) {
	var count int32
	err := q.db.QueryRow(ctx, `
		INSERT INTO rate_limits (creator_id, window_start, count)
		VALUES ($1, date_trunc('minute', now()), 1)
		ON CONFLICT (creator_id, window_start) DO UPDATE SET count = rate_limits.count + 1
		RETURNING count
	`, creatorID).Scan(&count)
	return count, err
}

// CleanupRateLimits drops windows older than ten minutes.
func (q *Queries) CleanupRateLimits(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `DELETE FROM rate_limits WHERE window_start < now() - interval '10 minutes'`)
	return err
}
