package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

func (q *queries) CountDailyClaims(ctx context.Context, userID int64, kind model.ClaimKind, day time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q.q, &count, `
		SELECT COUNT(*) FROM daily_claims
		WHERE user_id = $1 AND kind = $2 AND day = $3`,
		userID, kind, ClaimDay(day))
	return count, err
}

// RecordDailyClaim inserts the claim key and reports false when the same
// (user, kind, day, seq) was already claimed.
func (q *queries) RecordDailyClaim(ctx context.Context, claim *model.DailyClaim) (bool, error) {
	claim.Day = ClaimDay(claim.Day)
	var createdAt []time.Time
	err := sqlx.SelectContext(ctx, q.q, &createdAt, `
		INSERT INTO daily_claims (user_id, kind, day, seq, batch_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, kind, day, seq) DO NOTHING
		RETURNING created_at`,
		claim.UserID, claim.Kind, claim.Day, claim.Seq, claim.BatchID)
	if err != nil || len(createdAt) == 0 {
		return false, err
	}
	claim.CreatedAt = createdAt[0]
	return true, nil
}
