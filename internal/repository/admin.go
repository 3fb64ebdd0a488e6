package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
)

// IsAdmin checks if a user is an admin
func (q *queries) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q.q, &count, `SELECT COUNT(*) FROM admins WHERE user_id = $1`, userID)
	return count > 0, err
}

// LogAdminAction creates an admin log entry with JSON details
func (q *queries) LogAdminAction(ctx context.Context, adminID int64, action string, targetUserID *int64, details interface{}) error {
	detailsJSON := []byte("{}")
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, target_user_id, details)
		VALUES ($1, $2, $3, $4)`,
		adminID, action, targetUserID, detailsJSON)
	return err
}
