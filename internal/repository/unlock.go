package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pagemint/backend/internal/model"
)

func (q *queries) GetChapter(ctx context.Context, id uuid.UUID) (*model.Chapter, error) {
	var chapter model.Chapter
	err := sqlx.GetContext(ctx, q.q, &chapter, "SELECT * FROM chapters WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}
	return &chapter, nil
}

func (q *queries) WorkExists(ctx context.Context, workID uuid.UUID) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.q, &exists,
		"SELECT EXISTS (SELECT 1 FROM chapters WHERE work_id = $1)", workID)
	return exists, err
}

func (q *queries) GetUnlock(ctx context.Context, userID int64, chapterID uuid.UUID) (*model.Unlock, error) {
	var unlock model.Unlock
	err := sqlx.GetContext(ctx, q.q, &unlock,
		"SELECT * FROM unlocks WHERE user_id = $1 AND chapter_id = $2", userID, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnlockNotFound
		}
		return nil, err
	}
	return &unlock, nil
}

// UpsertUnlock creates the entitlement or overwrites its type and expiry.
// There is one row per (user, chapter).
func (q *queries) UpsertUnlock(ctx context.Context, unlock *model.Unlock) error {
	if unlock.ID == uuid.Nil {
		unlock.ID = uuid.New()
	}
	query := `
		INSERT INTO unlocks (id, user_id, chapter_id, type, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, chapter_id) DO UPDATE SET
			type = EXCLUDED.type,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return q.q.QueryRowxContext(ctx, query,
		unlock.ID,
		unlock.UserID,
		unlock.ChapterID,
		unlock.Type,
		unlock.ExpiresAt,
	).Scan(&unlock.ID, &unlock.CreatedAt, &unlock.UpdatedAt)
}
