package backlog

import (
	"context"
	"database/sql"
	"fmt"

	"gameshelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert inserts or updates one user's backlog entry for a game.
func (r *Repo) Upsert(ctx context.Context, item models.BacklogItem) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO backlog (user_id, appid, status, rating, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, appid) DO UPDATE SET
			status = excluded.status,
			rating = excluded.rating,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`, item.UserID, item.AppID, item.Status, item.Rating, item.Notes)
	if err != nil {
		return fmt.Errorf("upsert backlog item: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID string, appid int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM backlog
		WHERE user_id = ? AND appid = ?
	`, userID, appid)
	if err != nil {
		return false, fmt.Errorf("delete backlog item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Get(ctx context.Context, userID string, appid int64) (*models.BacklogItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, appid, status, rating, notes, updated_at
		FROM backlog
		WHERE user_id = ? AND appid = ?
	`, userID, appid)

	it, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get backlog item: %w", err)
	}
	return it, nil
}

func (r *Repo) List(ctx context.Context, userID string, status string, limit, offset int) ([]models.BacklogItem, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	var countErr error
	if status == "" {
		countErr = r.DB.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM backlog WHERE user_id = ?
		`, userID).Scan(&total)
	} else {
		countErr = r.DB.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM backlog WHERE user_id = ? AND status = ?
		`, userID, status).Scan(&total)
	}
	if countErr != nil {
		return nil, 0, fmt.Errorf("count backlog: %w", countErr)
	}

	var rows *sql.Rows
	var err error

	if status == "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, appid, status, rating, notes, updated_at
			FROM backlog
			WHERE user_id = ?
			ORDER BY updated_at DESC
			LIMIT ? OFFSET ?
		`, userID, limit, offset)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT user_id, appid, status, rating, notes, updated_at
			FROM backlog
			WHERE user_id = ? AND status = ?
			ORDER BY updated_at DESC
			LIMIT ? OFFSET ?
		`, userID, status, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list backlog: %w", err)
	}
	defer rows.Close()

	out := make([]models.BacklogItem, 0, limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan backlog item: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("backlog rows: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.BacklogItem, error) {
	var it models.BacklogItem
	var rating sql.NullInt64
	var notes sql.NullString

	if err := row.Scan(&it.UserID, &it.AppID, &it.Status, &rating, &notes, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		it.Rating = &v
	}
	it.Notes = notes.String
	return &it, nil
}
