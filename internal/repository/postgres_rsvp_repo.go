package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/hashtrail/internal/model"
)

// PostgresRSVPRepo はPostgreSQLを使用した参加表明リポジトリ。
type PostgresRSVPRepo struct {
	db *sql.DB
}

// NewPostgresRSVPRepo はPostgresRSVPRepoを生成する。
func NewPostgresRSVPRepo(db *sql.DB) *PostgresRSVPRepo {
	return &PostgresRSVPRepo{db: db}
}

// Upsert は (runID, userID) のRSVPを作成または上書きする。
// INSERT ... ON CONFLICT による単一文のため、同時送信でも行は1件に収束する。
func (r *PostgresRSVPRepo) Upsert(ctx context.Context, runID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	rsvp := &model.RSVP{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rsvps (id, run_id, user_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (run_id, user_id) DO UPDATE
		 SET status = EXCLUDED.status, updated_at = NOW()
		 RETURNING id, run_id, user_id, status, created_at, updated_at`,
		uuid.New().String(), runID, userID, string(status),
	).Scan(&rsvp.ID, &rsvp.RunID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt)
	if err != nil {
		if sentinel := translatePQError(err); sentinel != nil {
			return nil, fmt.Errorf("RSVPの保存に失敗しました: %w", sentinel)
		}
		return nil, fmt.Errorf("RSVPの保存に失敗しました: %w", err)
	}
	return rsvp, nil
}

// FindByRunAndUser はランとユーザーでRSVPを取得する。見つからない場合はnilを返す。
func (r *PostgresRSVPRepo) FindByRunAndUser(ctx context.Context, runID, userID string) (*model.RSVP, error) {
	rsvp := &model.RSVP{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, run_id, user_id, status, created_at, updated_at
		 FROM rsvps WHERE run_id = $1 AND user_id = $2`,
		runID, userID,
	).Scan(&rsvp.ID, &rsvp.RunID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RSVPの取得に失敗しました: %w", err)
	}
	return rsvp, nil
}

// ListByRun はランのRSVP一覧をユーザー要約付きで作成順に返す。
func (r *PostgresRSVPRepo) ListByRun(ctx context.Context, runID string) ([]model.RSVPDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.run_id, rv.user_id, rv.status, rv.created_at, rv.updated_at,
		        u.name, u.image
		 FROM rsvps rv
		 JOIN users u ON u.id = rv.user_id
		 WHERE rv.run_id = $1
		 ORDER BY rv.created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("RSVP一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var details []model.RSVPDetail
	for rows.Next() {
		var d model.RSVPDetail
		var name string
		var image sql.NullString
		if err := rows.Scan(&d.ID, &d.RunID, &d.UserID, &d.Status, &d.CreatedAt, &d.UpdatedAt, &name, &image); err != nil {
			return nil, fmt.Errorf("RSVP行の読み取りに失敗しました: %w", err)
		}
		d.User = &model.UserSummary{ID: d.UserID, Name: name, Image: nullStringPtr(image)}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RSVP一覧の走査に失敗しました: %w", err)
	}
	return details, nil
}

// compile-time interface check
var _ RSVPRepository = (*PostgresRSVPRepo)(nil)
