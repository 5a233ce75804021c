package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hashtrail/internal/model"
)

// PostgresAttendanceRepo はPostgreSQLを使用した出席記録リポジトリ。
type PostgresAttendanceRepo struct {
	db *sql.DB
}

// NewPostgresAttendanceRepo はPostgresAttendanceRepoを生成する。
func NewPostgresAttendanceRepo(db *sql.DB) *PostgresAttendanceRepo {
	return &PostgresAttendanceRepo{db: db}
}

// Create は出席記録を作成する。
// 一意制約違反はErrDuplicate、外部キー違反はErrReferenceNotFoundとして返す。
func (r *PostgresAttendanceRepo) Create(ctx context.Context, a *model.Attendance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendances (id, run_id, user_id, marked_by_id, marked_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.RunID, a.UserID, a.MarkedByID, a.MarkedAt,
	)
	if err != nil {
		if sentinel := translatePQError(err); sentinel != nil {
			return fmt.Errorf("出席記録の作成に失敗しました: %w", sentinel)
		}
		return fmt.Errorf("出席記録の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByRunAndUser はランとユーザーで出席記録を取得する。見つからない場合はnilを返す。
func (r *PostgresAttendanceRepo) FindByRunAndUser(ctx context.Context, runID, userID string) (*model.Attendance, error) {
	a := &model.Attendance{}
	var markedBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, run_id, user_id, marked_by_id, marked_at
		 FROM attendances WHERE run_id = $1 AND user_id = $2`,
		runID, userID,
	).Scan(&a.ID, &a.RunID, &a.UserID, &markedBy, &a.MarkedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("出席記録の取得に失敗しました: %w", err)
	}
	a.MarkedByID = nullStringPtr(markedBy)
	return a, nil
}

// ListByRun はランの出席一覧をユーザー要約付きで記録順に返す。
func (r *PostgresAttendanceRepo) ListByRun(ctx context.Context, runID string) ([]model.AttendanceDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.run_id, a.user_id, a.marked_by_id, a.marked_at,
		        u.name, u.image
		 FROM attendances a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.run_id = $1
		 ORDER BY a.marked_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("出席一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var details []model.AttendanceDetail
	for rows.Next() {
		var d model.AttendanceDetail
		var markedBy, image sql.NullString
		var name string
		if err := rows.Scan(&d.ID, &d.RunID, &d.UserID, &markedBy, &d.MarkedAt, &name, &image); err != nil {
			return nil, fmt.Errorf("出席行の読み取りに失敗しました: %w", err)
		}
		d.MarkedByID = nullStringPtr(markedBy)
		d.User = &model.UserSummary{ID: d.UserID, Name: name, Image: nullStringPtr(image)}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出席一覧の走査に失敗しました: %w", err)
	}
	return details, nil
}

// compile-time interface check
var _ AttendanceRepository = (*PostgresAttendanceRepo)(nil)
