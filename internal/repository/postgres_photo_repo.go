package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/hashtrail/internal/model"
)

// PostgresPhotoRepo はPostgreSQLを使用した写真リポジトリ。
type PostgresPhotoRepo struct {
	db *sql.DB
}

// NewPostgresPhotoRepo はPostgresPhotoRepoを生成する。
func NewPostgresPhotoRepo(db *sql.DB) *PostgresPhotoRepo {
	return &PostgresPhotoRepo{db: db}
}

const photoColumns = `p.id, p.run_id, p.uploader_id, p.storage_key, p.url, p.caption, p.created_at, p.updated_at`

// photoScanner はsql.Rowとsql.Rowsの共通インターフェース。
type photoScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s photoScanner, extra ...any) (*model.Photo, error) {
	p := &model.Photo{}
	var url, caption sql.NullString
	dest := []any{&p.ID, &p.RunID, &p.UploaderID, &p.StorageKey, &url, &caption, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	p.URL = nullStringPtr(url)
	p.Caption = nullStringPtr(caption)
	return p, nil
}

// CreatePending はURL未設定の確認待ち写真を作成する。
func (r *PostgresPhotoRepo) CreatePending(ctx context.Context, photo *model.Photo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO photos (id, run_id, uploader_id, storage_key, url, caption, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULL, NULL, $5, $6)`,
		photo.ID, photo.RunID, photo.UploaderID, photo.StorageKey, photo.CreatedAt, photo.UpdatedAt,
	)
	if err != nil {
		if sentinel := translatePQError(err); sentinel != nil {
			return fmt.Errorf("写真レコードの作成に失敗しました: %w", sentinel)
		}
		return fmt.Errorf("写真レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの写真を取得する。見つからない場合はnilを返す。
func (r *PostgresPhotoRepo) FindByID(ctx context.Context, id string) (*model.Photo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos p WHERE p.id = $1`,
		id,
	)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("写真の取得に失敗しました: %w", err)
	}
	return p, nil
}

// FindDetail は写真をラン要約・アップロード者要約付きで取得する。
// ランやユーザーはLEFT JOINのため、欠けていても写真自体は返す。
func (r *PostgresPhotoRepo) FindDetail(ctx context.Context, id string) (*model.PhotoDetail, error) {
	var runID, runDescriptor, userID, userName, userImage sql.NullString
	row := r.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+`,
		        rn.id, rn.descriptor, u.id, u.name, u.image
		 FROM photos p
		 LEFT JOIN runs rn ON rn.id = p.run_id
		 LEFT JOIN users u ON u.id = p.uploader_id
		 WHERE p.id = $1`,
		id,
	)
	p, err := scanPhoto(row, &runID, &runDescriptor, &userID, &userName, &userImage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("写真詳細の取得に失敗しました: %w", err)
	}

	detail := &model.PhotoDetail{Photo: *p}
	if runID.Valid {
		detail.Run = &model.RunSummary{ID: runID.String, Descriptor: runDescriptor.String}
	}
	if userID.Valid {
		detail.UploadedBy = &model.UserSummary{ID: userID.String, Name: userName.String, Image: nullStringPtr(userImage)}
	}
	return detail, nil
}

// UpdateConfirmation は写真のURLとキャプションを設定する。
func (r *PostgresPhotoRepo) UpdateConfirmation(ctx context.Context, id string, url string, caption *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE photos SET url = $2, caption = $3, updated_at = NOW() WHERE id = $1`,
		id, url, caption,
	)
	if err != nil {
		return fmt.Errorf("写真の確定に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("写真が見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListConfirmedByRun はランの確認済み写真をアップロード者要約付きで新しい順に返す。
func (r *PostgresPhotoRepo) ListConfirmedByRun(ctx context.Context, runID string) ([]model.PhotoDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+photoColumns+`, u.id, u.name, u.image
		 FROM photos p
		 LEFT JOIN users u ON u.id = p.uploader_id
		 WHERE p.run_id = $1 AND p.url IS NOT NULL
		 ORDER BY p.created_at DESC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("写真一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var details []model.PhotoDetail
	for rows.Next() {
		var userID, userName, userImage sql.NullString
		p, err := scanPhoto(rows, &userID, &userName, &userImage)
		if err != nil {
			return nil, fmt.Errorf("写真行の読み取りに失敗しました: %w", err)
		}
		d := model.PhotoDetail{Photo: *p}
		if userID.Valid {
			d.UploadedBy = &model.UserSummary{ID: userID.String, Name: userName.String, Image: nullStringPtr(userImage)}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("写真一覧の走査に失敗しました: %w", err)
	}
	return details, nil
}

// ListStalePending はbefore以前に作成され、未確認のままの写真を古い順に最大limit件返す。
func (r *PostgresPhotoRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Photo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+photoColumns+`
		 FROM photos p
		 WHERE p.url IS NULL AND p.created_at < $1
		 ORDER BY p.created_at ASC
		 LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("確認待ち写真の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var photos []*model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("写真行の読み取りに失敗しました: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("確認待ち写真の走査に失敗しました: %w", err)
	}
	return photos, nil
}

// DeletePendingByID は確認待ちの写真を削除する。
// 一覧取得後に確認された写真はurl IS NULLの条件で除外される。
func (r *PostgresPhotoRepo) DeletePendingByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM photos WHERE id = $1 AND url IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("写真の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ PhotoRepository = (*PostgresPhotoRepo)(nil)
