package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hashtrail/internal/model"
)

// PostgresRunRepo はPostgreSQLを使用したランリポジトリ。
type PostgresRunRepo struct {
	db *sql.DB
}

// NewPostgresRunRepo はPostgresRunRepoを生成する。
func NewPostgresRunRepo(db *sql.DB) *PostgresRunRepo {
	return &PostgresRunRepo{db: db}
}

// FindByID は指定IDのランを取得する。見つからない場合はnilを返す。
func (r *PostgresRunRepo) FindByID(ctx context.Context, id string) (*model.Run, error) {
	run := &model.Run{}
	var lat, lng sql.NullFloat64
	var introLink sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, number, descriptor, date_time, address, lat, lng, intro_link, organizer_id, created_at, updated_at
		 FROM runs WHERE id = $1`,
		id,
	).Scan(
		&run.ID, &run.Number, &run.Descriptor, &run.DateTime, &run.Address,
		&lat, &lng, &introLink, &run.OrganizerID,
		&run.CreatedAt, &run.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}

	if lat.Valid {
		run.Lat = &lat.Float64
	}
	if lng.Valid {
		run.Lng = &lng.Float64
	}
	run.IntroLink = nullStringPtr(introLink)

	return run, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ RunRepository = (*PostgresRunRepo)(nil)
