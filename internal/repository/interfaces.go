// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/hashtrail/internal/model"
)

// RunRepository はランデータの永続化インターフェース。
// ランのCRUD画面は別系統で扱うため、ここでは参照のみを提供する。
type RunRepository interface {
	// FindByID は指定IDのランを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Run, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// RSVPRepository は参加表明の永続化インターフェース。
type RSVPRepository interface {
	// Upsert は (runID, userID) のRSVPを作成または上書きする。
	// UNIQUE(run_id, user_id)制約により重複行は作られない。
	// ランまたはユーザーが存在しない場合はErrReferenceNotFoundを返す。
	Upsert(ctx context.Context, runID, userID string, status model.RSVPStatus) (*model.RSVP, error)

	// FindByRunAndUser はランとユーザーでRSVPを取得する。見つからない場合はnilを返す。
	FindByRunAndUser(ctx context.Context, runID, userID string) (*model.RSVP, error)

	// ListByRun はランのRSVP一覧をユーザー要約付きで返す。
	ListByRun(ctx context.Context, runID string) ([]model.RSVPDetail, error)
}

// AttendanceRepository は出席記録の永続化インターフェース。
type AttendanceRepository interface {
	// Create は出席記録を作成する。
	// (run_id, user_id) が既に存在する場合はErrDuplicateを返す。
	// ランまたはユーザーが存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, attendance *model.Attendance) error

	// FindByRunAndUser はランとユーザーで出席記録を取得する。見つからない場合はnilを返す。
	FindByRunAndUser(ctx context.Context, runID, userID string) (*model.Attendance, error)

	// ListByRun はランの出席一覧をユーザー要約付きで返す。
	ListByRun(ctx context.Context, runID string) ([]model.AttendanceDetail, error)
}

// PhotoRepository は写真の永続化インターフェース。
type PhotoRepository interface {
	// CreatePending はURL未設定の確認待ち写真を作成する。
	// ランが存在しない場合はErrReferenceNotFoundを返す。
	CreatePending(ctx context.Context, photo *model.Photo) error

	// FindByID は指定IDの写真を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Photo, error)

	// FindDetail は写真をラン要約・アップロード者要約付きで取得する。
	// ランが存在しない場合もRunをnilにして写真は返す。見つからない場合はnilを返す。
	FindDetail(ctx context.Context, id string) (*model.PhotoDetail, error)

	// UpdateConfirmation は写真のURLとキャプションを設定する。
	// 写真が存在しない場合はErrNotFoundを返す。
	UpdateConfirmation(ctx context.Context, id string, url string, caption *string) error

	// ListConfirmedByRun はランの確認済み写真をアップロード者要約付きで返す。
	ListConfirmedByRun(ctx context.Context, runID string) ([]model.PhotoDetail, error)

	// ListStalePending はbefore以前に作成され、未確認のままの写真を古い順に最大limit件返す。
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Photo, error)

	// DeletePendingByID は指定IDの写真がURL未設定の場合に限り削除する。
	// 行を削除した場合はtrueを返す。確認済みまたは存在しない場合はfalseでエラーにしない。
	DeletePendingByID(ctx context.Context, id string) (bool, error)
}
