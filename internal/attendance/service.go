// Package attendance はランへの出席記録のドメインロジックを提供する。
//
// 出席記録は (ランID, ユーザーID) ごとに1件で、重複作成は一意制約違反を
// 検出したうえで既存行を読み直すことで冪等に扱う。
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/repository"
)

// Outcome は出席記録操作の結果種別。
type Outcome int

const (
	// OutcomeCreated は新しい出席記録を作成したことを表す。
	OutcomeCreated Outcome = iota + 1
	// OutcomeAlreadyExisted は既存の出席記録を返したことを表す。
	OutcomeAlreadyExisted
	// OutcomeConflict は一意制約違反後に既存行を取得できなかったことを表す。
	OutcomeConflict
)

// String はメトリクスラベル等に使う文字列表現を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExisted:
		return "already_existed"
	case OutcomeConflict:
		return "conflict"
	}
	return "unknown"
}

// MarkInput は出席記録の入力。
type MarkInput struct {
	RunID      string
	UserID     string // 出席とする参加者
	MarkedByID string // 記録するオーガナイザー（セッションのユーザー）
}

// MarkResult は出席記録の結果。
// OutcomeConflictはMarkAttendedからはエラーとして返るため、呼び出し側が受け取るのは
// OutcomeCreatedかOutcomeAlreadyExistedのいずれか。
type MarkResult struct {
	Outcome    Outcome
	Attendance *model.Attendance
}

// Service は出席記録のサービス層。
type Service struct {
	runRepo        repository.RunRepository
	userRepo       repository.UserRepository
	attendanceRepo repository.AttendanceRepository
	metrics        metrics.MetricsCollector
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewService(
	runRepo repository.RunRepository,
	userRepo repository.UserRepository,
	attendanceRepo repository.AttendanceRepository,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		runRepo:        runRepo,
		userRepo:       userRepo,
		attendanceRepo: attendanceRepo,
		metrics:        mc,
		now:            time.Now,
	}
}

// MarkAttended はユーザーをランの出席者として記録する。
// 既に記録済みの場合はエラーにせず既存の記録をOutcomeAlreadyExistedとして返す。
func (s *Service) MarkAttended(ctx context.Context, in MarkInput) (*MarkResult, error) {
	marker, err := s.userRepo.FindByID(ctx, in.MarkedByID)
	if err != nil {
		return nil, fmt.Errorf("記録者の取得に失敗しました: %w", err)
	}
	if marker == nil || !marker.Role.CanMarkAttendance() {
		return nil, model.NewInsufficientRoleError()
	}

	run, err := s.runRepo.FindByID(ctx, in.RunID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(in.RunID)
	}

	user, err := s.userRepo.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(in.UserID)
	}

	result, err := s.createOrRecover(ctx, in)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAttendanceOutcome(result.Outcome.String())

	if result.Outcome == OutcomeConflict {
		return nil, model.NewAttendanceConflictError()
	}
	return result, nil
}

// createOrRecover は出席記録を作成し、一意制約違反の場合は既存行を読み直す。
func (s *Service) createOrRecover(ctx context.Context, in MarkInput) (*MarkResult, error) {
	markedBy := in.MarkedByID
	attendance := &model.Attendance{
		ID:         uuid.New().String(),
		RunID:      in.RunID,
		UserID:     in.UserID,
		MarkedByID: &markedBy,
		MarkedAt:   s.now(),
	}

	err := s.attendanceRepo.Create(ctx, attendance)
	if err == nil {
		return &MarkResult{Outcome: OutcomeCreated, Attendance: attendance}, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("出席記録の作成に失敗しました: %w", err)
	}

	existing, err := s.attendanceRepo.FindByRunAndUser(ctx, in.RunID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("既存の出席記録の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return &MarkResult{Outcome: OutcomeConflict}, nil
	}
	return &MarkResult{Outcome: OutcomeAlreadyExisted, Attendance: existing}, nil
}

// ListAttendance はランの出席一覧を返す。
func (s *Service) ListAttendance(ctx context.Context, runID string) ([]model.AttendanceDetail, error) {
	run, err := s.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(runID)
	}

	list, err := s.attendanceRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("出席一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}
