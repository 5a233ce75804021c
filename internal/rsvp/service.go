// Package rsvp はランへの参加表明（RSVP）のドメインロジックを提供する。
package rsvp

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/repository"
)

// Service はRSVPのサービス層。
type Service struct {
	runRepo  repository.RunRepository
	userRepo repository.UserRepository
	rsvpRepo repository.RSVPRepository
	metrics  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewService(
	runRepo repository.RunRepository,
	userRepo repository.UserRepository,
	rsvpRepo repository.RSVPRepository,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		runRepo:  runRepo,
		userRepo: userRepo,
		rsvpRepo: rsvpRepo,
		metrics:  mc,
	}
}

// SetRSVP はユーザーのランへの参加表明を作成または更新する。
// 同じ (runID, userID) に対しては常に1件で、最後に送信したステータスが残る。
func (s *Service) SetRSVP(ctx context.Context, runID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	run, err := s.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(runID)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	if !status.Valid() {
		return nil, model.NewInvalidRSVPStatusError(string(status))
	}

	rsvp, err := s.rsvpRepo.Upsert(ctx, runID, userID, status)
	if errors.Is(err, repository.ErrReferenceNotFound) {
		// 存在確認の後にランが削除された
		return nil, model.NewRunNotFoundError(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("RSVPの保存に失敗しました: %w", err)
	}

	s.metrics.RecordRSVP(string(rsvp.Status))
	return rsvp, nil
}

// ListRSVPs はランのRSVP一覧を返す。
func (s *Service) ListRSVPs(ctx context.Context, runID string) ([]model.RSVPDetail, error) {
	run, err := s.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(runID)
	}

	rsvps, err := s.rsvpRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("RSVP一覧の取得に失敗しました: %w", err)
	}
	return rsvps, nil
}
