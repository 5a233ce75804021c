// Package photo は写真の2段階アップロード（URL発行→確認）のドメインロジックを提供する。
//
// 1段階目でURL未設定の確認待ち写真を作成して署名付きURLを返し、
// クライアントがオブジェクトストレージへ直接PUTした後、2段階目で公開URLを確定する。
package photo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/objectstore"
	"github.com/hitoshi/hashtrail/internal/repository"
	"github.com/hitoshi/hashtrail/internal/security"
)

// ObjectStorage は写真サービスが利用するオブジェクトストレージの操作。
type ObjectStorage interface {
	CheckConfigured() error
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	FinalURL(key string) (string, error)
}

// ReconfirmPolicy は確認済み写真を再確認した場合の扱い。
type ReconfirmPolicy int

const (
	// ReconfirmAllow はURLとキャプションを上書きする。
	ReconfirmAllow ReconfirmPolicy = iota
	// ReconfirmReject はPhotoAlreadyConfirmedで拒否する。
	ReconfirmReject
)

// Config は写真サービスの設定。
type Config struct {
	UploadURLTTL time.Duration
	Reconfirm    ReconfirmPolicy
}

var allowedContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// AllowedContentTypes はアップロード可能なContent-Typeの一覧を返す。
func AllowedContentTypes() []string {
	return append([]string(nil), allowedContentTypes...)
}

// IsAllowedContentType はContent-Typeがアップロード可能な画像形式かを返す。大文字小文字は区別しない。
func IsAllowedContentType(contentType string) bool {
	ct := normalizeContentType(contentType)
	for _, allowed := range allowedContentTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

// normalizeContentType は前後の空白を除き小文字にする。
// 署名付きURLにはこの値を埋め込むため、ブラウザが送るContent-Typeと一致する。
func normalizeContentType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(contentType))
}

// RequestUploadInput はアップロードURL発行の入力。
type RequestUploadInput struct {
	RunID       string
	UploaderID  string
	FileName    string
	ContentType string
}

// UploadTicket はアップロードURL発行の結果。
type UploadTicket struct {
	UploadURL  string
	PhotoID    string
	StorageKey string
}

// ConfirmUploadInput はアップロード確認の入力。
type ConfirmUploadInput struct {
	PhotoID  string
	CallerID string
	// RunID は呼び出し元のランスコープ。空の場合はスコープ確認を行わない。
	RunID   string
	Caption *string
}

// Service は写真アップロードのサービス層。
type Service struct {
	runRepo   repository.RunRepository
	photoRepo repository.PhotoRepository
	storage   ObjectStorage
	sanitizer security.CaptionSanitizerService
	cfg       Config
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録せず、loggerがnilの場合はslog.Default()を使う。
func NewService(
	runRepo repository.RunRepository,
	photoRepo repository.PhotoRepository,
	storage ObjectStorage,
	sanitizer security.CaptionSanitizerService,
	cfg Config,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = objectstore.DefaultUploadURLTTL
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runRepo:   runRepo,
		photoRepo: photoRepo,
		storage:   storage,
		sanitizer: sanitizer,
		cfg:       cfg,
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestUpload は確認待ちの写真を作成し、オブジェクトストレージへの署名付きアップロードURLを返す。
// 実際のPUTが成功したかどうかはここでは確認しない。
func (s *Service) RequestUpload(ctx context.Context, in RequestUploadInput) (*UploadTicket, error) {
	ticket, err := s.requestUpload(ctx, in)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}
	s.metrics.RecordUploadRequested()
	return ticket, nil
}

func (s *Service) requestUpload(ctx context.Context, in RequestUploadInput) (*UploadTicket, error) {
	contentType := normalizeContentType(in.ContentType)
	if !IsAllowedContentType(contentType) {
		return nil, model.NewUnsupportedContentTypeError(in.ContentType)
	}
	if err := s.storage.CheckConfigured(); err != nil {
		return nil, err
	}

	run, err := s.runRepo.FindByID(ctx, in.RunID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(in.RunID)
	}

	key, err := objectstore.BuildStorageKey(run.ID, in.FileName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	photo := &model.Photo{
		ID:         uuid.New().String(),
		RunID:      run.ID,
		UploaderID: in.UploaderID,
		StorageKey: key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.photoRepo.CreatePending(ctx, photo); err != nil {
		// 確認後にランが削除された
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, model.NewRunNotFoundError(in.RunID)
		}
		return nil, fmt.Errorf("確認待ち写真の作成に失敗しました: %w", err)
	}

	uploadURL, err := s.storage.IssueUploadURL(ctx, key, contentType, s.cfg.UploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("アップロードURLの発行に失敗しました: %w", err)
	}

	return &UploadTicket{
		UploadURL:  uploadURL,
		PhotoID:    photo.ID,
		StorageKey: key,
	}, nil
}

// ConfirmUpload はアップロード済みの写真の公開URLとキャプションを確定する。
// アップロードしたユーザー本人のみが確認できる。
func (s *Service) ConfirmUpload(ctx context.Context, in ConfirmUploadInput) (*model.PhotoDetail, error) {
	detail, err := s.confirmUpload(ctx, in)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}
	s.metrics.RecordUploadConfirmed()
	return detail, nil
}

func (s *Service) confirmUpload(ctx context.Context, in ConfirmUploadInput) (*model.PhotoDetail, error) {
	if security.CaptionTooLong(in.Caption) {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("キャプションは%d文字以内で入力してください", security.MaxCaptionLength))
	}

	photo, err := s.photoRepo.FindDetail(ctx, in.PhotoID)
	if err != nil {
		return nil, fmt.Errorf("写真の取得に失敗しました: %w", err)
	}
	if photo == nil {
		return nil, model.NewPhotoNotFoundError(in.PhotoID)
	}
	if photo.Run == nil {
		return nil, model.NewRunNotFoundError(photo.RunID)
	}
	if photo.StorageKey == "" {
		s.logger.Error("確認待ち写真にストレージキーがありません",
			slog.String("photo_id", photo.ID),
			slog.String("run_id", photo.RunID),
		)
		return nil, model.NewMissingStorageKeyError(photo.ID)
	}
	if photo.UploaderID != in.CallerID {
		return nil, model.NewNotUploaderError()
	}
	if in.RunID != "" && photo.RunID != in.RunID {
		return nil, model.NewPhotoNotInRunError(photo.ID, in.RunID)
	}
	if !photo.IsPending() && s.cfg.Reconfirm == ReconfirmReject {
		return nil, model.NewPhotoAlreadyConfirmedError(photo.ID)
	}

	finalURL, err := s.storage.FinalURL(photo.StorageKey)
	if err != nil {
		return nil, err
	}

	caption := s.sanitizer.Sanitize(in.Caption)
	if err := s.photoRepo.UpdateConfirmation(ctx, photo.ID, finalURL, caption); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPhotoNotFoundError(photo.ID)
		}
		return nil, fmt.Errorf("写真の確定に失敗しました: %w", err)
	}

	updated, err := s.photoRepo.FindDetail(ctx, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("確定後の写真の取得に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewPhotoNotFoundError(photo.ID)
	}
	return updated, nil
}

// ListPhotos はランの確認済み写真を新しい順に返す。
func (s *Service) ListPhotos(ctx context.Context, runID string) ([]model.PhotoDetail, error) {
	run, err := s.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}
	if run == nil {
		return nil, model.NewRunNotFoundError(runID)
	}

	photos, err := s.photoRepo.ListConfirmedByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("写真一覧の取得に失敗しました: %w", err)
	}
	return photos, nil
}

// ListStalePending はolderThanより前に作成され確認されていない写真を古い順に最大limit件返す。
func (s *Service) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Photo, error) {
	photos, err := s.photoRepo.ListStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("確認待ち写真の取得に失敗しました: %w", err)
	}
	return photos, nil
}

func (s *Service) recordRejection(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		s.metrics.RecordUploadRejected(apiErr.Code)
	}
}
