// Package cleanup は確認されないまま放置された写真の自動削除ジョブを提供する。
// アップロードURLを発行したがconfirmされなかった写真は、DB上の行とストレージ上の
// オブジェクトの両方を削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/hashtrail/internal/metrics"
	"github.com/hitoshi/hashtrail/internal/model"
)

const (
	// DefaultPendingTTL は確認待ち写真を放置とみなすまでの時間。
	DefaultPendingTTL = 24 * time.Hour
	// DefaultBatchSize は1サイクルで処理する最大件数。
	DefaultBatchSize = 100
	// defaultMaxConcurrency はオブジェクト削除の最大並列数。
	defaultMaxConcurrency = 4
)

// PendingPhotoStore は放置写真の列挙と削除に必要なリポジトリ操作。
// repository.PhotoRepositoryの部分集合として定義する。
type PendingPhotoStore interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Photo, error)
	DeletePendingByID(ctx context.Context, id string) (bool, error)
}

// ObjectDeleter はストレージ上のオブジェクトを削除する。
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// Config はクリーンアップジョブの設定。
type Config struct {
	PendingTTL     time.Duration
	BatchSize      int
	MaxConcurrency int
}

// CleanupJob は放置された確認待ち写真の削除ジョブ。
// 冪等: 削除対象がない場合や、既に削除済みのオブジェクトでもエラーにならない。
type CleanupJob struct {
	photos  PendingPhotoStore
	storage ObjectDeleter
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// 0以下の設定値はデフォルト（24時間、100件、並列4）に置き換える。
func NewCleanupJob(
	photos PendingPhotoStore,
	storage ObjectDeleter,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *CleanupJob {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		photos:  photos,
		storage: storage,
		metrics: mc,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start はinterval間隔のティッカーでジョブを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("写真クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("pending_ttl", j.cfg.PendingTTL),
	)

	j.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("写真クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("写真クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Run はPendingTTLより古い確認待ち写真を最大BatchSize件削除し、削除件数を返す。
// 一覧取得後に確認された写真は行もオブジェクトも残す。
func (j *CleanupJob) Run(ctx context.Context) (int, error) {
	start := j.now()
	before := start.Add(-j.cfg.PendingTTL)

	stale, err := j.photos.ListStalePending(ctx, before, j.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("放置写真の取得に失敗: %w", err)
	}
	if len(stale) == 0 {
		j.logger.Info("削除対象の放置写真はありません")
		return 0, nil
	}

	sem := make(chan struct{}, j.cfg.MaxConcurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		purged int
	)

	for _, p := range stale {
		wg.Add(1)
		sem <- struct{}{}

		go func(p *model.Photo) {
			defer wg.Done()
			defer func() { <-sem }()

			removed, err := j.purge(ctx, p)
			if err != nil {
				j.logger.Warn("放置写真の削除に失敗しました",
					slog.String("photo_id", p.ID),
					slog.String("storage_key", p.StorageKey),
					slog.String("error", err.Error()),
				)
			}
			if !removed {
				return
			}
			mu.Lock()
			purged++
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	j.metrics.RecordPendingPhotosPurged(purged)
	j.logger.Info("写真クリーンアップジョブが完了しました",
		slog.Int("candidate_count", len(stale)),
		slog.Int("deleted_count", purged),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return purged, nil
}

// purge は確認待ちのままの行を削除し、削除できた場合のみオブジェクトを削除する。
// 戻り値は行を削除したかどうか。
func (j *CleanupJob) purge(ctx context.Context, p *model.Photo) (bool, error) {
	removed, err := j.photos.DeletePendingByID(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("写真の削除に失敗: %w", err)
	}
	if !removed {
		j.logger.Info("確認済みのため削除をスキップしました", slog.String("photo_id", p.ID))
		return false, nil
	}
	if p.StorageKey != "" {
		if err := j.storage.DeleteObject(ctx, p.StorageKey); err != nil {
			return true, fmt.Errorf("オブジェクトの削除に失敗: %w", err)
		}
	}
	return true, nil
}
