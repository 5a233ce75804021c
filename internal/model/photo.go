package model

import "time"

// Photo はランにアップロードされた写真を表す。
//
// 確認待ち（pending）: StorageKeyのみ設定され、URLはnil。
// 確認済み（confirmed）: URLが設定され、Captionは任意。
// UploaderIDは作成後に変更しない。
type Photo struct {
	ID         string
	RunID      string
	UploaderID string
	StorageKey string
	URL        *string
	Caption    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsPending はバイナリのアップロード確認がまだ行われていないかどうかを返す。
func (p *Photo) IsPending() bool {
	return p.URL == nil
}

// PhotoDetail は写真と紐づくランおよびアップロード者の要約を結合したもの。
// ランが削除済みの場合Runはnilになる。
type PhotoDetail struct {
	Photo
	Run        *RunSummary
	UploadedBy *UserSummary
}
