package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/hashtrail/internal/model"
)

// Fake はネットワークにアクセスしないインメモリのオブジェクトストレージ。
// ローカル開発用のmemoryバックエンドとテストで使用する。
type Fake struct {
	baseURL string

	mu      sync.Mutex
	issued  map[string]string // key -> content type
	deleted []string
}

// NewFake はFakeを生成する。baseURLが空の場合は構成エラーを返すクライアントとして振る舞う。
func NewFake(baseURL string) *Fake {
	return &Fake{
		baseURL: strings.TrimRight(baseURL, "/"),
		issued:  make(map[string]string),
	}
}

// CheckConfigured はベースURLが設定済みかを確認する。
func (f *Fake) CheckConfigured() error {
	if f.baseURL == "" {
		return model.NewStorageNotConfiguredError()
	}
	return nil
}

// IssueUploadURL は疑似的なアップロードURLを返す。
func (f *Fake) IssueUploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := f.CheckConfigured(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultUploadURLTTL
	}
	f.mu.Lock()
	f.issued[key] = contentType
	f.mu.Unlock()

	q := url.Values{}
	q.Set("content-type", contentType)
	q.Set("expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	return fmt.Sprintf("%s/upload/%s?%s", f.baseURL, key, q.Encode()), nil
}

// FinalURL は疑似的な公開URLを返す。
func (f *Fake) FinalURL(key string) (string, error) {
	if err := f.CheckConfigured(); err != nil {
		return "", err
	}
	return f.baseURL + "/" + key, nil
}

// DeleteObject は削除されたキーを記録する。
func (f *Fake) DeleteObject(_ context.Context, key string) error {
	if err := f.CheckConfigured(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.issued, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// IssuedContentType はkeyに対して発行したURLのContent-Typeを返す。
func (f *Fake) IssuedContentType(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.issued[key]
	return ct, ok
}

// Deleted は削除されたキーの一覧を返す。
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
