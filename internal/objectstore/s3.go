// Package objectstore はS3互換オブジェクトストレージへの署名付きURL発行と公開URL算出を提供する。
package objectstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hitoshi/hashtrail/internal/model"
)

// DefaultUploadURLTTL は署名付きアップロードURLのデフォルト有効期間。
const DefaultUploadURLTTL = time.Hour

// Config はオブジェクトストレージの接続設定。
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint はMinIO等のS3互換ストレージ用。指定時はパススタイルでアクセスする。
	Endpoint string
	// PublicBaseURL は公開URLのベース（CDN等）。空の場合はS3の仮想ホスト形式を使う。
	PublicBaseURL string
}

// Client はS3の署名付きURL発行とオブジェクト削除を行う。
// バケットまたはリージョンが未設定の場合も生成でき、各操作はStorageNotConfiguredを返す。
type Client struct {
	cfg       Config
	s3        *s3.Client
	presigner *s3.PresignClient
}

// New はClientを生成する。
// アクセスキーが指定されていれば静的クレデンシャルを使い、なければSDKのデフォルト解決に任せる。
func New(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{cfg: cfg}
	if !c.configured() {
		return c, nil
	}

	var s3Client *s3.Client
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		s3Client = s3.New(s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}, c.endpointOptions)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
		}
		s3Client = s3.NewFromConfig(awsCfg, c.endpointOptions)
	}

	c.s3 = s3Client
	c.presigner = s3.NewPresignClient(s3Client)
	return c, nil
}

func (c *Client) endpointOptions(o *s3.Options) {
	if c.cfg.Endpoint != "" {
		o.BaseEndpoint = aws.String(c.cfg.Endpoint)
		o.UsePathStyle = true
	}
}

func (c *Client) configured() bool {
	return c.cfg.Bucket != "" && c.cfg.Region != ""
}

// CheckConfigured はバケットとリージョンが設定済みかを確認する。
func (c *Client) CheckConfigured() error {
	if !c.configured() {
		return model.NewStorageNotConfiguredError()
	}
	return nil
}

// IssueUploadURL はkeyへのPUT用署名付きURLを発行する。
// URLはContent-Typeに束縛され、ttl経過後に失効する。ttlが0以下ならDefaultUploadURLTTLを使う。
// 署名はローカル計算のみでネットワークアクセスは発生しない。
func (c *Client) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := c.CheckConfigured(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultUploadURLTTL
	}

	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("アップロードURLの署名に失敗しました: %w", err)
	}
	return req.URL, nil
}

// FinalURL はアップロード完了後にオブジェクトを参照する公開URLを返す。
func (c *Client) FinalURL(key string) (string, error) {
	if err := c.CheckConfigured(); err != nil {
		return "", err
	}
	if c.cfg.PublicBaseURL != "" {
		return strings.TrimRight(c.cfg.PublicBaseURL, "/") + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.Region, key), nil
}

// DeleteObject はオブジェクトを削除する。存在しないキーの削除もS3上は成功扱いになる。
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	if err := c.CheckConfigured(); err != nil {
		return err
	}
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("オブジェクト %s の削除に失敗しました: %w", key, err)
	}
	return nil
}

// Storage はClientとFakeが共通で満たす操作。
type Storage interface {
	CheckConfigured() error
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	FinalURL(key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

var (
	_ Storage = (*Client)(nil)
	_ Storage = (*Fake)(nil)
)
