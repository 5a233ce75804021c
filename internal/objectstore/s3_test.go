package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/hashtrail/internal/model"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

var staticConfig = Config{
	Bucket:          "hashtrail-photos",
	Region:          "ap-northeast-1",
	AccessKeyID:     "AKIAEXAMPLE",
	SecretAccessKey: "secret",
}

func TestClient_CheckConfigured(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"バケットとリージョンあり", Config{Bucket: "b", Region: "r"}, false},
		{"バケットなし", Config{Region: "r"}, true},
		{"リージョンなし", Config{Bucket: "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.cfg)
			err := c.CheckConfigured()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckConfigured() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeStorageNotConfigured {
					t.Errorf("expected STORAGE_NOT_CONFIGURED, got %v", err)
				}
			}
		})
	}
}

func TestClient_IssueUploadURL(t *testing.T) {
	c := newTestClient(t, staticConfig)

	raw, err := c.IssueUploadURL(context.Background(), "runs/r1/photos/abc-a.jpg", "image/jpeg", 0)
	if err != nil {
		t.Fatalf("IssueUploadURL() error: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	if !strings.Contains(u.Host, "hashtrail-photos") {
		t.Errorf("host %q does not reference the bucket", u.Host)
	}
	if !strings.HasSuffix(u.Path, "/runs/r1/photos/abc-a.jpg") {
		t.Errorf("path %q does not end with the key", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "3600" {
		t.Errorf("X-Amz-Expires = %q, want 3600", q.Get("X-Amz-Expires"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Error("signature missing")
	}
	if !strings.Contains(q.Get("X-Amz-SignedHeaders"), "content-type") {
		t.Errorf("content-type not signed: %q", q.Get("X-Amz-SignedHeaders"))
	}
}

func TestClient_IssueUploadURL_CustomTTL(t *testing.T) {
	c := newTestClient(t, staticConfig)

	raw, err := c.IssueUploadURL(context.Background(), "k.png", "image/png", 15*time.Minute)
	if err != nil {
		t.Fatalf("IssueUploadURL() error: %v", err)
	}
	u, _ := url.Parse(raw)
	if got := u.Query().Get("X-Amz-Expires"); got != "900" {
		t.Errorf("X-Amz-Expires = %q, want 900", got)
	}
}

func TestClient_IssueUploadURL_CustomEndpointUsesPathStyle(t *testing.T) {
	cfg := staticConfig
	cfg.Endpoint = "http://localhost:9000"
	c := newTestClient(t, cfg)

	raw, err := c.IssueUploadURL(context.Background(), "k.png", "image/png", 0)
	if err != nil {
		t.Fatalf("IssueUploadURL() error: %v", err)
	}
	if !strings.HasPrefix(raw, "http://localhost:9000/hashtrail-photos/k.png?") {
		t.Errorf("unexpected URL %q", raw)
	}
}

func TestClient_FinalURL(t *testing.T) {
	c := newTestClient(t, staticConfig)
	got, err := c.FinalURL("runs/r1/photos/abc-a.jpg")
	if err != nil {
		t.Fatalf("FinalURL() error: %v", err)
	}
	want := "https://hashtrail-photos.s3.ap-northeast-1.amazonaws.com/runs/r1/photos/abc-a.jpg"
	if got != want {
		t.Errorf("FinalURL() = %q, want %q", got, want)
	}

	cfg := staticConfig
	cfg.PublicBaseURL = "https://cdn.example.com/"
	c = newTestClient(t, cfg)
	got, _ = c.FinalURL("runs/r1/photos/abc-a.jpg")
	if got != "https://cdn.example.com/runs/r1/photos/abc-a.jpg" {
		t.Errorf("FinalURL() with public base = %q", got)
	}
}

func TestClient_Unconfigured(t *testing.T) {
	c := newTestClient(t, Config{})

	if _, err := c.IssueUploadURL(context.Background(), "k", "image/png", 0); err == nil {
		t.Error("IssueUploadURL: expected error")
	}
	if _, err := c.FinalURL("k"); err == nil {
		t.Error("FinalURL: expected error")
	}
	if err := c.DeleteObject(context.Background(), "k"); err == nil {
		t.Error("DeleteObject: expected error")
	}
}

func TestClient_DeleteObject_WrapsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer srv.Close()

	cfg := staticConfig
	cfg.Endpoint = srv.URL
	c := newTestClient(t, cfg)

	key := "runs/run-1/photos/abc-photo.jpg"
	err := c.DeleteObject(context.Background(), key)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), key) || !strings.Contains(err.Error(), "削除に失敗しました") {
		t.Errorf("error = %v, want wrapped message with key", err)
	}
}
