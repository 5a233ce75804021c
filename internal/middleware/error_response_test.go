package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/hashtrail/internal/model"
)

func decodeErrorBody(t *testing.T, resp *http.Response) ErrorResponseBody {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestMiddlewareErrors_UnifiedFormat は各ミドルウェアが拒否時に同じ形式で応答することを検証する。
func TestMiddlewareErrors_UnifiedFormat(t *testing.T) {
	tests := []struct {
		name         string
		serve        func(t *testing.T) *http.Response
		wantStatus   int
		wantCode     string
		wantCategory string
	}{
		{
			name: "セッションCookieなし",
			serve: func(t *testing.T) *http.Response {
				h := NewSessionMiddleware(&mockSessionRepository{})(okHandler())
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/run-1/rsvps", nil))
				return w.Result()
			},
			wantStatus:   http.StatusUnauthorized,
			wantCode:     model.ErrCodeUnauthorized,
			wantCategory: "auth",
		},
		{
			name: "期限切れセッション",
			serve: func(t *testing.T) *http.Response {
				h := NewSessionMiddleware(&mockSessionRepository{})(okHandler())
				req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1/rsvps", nil)
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired"})
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				return w.Result()
			},
			wantStatus:   http.StatusUnauthorized,
			wantCode:     model.ErrCodeUnauthorized,
			wantCategory: "auth",
		},
		{
			name: "CSRFヘッダーなしのPUT",
			serve: func(t *testing.T) *http.Response {
				h := NewCSRFMiddleware(CSRFConfig{})(okHandler())
				req := httptest.NewRequest(http.MethodPut, "/api/runs/run-1/rsvp", nil)
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token"})
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				return w.Result()
			},
			wantStatus:   http.StatusForbidden,
			wantCode:     model.ErrCodeCSRFInvalid,
			wantCategory: "auth",
		},
		{
			name: "レート制限超過",
			serve: func(t *testing.T) *http.Response {
				rl := NewRateLimiter(testRateLimiterConfig(1, 1))
				t.Cleanup(rl.Stop)
				h := rl.GeneralMiddleware()(okHandler())
				h.ServeHTTP(httptest.NewRecorder(), requestAs("user-1"))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, requestAs("user-1"))
				return w.Result()
			},
			wantStatus:   http.StatusTooManyRequests,
			wantCode:     model.ErrCodeRateLimitExceeded,
			wantCategory: "system",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.serve(t)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeErrorBody(t, resp)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", body.Category, tt.wantCategory)
			}
			if body.Message == "" || body.Action == "" {
				t.Errorf("message/action must be set: %+v", body)
			}
		})
	}
}

// TestWriteErrorResponse_DomainErrorFields はサービス層のエラーがそのままの内容で書き出されることを検証する。
func TestWriteErrorResponse_DomainErrorFields(t *testing.T) {
	apiErr := model.NewPhotoNotInRunError("photo-1", "run-2")
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, apiErr)

	body := decodeErrorBody(t, w.Result())
	want := ErrorResponseBody{Code: apiErr.Code, Message: apiErr.Message, Category: apiErr.Category, Action: apiErr.Action}
	if body != want {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーが汎用メッセージのみを返すことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	body := decodeErrorBody(t, resp)
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
	if body.Message != model.NewInternalError().Message {
		t.Errorf("message = %q", body.Message)
	}
}
