package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/repository/memory"
)

// TestRouterIntegration_ProtectedRoute_WithMiddlewareChain は
// Session -> CSRF -> RateLimit のチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ProtectedRoute_WithMiddlewareChain(t *testing.T) {
	store := memory.New()
	store.AddUser(model.User{ID: "user-router-test", Name: "Router", Email: "router@example.com"})
	store.AddSession(model.Session{ID: "router-test-session", UserID: "user-router-test", ExpiresAt: time.Now().Add(time.Hour)})

	rl := NewRateLimiter(testRateLimiterConfig(100, 1))
	defer rl.Stop()

	csrfConfig := CSRFConfig{}

	r := chi.NewRouter()
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(store.Sessions()))
		r.Use(NewCSRFMiddleware(csrfConfig))
		r.Use(rl.GeneralMiddleware())

		r.Get("/api/protected", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
		r.With(rl.UploadMiddleware()).Post("/api/upload", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	})

	send := func(method, path string, withSession bool, csrf string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if withSession {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "router-test-session"})
		}
		if csrf != "" {
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrf})
			req.Header.Set(csrfHeaderName, csrf)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("CSRFトークン取得は認証不要", func(t *testing.T) {
		if w := send(http.MethodGet, "/api/csrf-token", false, ""); w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("GETはセッションのみで通る", func(t *testing.T) {
		w := send(http.MethodGet, "/api/protected", true, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["user_id"] != "user-router-test" {
			t.Errorf("user_id = %q", body["user_id"])
		}
	})

	t.Run("セッションなしはCSRFより先に401", func(t *testing.T) {
		if w := send(http.MethodPost, "/api/upload", false, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("CSRFトークンなしのPOSTは403", func(t *testing.T) {
		if w := send(http.MethodPost, "/api/upload", true, ""); w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("アップロード制限は1回目のみ通る", func(t *testing.T) {
		if w := send(http.MethodPost, "/api/upload", true, "tok"); w.Code != http.StatusCreated {
			t.Errorf("first: status = %d, want %d", w.Code, http.StatusCreated)
		}
		if w := send(http.MethodPost, "/api/upload", true, "tok"); w.Code != http.StatusTooManyRequests {
			t.Errorf("second: status = %d, want %d", w.Code, http.StatusTooManyRequests)
		}
	})
}
