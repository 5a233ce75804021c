package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// corsMaxAge はプリフライト結果をブラウザがキャッシュする秒数。
const corsMaxAge = 86400

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// credentials送信と共存するため、ワイルドカード(*)は使用しない。
// allowedOriginが空の場合はクロスオリジンを一切許可しない。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		// AllowedOriginsが空だと全許可になるため、判定は関数で行う
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return allowedOrigin != "" && origin == allowedOrigin
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}
