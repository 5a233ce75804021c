package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PhotoServiceInterface は写真ハンドラーが必要とするサービスインターフェース。
type PhotoServiceInterface interface {
	// RequestUpload は確認待ち写真を作成し、署名付きアップロードURLを返す。
	RequestUpload(ctx context.Context, runID, uploaderID, fileName, contentType string) (*uploadURLResponse, error)
	// ConfirmUpload はアップロード済み写真を確定する。
	ConfirmUpload(ctx context.Context, runID, photoID, callerID string, caption *string) (*photoResponse, error)
	// ListPhotos はランの確認済み写真一覧を返す。
	ListPhotos(ctx context.Context, runID string) ([]photoResponse, error)
}

// PhotoHandler は写真アップロードのHTTPハンドラー。
type PhotoHandler struct {
	service PhotoServiceInterface
}

// NewPhotoHandler はPhotoHandlerを生成する。
func NewPhotoHandler(service PhotoServiceInterface) *PhotoHandler {
	return &PhotoHandler{service: service}
}

type uploadURLRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"image_mime"`
}

type confirmUploadRequest struct {
	PhotoID string  `json:"photoId" validate:"required,max=64"`
	Caption *string `json:"caption" validate:"omitempty,max=500"`
}

// RequestUploadURL は写真アップロード用の署名付きURLを発行する。
// POST /api/runs/{id}/photos/upload-url
func (h *PhotoHandler) RequestUploadURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req uploadURLRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}

	ticket, err := h.service.RequestUpload(r.Context(), chi.URLParam(r, "id"), userID, req.FileName, req.ContentType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

// ConfirmUpload はアップロード完了を確定し、公開URLとキャプションを設定する。
// POST /api/runs/{id}/photos/confirm
func (h *PhotoHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req confirmUploadRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}

	photo, err := h.service.ConfirmUpload(r.Context(), chi.URLParam(r, "id"), req.PhotoID, userID, req.Caption)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, photo)
}

// ListPhotos はランの確認済み写真を新しい順に返す。
// GET /api/runs/{id}/photos
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	photos, err := h.service.ListPhotos(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, photos)
}
