package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hashtrail/internal/model"
)

// RSVPServiceInterface はRSVPハンドラーが必要とするサービスインターフェース。
type RSVPServiceInterface interface {
	// SetRSVP はセッションユーザーのRSVPを作成または上書きする。
	SetRSVP(ctx context.Context, runID, userID string, status model.RSVPStatus) (*rsvpResponse, error)
	// ListRSVPs はランのRSVP一覧を返す。
	ListRSVPs(ctx context.Context, runID string) ([]rsvpResponse, error)
}

// RSVPHandler は参加表明のHTTPハンドラー。
type RSVPHandler struct {
	service RSVPServiceInterface
}

// NewRSVPHandler はRSVPHandlerを生成する。
func NewRSVPHandler(service RSVPServiceInterface) *RSVPHandler {
	return &RSVPHandler{service: service}
}

// setRSVPRequest はRSVP更新リクエストのボディ。
// ステータスの妥当性はサービス層がランとユーザーの確認後に判定する。
type setRSVPRequest struct {
	Status string `json:"status"`
}

// SetRSVP はセッションユーザーの参加表明を登録する。
// PUT /api/runs/{id}/rsvp
func (h *RSVPHandler) SetRSVP(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req setRSVPRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}

	rsvp, err := h.service.SetRSVP(r.Context(), chi.URLParam(r, "id"), userID, model.RSVPStatus(req.Status))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rsvp)
}

// ListRSVPs はランのRSVP一覧を返す。
// GET /api/runs/{id}/rsvps
func (h *RSVPHandler) ListRSVPs(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	rsvps, err := h.service.ListRSVPs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rsvps)
}
