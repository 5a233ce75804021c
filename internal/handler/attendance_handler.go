package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AttendanceServiceInterface は出席ハンドラーが必要とするサービスインターフェース。
type AttendanceServiceInterface interface {
	// MarkAttended は出席を記録する。createdは今回新たに作成された場合にtrue。
	MarkAttended(ctx context.Context, runID, userID, markedByID string) (resp *attendanceResponse, created bool, err error)
	// ListAttendance はランの出席一覧を返す。
	ListAttendance(ctx context.Context, runID string) ([]attendanceResponse, error)
}

// AttendanceHandler は出席記録のHTTPハンドラー。
type AttendanceHandler struct {
	service AttendanceServiceInterface
}

// NewAttendanceHandler はAttendanceHandlerを生成する。
func NewAttendanceHandler(service AttendanceServiceInterface) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// markAttendanceRequest は出席記録リクエストのボディ。
type markAttendanceRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

// MarkAttended は参加者の出席を記録する。
// 新規作成時は201、既に記録済みの場合は既存の記録を200で返す。
// POST /api/runs/{id}/attendance
func (h *AttendanceHandler) MarkAttended(w http.ResponseWriter, r *http.Request) {
	markedByID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req markAttendanceRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}

	attendance, created, err := h.service.MarkAttended(r.Context(), chi.URLParam(r, "id"), req.UserID, markedByID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, attendance)
}

// ListAttendance はランの出席一覧を返す。
// GET /api/runs/{id}/attendance
func (h *AttendanceHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	list, err := h.service.ListAttendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}
