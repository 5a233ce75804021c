package handler

import (
	"context"

	"github.com/hitoshi/hashtrail/internal/attendance"
	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/photo"
	"github.com/hitoshi/hashtrail/internal/rsvp"
)

// RSVPServiceAdapter は rsvp.Service を RSVPServiceInterface に適合させるアダプタ。
type RSVPServiceAdapter struct {
	svc *rsvp.Service
}

// NewRSVPServiceAdapter はRSVPServiceAdapterを生成する。
func NewRSVPServiceAdapter(svc *rsvp.Service) *RSVPServiceAdapter {
	return &RSVPServiceAdapter{svc: svc}
}

// SetRSVP はRSVPを登録しhandlerレスポンス型で返す。
func (a *RSVPServiceAdapter) SetRSVP(ctx context.Context, runID, userID string, status model.RSVPStatus) (*rsvpResponse, error) {
	r, err := a.svc.SetRSVP(ctx, runID, userID, status)
	if err != nil {
		return nil, err
	}
	resp := toRSVPResponse(r, nil)
	return &resp, nil
}

// ListRSVPs はRSVP一覧をhandlerレスポンス型で返す。
func (a *RSVPServiceAdapter) ListRSVPs(ctx context.Context, runID string) ([]rsvpResponse, error) {
	details, err := a.svc.ListRSVPs(ctx, runID)
	if err != nil {
		return nil, err
	}
	results := make([]rsvpResponse, len(details))
	for i := range details {
		results[i] = toRSVPResponse(&details[i].RSVP, details[i].User)
	}
	return results, nil
}

// AttendanceServiceAdapter は attendance.Service を AttendanceServiceInterface に適合させるアダプタ。
type AttendanceServiceAdapter struct {
	svc *attendance.Service
}

// NewAttendanceServiceAdapter はAttendanceServiceAdapterを生成する。
func NewAttendanceServiceAdapter(svc *attendance.Service) *AttendanceServiceAdapter {
	return &AttendanceServiceAdapter{svc: svc}
}

// MarkAttended は出席を記録し、新規作成かどうかを添えて返す。
// Conflictの結果はサービス層でエラーに変換済み。
func (a *AttendanceServiceAdapter) MarkAttended(ctx context.Context, runID, userID, markedByID string) (*attendanceResponse, bool, error) {
	result, err := a.svc.MarkAttended(ctx, attendance.MarkInput{
		RunID:      runID,
		UserID:     userID,
		MarkedByID: markedByID,
	})
	if err != nil {
		return nil, false, err
	}
	resp := toAttendanceResponse(result.Attendance, nil)
	return &resp, result.Outcome == attendance.OutcomeCreated, nil
}

// ListAttendance は出席一覧をhandlerレスポンス型で返す。
func (a *AttendanceServiceAdapter) ListAttendance(ctx context.Context, runID string) ([]attendanceResponse, error) {
	details, err := a.svc.ListAttendance(ctx, runID)
	if err != nil {
		return nil, err
	}
	results := make([]attendanceResponse, len(details))
	for i := range details {
		results[i] = toAttendanceResponse(&details[i].Attendance, details[i].User)
	}
	return results, nil
}

// PhotoServiceAdapter は photo.Service を PhotoServiceInterface に適合させるアダプタ。
type PhotoServiceAdapter struct {
	svc *photo.Service
}

// NewPhotoServiceAdapter はPhotoServiceAdapterを生成する。
func NewPhotoServiceAdapter(svc *photo.Service) *PhotoServiceAdapter {
	return &PhotoServiceAdapter{svc: svc}
}

// RequestUpload は署名付きアップロードURLを発行しhandlerレスポンス型で返す。
func (a *PhotoServiceAdapter) RequestUpload(ctx context.Context, runID, uploaderID, fileName, contentType string) (*uploadURLResponse, error) {
	ticket, err := a.svc.RequestUpload(ctx, photo.RequestUploadInput{
		RunID:       runID,
		UploaderID:  uploaderID,
		FileName:    fileName,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	return &uploadURLResponse{
		UploadURL:  ticket.UploadURL,
		PhotoID:    ticket.PhotoID,
		StorageKey: ticket.StorageKey,
	}, nil
}

// ConfirmUpload は写真を確定しhandlerレスポンス型で返す。
// パスのランIDで写真の所属を限定する。
func (a *PhotoServiceAdapter) ConfirmUpload(ctx context.Context, runID, photoID, callerID string, caption *string) (*photoResponse, error) {
	detail, err := a.svc.ConfirmUpload(ctx, photo.ConfirmUploadInput{
		PhotoID:  photoID,
		CallerID: callerID,
		RunID:    runID,
		Caption:  caption,
	})
	if err != nil {
		return nil, err
	}
	resp := toPhotoResponse(detail)
	return &resp, nil
}

// ListPhotos は確認済み写真一覧をhandlerレスポンス型で返す。
func (a *PhotoServiceAdapter) ListPhotos(ctx context.Context, runID string) ([]photoResponse, error) {
	details, err := a.svc.ListPhotos(ctx, runID)
	if err != nil {
		return nil, err
	}
	results := make([]photoResponse, len(details))
	for i := range details {
		results[i] = toPhotoResponse(&details[i])
	}
	return results, nil
}

// --- compile-time interface checks ---

var _ RSVPServiceInterface = (*RSVPServiceAdapter)(nil)
var _ AttendanceServiceInterface = (*AttendanceServiceAdapter)(nil)
var _ PhotoServiceInterface = (*PhotoServiceAdapter)(nil)
