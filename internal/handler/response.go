package handler

import (
	"time"

	"github.com/hitoshi/hashtrail/internal/model"
)

// userSummaryResponse はレスポンスに埋め込むユーザー要約。
type userSummaryResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// runSummaryResponse はレスポンスに埋め込むラン要約。
type runSummaryResponse struct {
	ID         string `json:"id"`
	Descriptor string `json:"descriptor"`
}

// rsvpResponse はRSVPのAPIレスポンス。
type rsvpResponse struct {
	ID        string               `json:"id"`
	RunID     string               `json:"runId"`
	UserID    string               `json:"userId"`
	Status    string               `json:"status"`
	User      *userSummaryResponse `json:"user,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// attendanceResponse は出席記録のAPIレスポンス。
type attendanceResponse struct {
	ID         string               `json:"id"`
	RunID      string               `json:"runId"`
	UserID     string               `json:"userId"`
	MarkedByID *string              `json:"markedById"`
	MarkedAt   time.Time            `json:"markedAt"`
	User       *userSummaryResponse `json:"user,omitempty"`
}

// uploadURLResponse は署名付きアップロードURL発行のAPIレスポンス。
type uploadURLResponse struct {
	UploadURL  string `json:"uploadUrl"`
	PhotoID    string `json:"photoId"`
	StorageKey string `json:"storageKey"`
}

// photoResponse は写真のAPIレスポンス。
type photoResponse struct {
	ID         string               `json:"id"`
	RunID      string               `json:"runId"`
	UploaderID string               `json:"uploaderId"`
	StorageKey string               `json:"storageKey"`
	URL        *string              `json:"url"`
	Caption    *string              `json:"caption"`
	UploadedBy *userSummaryResponse `json:"uploadedBy"`
	Run        *runSummaryResponse  `json:"run,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

func toUserSummaryResponse(u *model.UserSummary) *userSummaryResponse {
	if u == nil {
		return nil
	}
	return &userSummaryResponse{ID: u.ID, Name: u.Name, Image: u.Image}
}

func toRSVPResponse(r *model.RSVP, user *model.UserSummary) rsvpResponse {
	return rsvpResponse{
		ID:        r.ID,
		RunID:     r.RunID,
		UserID:    r.UserID,
		Status:    string(r.Status),
		User:      toUserSummaryResponse(user),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toAttendanceResponse(a *model.Attendance, user *model.UserSummary) attendanceResponse {
	return attendanceResponse{
		ID:         a.ID,
		RunID:      a.RunID,
		UserID:     a.UserID,
		MarkedByID: a.MarkedByID,
		MarkedAt:   a.MarkedAt,
		User:       toUserSummaryResponse(user),
	}
}

func toPhotoResponse(p *model.PhotoDetail) photoResponse {
	resp := photoResponse{
		ID:         p.ID,
		RunID:      p.RunID,
		UploaderID: p.UploaderID,
		StorageKey: p.StorageKey,
		URL:        p.URL,
		Caption:    p.Caption,
		UploadedBy: toUserSummaryResponse(p.UploadedBy),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.Run != nil {
		resp.Run = &runSummaryResponse{ID: p.Run.ID, Descriptor: p.Run.Descriptor}
	}
	return resp
}
