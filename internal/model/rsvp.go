package model

import "time"

// RSVPStatus は参加表明のステータス。
type RSVPStatus string

const (
	RSVPYes   RSVPStatus = "YES"
	RSVPNo    RSVPStatus = "NO"
	RSVPMaybe RSVPStatus = "MAYBE"
)

// Valid は定義済みのステータスかどうかを返す。
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}

// RSVP はランへの参加表明を表す。
// (RunID, UserID) の組ごとに最大1件で、再送信はステータスを上書きする。履歴は保持しない。
type RSVP struct {
	ID        string
	RunID     string
	UserID    string
	Status    RSVPStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RSVPDetail は一覧表示用にユーザー要約を結合したRSVP。
type RSVPDetail struct {
	RSVP
	User *UserSummary
}

// Attendance はランへの出席記録を表す。
// (RunID, UserID) の組ごとに最大1件。
type Attendance struct {
	ID         string
	RunID      string
	UserID     string
	MarkedByID *string // 記録したオーガナイザー（監査用）
	MarkedAt   time.Time
}

// AttendanceDetail は一覧表示用にユーザー要約を結合した出席記録。
type AttendanceDetail struct {
	Attendance
	User *UserSummary
}
