// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般参加者。
	RoleUser Role = "USER"
	// RoleOrganizer はランを主催するオーガナイザー。
	RoleOrganizer Role = "ORGANIZER"
	// RoleAdmin は管理者。
	RoleAdmin Role = "ADMIN"
)

// CanMarkAttendance は出席を記録できるロールかどうかを返す。
func (r Role) CanMarkAttendance() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Name      string
	Email     string
	Image     *string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary は表示用のユーザー要約を返す。
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Image: u.Image}
}

// UserSummary はレスポンスに埋め込むユーザー要約。
type UserSummary struct {
	ID    string
	Name  string
	Image *string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
