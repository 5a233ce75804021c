package model

import "time"

// Run はハッシュラン（イベント）を表す。
// Numberはラン通し番号で一意。
type Run struct {
	ID          string
	Number      int
	Descriptor  string
	DateTime    time.Time
	Address     string
	Lat         *float64
	Lng         *float64
	IntroLink   *string
	OrganizerID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary は表示用のラン要約を返す。
func (r *Run) Summary() *RunSummary {
	return &RunSummary{ID: r.ID, Descriptor: r.Descriptor}
}

// RunSummary はレスポンスに埋め込むラン要約。
type RunSummary struct {
	ID         string
	Descriptor string
}
