// Package memory はrepositoryインターフェースのインメモリ実装を提供する。
// PostgreSQL版と同じ一意制約・外部キーの意味論を持ち、ローカル開発とテストで使用する。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hashtrail/internal/model"
	"github.com/hitoshi/hashtrail/internal/repository"
)

// Store は全エンティティを単一のミューテックスで保護して保持する。
type Store struct {
	mu sync.Mutex

	users    map[string]model.User
	sessions map[string]model.Session
	runs     map[string]model.Run

	rsvps      map[pairKey]model.RSVP
	rsvpOrder  []pairKey
	attendance map[pairKey]model.Attendance
	attOrder   []pairKey
	photos     map[string]model.Photo
	photoOrder []string

	now func() time.Time
}

type pairKey struct {
	runID  string
	userID string
}

// New は空のStoreを生成する。
func New() *Store {
	return &Store{
		users:      make(map[string]model.User),
		sessions:   make(map[string]model.Session),
		runs:       make(map[string]model.Run),
		rsvps:      make(map[pairKey]model.RSVP),
		attendance: make(map[pairKey]model.Attendance),
		photos:     make(map[string]model.Photo),
		now:        time.Now,
	}
}

// SetClock は時刻取得関数を差し替える（テスト用）。
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- シード ---

// AddUser はユーザーを登録する。
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.users[u.ID] = u
}

// AddSession はセッションを登録する。
func (s *Store) AddSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.sessions[sess.ID] = sess
}

// AddRun はランを登録する。
func (s *Store) AddRun(r model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
		r.UpdatedAt = r.CreatedAt
	}
	s.runs[r.ID] = r
}

// RemoveRun はランのみを削除する。紐づく行は残すため、孤立した写真の再現に使える。
func (s *Store) RemoveRun(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

// --- リポジトリビュー ---

// Runs はRunRepositoryを返す。
func (s *Store) Runs() *RunRepo { return &RunRepo{s: s} }

// Users はUserRepositoryを返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Sessions はSessionRepositoryを返す。
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// RSVPs はRSVPRepositoryを返す。
func (s *Store) RSVPs() *RSVPRepo { return &RSVPRepo{s: s} }

// Attendances はAttendanceRepositoryを返す。
func (s *Store) Attendances() *AttendanceRepo { return &AttendanceRepo{s: s} }

// Photos はPhotoRepositoryを返す。
func (s *Store) Photos() *PhotoRepo { return &PhotoRepo{s: s} }

func (s *Store) userSummary(id string) *model.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return u.Summary()
}

// RunRepo はランのインメモリリポジトリ。
type RunRepo struct{ s *Store }

// FindByID は指定IDのランを取得する。見つからない場合はnilを返す。
func (r *RunRepo) FindByID(_ context.Context, id string) (*model.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// UserRepo はユーザーのインメモリリポジトリ。
type UserRepo struct{ s *Store }

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *UserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// SessionRepo はセッションのインメモリリポジトリ。
type SessionRepo struct{ s *Store }

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *SessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || !sess.ExpiresAt.After(r.s.now()) {
		return nil, nil
	}
	return &sess, nil
}

// RSVPRepo は参加表明のインメモリリポジトリ。
type RSVPRepo struct{ s *Store }

// Upsert は (runID, userID) のRSVPを作成または上書きする。
func (r *RSVPRepo) Upsert(_ context.Context, runID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.runs[runID]; !ok {
		return nil, fmt.Errorf("rsvp run %s: %w", runID, repository.ErrReferenceNotFound)
	}
	if _, ok := r.s.users[userID]; !ok {
		return nil, fmt.Errorf("rsvp user %s: %w", userID, repository.ErrReferenceNotFound)
	}

	key := pairKey{runID, userID}
	now := r.s.now()
	rsvp, ok := r.s.rsvps[key]
	if ok {
		rsvp.Status = status
		rsvp.UpdatedAt = now
	} else {
		rsvp = model.RSVP{
			ID:        uuid.New().String(),
			RunID:     runID,
			UserID:    userID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.s.rsvpOrder = append(r.s.rsvpOrder, key)
	}
	r.s.rsvps[key] = rsvp
	return &rsvp, nil
}

// FindByRunAndUser はランとユーザーでRSVPを取得する。見つからない場合はnilを返す。
func (r *RSVPRepo) FindByRunAndUser(_ context.Context, runID, userID string) (*model.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rsvp, ok := r.s.rsvps[pairKey{runID, userID}]
	if !ok {
		return nil, nil
	}
	return &rsvp, nil
}

// ListByRun はランのRSVP一覧を作成順に返す。
func (r *RSVPRepo) ListByRun(_ context.Context, runID string) ([]model.RSVPDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var details []model.RSVPDetail
	for _, key := range r.s.rsvpOrder {
		if key.runID != runID {
			continue
		}
		details = append(details, model.RSVPDetail{
			RSVP: r.s.rsvps[key],
			User: r.s.userSummary(key.userID),
		})
	}
	return details, nil
}

// AttendanceRepo は出席記録のインメモリリポジトリ。
type AttendanceRepo struct{ s *Store }

// Create は出席記録を作成する。
func (r *AttendanceRepo) Create(_ context.Context, a *model.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.runs[a.RunID]; !ok {
		return fmt.Errorf("attendance run %s: %w", a.RunID, repository.ErrReferenceNotFound)
	}
	if _, ok := r.s.users[a.UserID]; !ok {
		return fmt.Errorf("attendance user %s: %w", a.UserID, repository.ErrReferenceNotFound)
	}
	if a.MarkedByID != nil {
		if _, ok := r.s.users[*a.MarkedByID]; !ok {
			return fmt.Errorf("attendance marker %s: %w", *a.MarkedByID, repository.ErrReferenceNotFound)
		}
	}

	key := pairKey{a.RunID, a.UserID}
	if _, exists := r.s.attendance[key]; exists {
		return fmt.Errorf("attendance %s/%s: %w", a.RunID, a.UserID, repository.ErrDuplicate)
	}

	stored := *a
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.MarkedAt.IsZero() {
		stored.MarkedAt = r.s.now()
	}
	r.s.attendance[key] = stored
	r.s.attOrder = append(r.s.attOrder, key)
	*a = stored
	return nil
}

// FindByRunAndUser はランとユーザーで出席記録を取得する。見つからない場合はnilを返す。
func (r *AttendanceRepo) FindByRunAndUser(_ context.Context, runID, userID string) (*model.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attendance[pairKey{runID, userID}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// ListByRun はランの出席一覧を記録順に返す。
func (r *AttendanceRepo) ListByRun(_ context.Context, runID string) ([]model.AttendanceDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var details []model.AttendanceDetail
	for _, key := range r.s.attOrder {
		if key.runID != runID {
			continue
		}
		details = append(details, model.AttendanceDetail{
			Attendance: r.s.attendance[key],
			User:       r.s.userSummary(key.userID),
		})
	}
	return details, nil
}

// PhotoRepo は写真のインメモリリポジトリ。
type PhotoRepo struct{ s *Store }

// CreatePending はURL未設定の確認待ち写真を作成する。
func (r *PhotoRepo) CreatePending(_ context.Context, p *model.Photo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.runs[p.RunID]; !ok {
		return fmt.Errorf("photo run %s: %w", p.RunID, repository.ErrReferenceNotFound)
	}
	if _, ok := r.s.users[p.UploaderID]; !ok {
		return fmt.Errorf("photo uploader %s: %w", p.UploaderID, repository.ErrReferenceNotFound)
	}
	if _, exists := r.s.photos[p.ID]; exists {
		return fmt.Errorf("photo %s: %w", p.ID, repository.ErrDuplicate)
	}
	for _, existing := range r.s.photos {
		if existing.StorageKey == p.StorageKey {
			return fmt.Errorf("photo storage key %s: %w", p.StorageKey, repository.ErrDuplicate)
		}
	}

	stored := *p
	stored.URL = nil
	stored.Caption = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.s.now()
		stored.UpdatedAt = stored.CreatedAt
	}
	r.s.photos[stored.ID] = stored
	r.s.photoOrder = append(r.s.photoOrder, stored.ID)
	return nil
}

// FindByID は指定IDの写真を取得する。見つからない場合はnilを返す。
func (r *PhotoRepo) FindByID(_ context.Context, id string) (*model.Photo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photos[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// FindDetail は写真をラン要約・アップロード者要約付きで取得する。
func (r *PhotoRepo) FindDetail(_ context.Context, id string) (*model.PhotoDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photos[id]
	if !ok {
		return nil, nil
	}
	detail := &model.PhotoDetail{Photo: p, UploadedBy: r.s.userSummary(p.UploaderID)}
	if run, ok := r.s.runs[p.RunID]; ok {
		detail.Run = run.Summary()
	}
	return detail, nil
}

// UpdateConfirmation は写真のURLとキャプションを設定する。
func (r *PhotoRepo) UpdateConfirmation(_ context.Context, id string, url string, caption *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photos[id]
	if !ok {
		return fmt.Errorf("photo %s: %w", id, repository.ErrNotFound)
	}
	p.URL = &url
	if caption != nil {
		c := *caption
		p.Caption = &c
	} else {
		p.Caption = nil
	}
	p.UpdatedAt = r.s.now()
	r.s.photos[id] = p
	return nil
}

// ListConfirmedByRun はランの確認済み写真を新しい順に返す。
func (r *PhotoRepo) ListConfirmedByRun(_ context.Context, runID string) ([]model.PhotoDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var details []model.PhotoDetail
	for i := len(r.s.photoOrder) - 1; i >= 0; i-- {
		p := r.s.photos[r.s.photoOrder[i]]
		if p.RunID != runID || p.IsPending() {
			continue
		}
		details = append(details, model.PhotoDetail{Photo: p, UploadedBy: r.s.userSummary(p.UploaderID)})
	}
	return details, nil
}

// ListStalePending はbefore以前に作成された確認待ち写真を古い順に最大limit件返す。
func (r *PhotoRepo) ListStalePending(_ context.Context, before time.Time, limit int) ([]*model.Photo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var stale []*model.Photo
	for _, id := range r.s.photoOrder {
		p := r.s.photos[id]
		if p.IsPending() && p.CreatedAt.Before(before) {
			stale = append(stale, &p)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// DeletePendingByID は確認待ちの写真を削除する。確認済みまたは存在しない場合はfalseを返す。
func (r *PhotoRepo) DeletePendingByID(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photos[id]
	if !ok || p.URL != nil {
		return false, nil
	}
	delete(r.s.photos, id)
	for i, pid := range r.s.photoOrder {
		if pid == id {
			r.s.photoOrder = append(r.s.photoOrder[:i], r.s.photoOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

// compile-time interface checks
var (
	_ repository.RunRepository        = (*RunRepo)(nil)
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.SessionRepository    = (*SessionRepo)(nil)
	_ repository.RSVPRepository       = (*RSVPRepo)(nil)
	_ repository.AttendanceRepository = (*AttendanceRepo)(nil)
	_ repository.PhotoRepository      = (*PhotoRepo)(nil)
)
