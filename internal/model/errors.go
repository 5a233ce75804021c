// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, run, photo, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeRunNotFound            = "RUN_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodePhotoNotFound          = "PHOTO_NOT_FOUND"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeAttendanceConflict     = "ATTENDANCE_CONFLICT"
	ErrCodePhotoAlreadyConfirmed  = "PHOTO_ALREADY_CONFIRMED"
	ErrCodeStorageNotConfigured   = "STORAGE_NOT_CONFIGURED"
	ErrCodeInternalInconsistency  = "INTERNAL_INCONSISTENCY"
	ErrCodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"
	ErrCodeInvalidRSVPStatus      = "INVALID_RSVP_STATUS"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeCSRFInvalid            = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewRunNotFoundError はランが見つからない場合のエラーを生成する。
func NewRunNotFoundError(runID string) *APIError {
	return &APIError{
		Code:     ErrCodeRunNotFound,
		Message:  fmt.Sprintf("指定されたランが見つかりません: %s", runID),
		Category: "run",
		Action:   "ランIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "run",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewPhotoNotFoundError は写真が存在しない、または確認待ちでない場合のエラーを生成する。
func NewPhotoNotFoundError(photoID string) *APIError {
	return &APIError{
		Code:     ErrCodePhotoNotFound,
		Message:  fmt.Sprintf("写真が見つからないか、このユーザーによる確認待ちではありません: %s", photoID),
		Category: "photo",
		Action:   "写真IDを確認し、アップロードURLの発行からやり直してください。",
	}
}

// NewPhotoNotInRunError は写真が指定ランに属していない場合のエラーを生成する。
// 存在の有無を漏らさないためPHOTO_NOT_FOUNDとして扱う。
func NewPhotoNotInRunError(photoID, runID string) *APIError {
	return &APIError{
		Code:     ErrCodePhotoNotFound,
		Message:  fmt.Sprintf("写真 %s はラン %s に属していません。", photoID, runID),
		Category: "photo",
		Action:   "写真をアップロードしたランのページから確認してください。",
	}
}

// NewNotUploaderError はアップロード者以外が写真を確認しようとした場合のエラーを生成する。
func NewNotUploaderError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "写真を確認できるのはアップロードしたユーザーのみです。",
		Category: "auth",
		Action:   "写真をアップロードしたアカウントでログインしてください。",
	}
}

// NewInsufficientRoleError は出席記録の権限がない場合のエラーを生成する。
func NewInsufficientRoleError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "出席を記録する権限がありません。",
		Category: "auth",
		Action:   "オーガナイザーまたは管理者に依頼してください。",
	}
}

// NewAttendanceConflictError は一意制約違反後に既存の出席記録を取得できなかった場合のエラーを生成する。
func NewAttendanceConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeAttendanceConflict,
		Message:  "このランの出席は既に記録されていますが、記録を取得できませんでした。",
		Category: "run",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPhotoAlreadyConfirmedError は確認済みの写真を再確認しようとした場合のエラーを生成する。
func NewPhotoAlreadyConfirmedError(photoID string) *APIError {
	return &APIError{
		Code:     ErrCodePhotoAlreadyConfirmed,
		Message:  fmt.Sprintf("写真は既に確認済みです: %s", photoID),
		Category: "photo",
		Action:   "新しい写真として再度アップロードしてください。",
	}
}

// NewStorageNotConfiguredError はオブジェクトストレージのバケットまたはリージョンが未設定の場合のエラーを生成する。
// 運用者側の設定ミスであり、リトライでは回復しない。
func NewStorageNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageNotConfigured,
		Message:  "写真ストレージが設定されていません。",
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewMissingStorageKeyError は確認待ち写真にストレージキーが無い場合のエラーを生成する。
// データ破損を示す。
func NewMissingStorageKeyError(photoID string) *APIError {
	return &APIError{
		Code:     ErrCodeInternalInconsistency,
		Message:  fmt.Sprintf("写真レコードにストレージキーがありません: %s", photoID),
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewUnsupportedContentTypeError は許可されていないContent-Typeの場合のエラーを生成する。
func NewUnsupportedContentTypeError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedContentType,
		Message:  fmt.Sprintf("サポートされていないファイル形式です: %s", contentType),
		Category: "validation",
		Action:   "JPEG、PNG、GIF、WebPのいずれかの画像を選択してください。",
	}
}

// NewInvalidRSVPStatusError は無効なRSVPステータスの場合のエラーを生成する。
func NewInvalidRSVPStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRSVPStatus,
		Message:  fmt.Sprintf("無効なRSVPステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには YES、NO、MAYBE のいずれかを指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証に失敗した場合のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 詳細はログのみに記録し、利用者には返さない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
