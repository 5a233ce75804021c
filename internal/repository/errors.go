package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ストレージ層のエラー。
// PostgreSQL固有のエラーコードはこのパッケージ内で以下に変換し、上位層へ漏らさない。
var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("repository: duplicate record")
	// ErrReferenceNotFound は外部キーの参照先が存在しないことを表す。
	ErrReferenceNotFound = errors.New("repository: referenced record not found")
	// ErrNotFound は更新対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("repository: record not found")
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// translatePQError はpq.Errorを対応する番兵エラーに変換する。
// 該当しない場合はnilを返す。
func translatePQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrReferenceNotFound
	}
	return nil
}
