package repository

import (
	"errors"

	"github.com/lib/pq"
)

// リポジトリ層のセンチネルエラー。サービス層はerrors.Isで判定してAPIErrorに変換する。
var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey は参照整合性制約違反を表す。
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrNotFound は更新・削除対象の行が存在しないことを表す。
	ErrNotFound = errors.New("record not found")
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// translateError はPostgreSQLの制約違反をセンチネルエラーに変換する。
// それ以外のエラーはそのまま返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrForeignKey
	default:
		return err
	}
}
