package sqlite

import (
	"errors"

	"gorm.io/gorm"
)

// These rely on gorm.Config.TranslateError, which reports constraint failures
// without naming the constraint.

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}
