package networkstore

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

func isNotNullConstraintViolation(err error) bool {
	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "null value") || strings.Contains(errMsg, "not null") || strings.Contains(errMsg, "23502")
}
