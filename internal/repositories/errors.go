package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFoundError checks if the error indicates a missing row
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a unique constraint violation.
// Requires the gorm connection to be opened with TranslateError enabled.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
