package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrMemberNotFound     = errors.New("member not found in group")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrRelationshipAbsent = errors.New("relationship status not found")
	ErrConnectionAbsent   = errors.New("connection not found")
	// ErrStaleWrite means a conditional update lost a race; the caller re-reads and retries.
	ErrStaleWrite = errors.New("row changed concurrently")
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// Requires gorm.Config.TranslateError.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
