// Package engine holds the compatibility matching rules: which answers count as
// signal, how two members are scored, who is eligible, and how directional
// relationships may move. Nothing in here touches storage.
package engine

import "errors"

var (
	ErrInvalidValue         = errors.New("answer value must be one of -2, -1, 0, 1, 2")
	ErrInvalidStatus        = errors.New("unknown relationship status")
	ErrInvalidGender        = errors.New("gender must be male or female")
	ErrInvalidLookingFor    = errors.New("looking_for must be male, female or all")
	ErrTransitionNotAllowed = errors.New("relationship transition not allowed")
	ErrSelfTarget           = errors.New("subject and candidate must differ")
)
