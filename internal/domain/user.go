package domain

import "errors"

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is an authenticated caller identity supplied by the external
// identity layer. It is trusted verbatim here.
type UserID string

// ValidateUserID is a tiny helper to avoid ad-hoc checks in adapters.
func ValidateUserID(id string) (UserID, error) {
	if len(id) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(id), nil
}
