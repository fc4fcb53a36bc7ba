package service

import (
	"errors"
	"fmt"
	"time"

	"LFG_Board/internal/model"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAccountDeleted 同时满足 errors.Is(err, ErrUnauthorized)
	ErrAccountDeleted     = fmt.Errorf("%w: account deleted", ErrUnauthorized)
	ErrBanned             = errors.New("account banned")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrInvalidDuration    = errors.New("invalid ban duration")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionInvalid     = errors.New("session invalid")
)

// BannedError 当前仍在封禁期，携带原因与到期时间（nil 为永久）
type BannedError struct {
	Reason     string
	Expiration *time.Time
}

func (e *BannedError) Error() string {
	if e.Expiration == nil {
		return fmt.Sprintf("account banned permanently: %s", e.Reason)
	}
	return fmt.Sprintf("account banned until %s: %s", e.Expiration.Format(time.RFC3339), e.Reason)
}

func (e *BannedError) Is(target error) bool { return target == ErrBanned }

// QuotaExceededError 免费额度用尽
type QuotaExceededError struct {
	Action model.ActionKind
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s limit reached (%d per day for free accounts)", e.Action, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
