package commands

import (
	"errors"
	"fmt"

	"github.com/Lickton/LinkFlow/internal/storage"
)

type ErrorCode string

const (
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeNotFound        ErrorCode = "not_found"
	ErrCodeInternal        ErrorCode = "internal"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidArg(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// storeErr maps storage sentinels onto command error codes; anything
// unexpected surfaces as internal with the failing operation named.
func storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &CommandError{Code: ErrCodeNotFound, Message: op + ": not found"}
	}
	return &CommandError{Code: ErrCodeInternal, Message: fmt.Sprintf("%s: %v", op, err)}
}
