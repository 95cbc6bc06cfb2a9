package napi

import (
	"fmt"

	"github.com/wippyai/napi-runtime/errors"
)

// Status is the result code of an ABI call. Values follow Node-API numbering.
type Status int

const (
	StatusOK                  Status = 0
	StatusInvalidArg          Status = 1
	StatusGenericFailure      Status = 9
	StatusEscapeCalledTwice   Status = 12
	StatusHandleScopeMismatch Status = 13
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidArg:
		return "invalid_arg"
	case StatusGenericFailure:
		return "generic_failure"
	case StatusEscapeCalledTwice:
		return "escape_called_twice"
	case StatusHandleScopeMismatch:
		return "handle_scope_mismatch"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus maps a status name as printed by String back to a Status.
func ParseStatus(name string) (Status, bool) {
	for _, s := range []Status{
		StatusOK,
		StatusInvalidArg,
		StatusGenericFailure,
		StatusEscapeCalledTwice,
		StatusHandleScopeMismatch,
	} {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// StatusOf classifies err into the status an ABI call reports for it.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	switch errors.KindOf(err) {
	case errors.KindInvalidArg, errors.KindDuplicate, errors.KindNotFound, errors.KindUnderflow:
		return StatusInvalidArg
	case errors.KindScopeMismatch:
		return StatusHandleScopeMismatch
	case errors.KindEscapeCalledTwice:
		return StatusEscapeCalledTwice
	default:
		return StatusGenericFailure
	}
}

// ErrorInfo describes the outcome of the most recent ABI call on an Env.
type ErrorInfo struct {
	Err     error
	Message string
	Status  Status
}
