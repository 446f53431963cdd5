package genesis

import (
	"errors"
	"fmt"

	"github.com/roach88/reforge/internal/legacy"
)

// Code categorizes genesis failures. Every code aborts the run.
type Code string

const (
	// CodeInvalidConfig indicates the configuration failed validation
	// before anything executed.
	CodeInvalidConfig Code = "INVALID_GENESIS_CONFIG"

	// CodeValidatorRegistration indicates a validator that passed
	// validation could not be registered against migrated state, such as
	// an owner that collides with a remapped legacy account.
	CodeValidatorRegistration Code = "VALIDATOR_REGISTRATION_FAILED"

	// CodeMigrationFailure indicates one record could not be migrated.
	// No partial genesis is ever returned.
	CodeMigrationFailure Code = "MIGRATION_FAILURE"

	// CodeUnexpectedDelta indicates unresolved deltas in a genesis phase.
	CodeUnexpectedDelta Code = "UNEXPECTED_DELTA_IN_GENESIS"

	// CodeUnexpectedDeletion indicates the combined artifact deletes keys.
	CodeUnexpectedDeletion Code = "UNEXPECTED_DELETION_IN_GENESIS"

	// CodeWriteSetVerification indicates the standard genesis events are
	// missing or out of place.
	CodeWriteSetVerification Code = "GENESIS_WRITE_SET_VERIFICATION_FAILED"
)

// Error is a genesis failure. Account is set for migration failures of a
// specific record.
type Error struct {
	Code    Code
	Message string
	Account *legacy.Address
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Account != nil {
		msg += fmt.Sprintf(" (account=%s)", e.Account)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsCode reports whether err is a genesis Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code Code) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

func invalidConfig(format string, a ...any) *Error {
	return &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf(format, a...)}
}

func migrationFailure(addr *legacy.Address, err error, format string, a ...any) *Error {
	return &Error{Code: CodeMigrationFailure, Message: fmt.Sprintf(format, a...), Account: addr, Err: err}
}
