package syscall

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

// Fatal errors. Any of them aborts the run.
var (
	ErrSyscallPtrMismatch     = errors.New("bad syscall_ptr")
	ErrSyscallPtrNotSet       = errors.New("syscall_ptr must be set before using the syscall handler")
	ErrSyscallPtrAlreadySet   = errors.New("syscall_ptr is already set")
	ErrUnsupportedSyscall     = errors.New("unsupported syscall selector")
	ErrUnsupportedDomain      = errors.New("unsupported address domain")
	ErrInvalidFeltRange       = errors.New("invalid felt range")
	ErrUnknownEcPoint         = errors.New("unknown ec point handle")
	ErrInvalidGas             = errors.New("gas does not fit in 64 bits")
	ErrGasUnderflow           = errors.New("nested call consumed more gas than available")
	ErrInvalidDeployFromZero  = errors.New("the deploy_from_zero field must be 0 or 1")
	ErrCalldataToNoCtor       = errors.New("cannot pass calldata to a contract with no constructor")
	ErrInvalidKeccakWord      = errors.New("keccak input word does not fit in 64 bits")
	ErrIteratorExhausted      = errors.New("iterator is exhausted")
	ErrIteratorNotExhausted   = errors.New("iterator is not exhausted")
	ErrNotInCall              = errors.New("no call is being executed")
	ErrAlreadyInCall          = errors.New("a call is already being executed")
	ErrNotInTx                = errors.New("no transaction is being executed")
	ErrAlreadyInTx            = errors.New("a transaction is already being executed")
	ErrExecutionInfoPtrNotSet = errors.New("execution info pointer is not set")
	ErrDASegmentAlreadySet    = errors.New("DA segment is already initialized")
	ErrDASegmentNotSet        = errors.New("DA segment is not initialized")
	ErrNoOldBlockHash         = errors.New("no stored block hash, block number is below the buffer")
	ErrMissingStorage         = errors.New("no storage snapshot for contract")
)

type StarknetErrorCode string

const (
	CodeUnauthorizedActionOnValidate StarknetErrorCode = "UNAUTHORIZED_ACTION_ON_VALIDATE"
	CodeUndeclaredClass              StarknetErrorCode = "UNDECLARED_CLASS"
	CodeContractAddressUnavailable   StarknetErrorCode = "CONTRACT_ADDRESS_UNAVAILABLE"
	CodeSecurityError                StarknetErrorCode = "SECURITY_ERROR"
)

// StarknetError is a fatal error carrying a Starknet error code.
type StarknetError struct {
	Code    StarknetErrorCode
	Message string
}

func NewStarknetError(code StarknetErrorCode, format string, args ...interface{}) *StarknetError {
	return &StarknetError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *StarknetError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any StarknetError with the same code.
func (e *StarknetError) Is(target error) bool {
	t, ok := target.(*StarknetError)

	return ok && t.Code == e.Code
}

// FailureCode is a syscall-level error code. It is written into the failure
// reason of a response as a short string and never aborts the run.
type FailureCode string

const (
	FailureOutOfGas              FailureCode = "Out of gas"
	FailureInvalidInputLen       FailureCode = "Invalid input length"
	FailureInvalidArgument       FailureCode = "Invalid argument"
	FailureBlockNumberOutOfRange FailureCode = "Block number out of range"
	FailureUndeclaredClass       FailureCode = "Undeclared class"
	FailureAddressUnavailable    FailureCode = "Address unavailable"
)

func (c FailureCode) Felt() *felt.Felt {
	return types.ShortString(string(c))
}
