package state

import "errors"

var (
	ErrExecutionStop    = errors.New("execution stopped")
	ErrClassNotFound    = errors.New("compiled class not found")
	ErrContractNotFound = errors.New("no contract deployed at address")
	ErrStepsLimit       = errors.New("transaction exceeded its steps limit")
	ErrInvalidSnapshot  = errors.New("invalid snapshot id")
	ErrReplayMismatch   = errors.New("replayed call does not match its recorded outcome")
)
