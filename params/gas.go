package params

import (
	"fmt"
	"strings"
)

// Base resource costs, in gas units.
const (
	StepGasCost        uint64 = 100
	RangeCheckGasCost  uint64 = 70
	MemoryHoleGasCost  uint64 = 10
	KeccakRoundGasCost uint64 = 180000
)

const (
	// EntryPointInitialBudget is the gas an entry point starts with before
	// paying for its own prologue.
	EntryPointInitialBudget = 100 * StepGasCost
	// SyscallBaseGasCost is pre-charged by the compiled code before every syscall.
	SyscallBaseGasCost = 100 * StepGasCost
	// EntryPointGasCost is the cost of entering a contract call.
	EntryPointGasCost = EntryPointInitialBudget + 500*StepGasCost
	FeeTransferGasCost = EntryPointGasCost + 100*StepGasCost
	TransactionGasCost = 2*EntryPointGasCost + FeeTransferGasCost + 100*StepGasCost
)

// gasCosts maps an upper-cased syscall name to its total gas cost.
var gasCosts = map[string]uint64{
	"CALL_CONTRACT":      SyscallBaseGasCost + 10*StepGasCost + EntryPointGasCost,
	"DEPLOY":             SyscallBaseGasCost + 200*StepGasCost + EntryPointGasCost,
	"EMIT_EVENT":         SyscallBaseGasCost + 10*StepGasCost,
	"GET_BLOCK_HASH":     SyscallBaseGasCost + 50*StepGasCost,
	"GET_EXECUTION_INFO": SyscallBaseGasCost + 10*StepGasCost,
	"KECCAK":             SyscallBaseGasCost,
	"LIBRARY_CALL":       SyscallBaseGasCost + 10*StepGasCost + EntryPointGasCost,
	"REPLACE_CLASS":      SyscallBaseGasCost + 50*StepGasCost,
	"SEND_MESSAGE_TO_L1": SyscallBaseGasCost + 50*StepGasCost,
	"STORAGE_READ":       SyscallBaseGasCost + 50*StepGasCost,
	"STORAGE_WRITE":      SyscallBaseGasCost + 50*StepGasCost,

	"SECP256K1_ADD":              406*StepGasCost + 29*RangeCheckGasCost,
	"SECP256K1_GET_POINT_FROM_X": 391*StepGasCost + 30*RangeCheckGasCost + 20*MemoryHoleGasCost,
	"SECP256K1_GET_XY":           239*StepGasCost + 11*RangeCheckGasCost + 40*MemoryHoleGasCost,
	"SECP256K1_MUL":              76501*StepGasCost + 7045*RangeCheckGasCost + 2*MemoryHoleGasCost,
	"SECP256K1_NEW":              475*StepGasCost + 35*RangeCheckGasCost + 40*MemoryHoleGasCost,
	"SECP256R1_ADD":              589*StepGasCost + 57*RangeCheckGasCost,
	"SECP256R1_GET_POINT_FROM_X": 510*StepGasCost + 44*RangeCheckGasCost + 20*MemoryHoleGasCost,
	"SECP256R1_GET_XY":           241*StepGasCost + 11*RangeCheckGasCost + 40*MemoryHoleGasCost,
	"SECP256R1_MUL":              125340*StepGasCost + 13961*RangeCheckGasCost + 2*MemoryHoleGasCost,
	"SECP256R1_NEW":              594*StepGasCost + 49*RangeCheckGasCost + 40*MemoryHoleGasCost,
}

// GasCost returns the total gas cost of the named syscall.
// An unknown name is a programming error and panics.
func GasCost(name string) uint64 {
	cost, ok := gasCosts[strings.ToUpper(name)]
	if !ok {
		panic(fmt.Sprintf("no gas cost for syscall %q", name))
	}

	return cost
}

// RequiredGas returns the gas a syscall still has to pay on top of the
// pre-charged SyscallBaseGasCost.
func RequiredGas(name string) uint64 {
	return GasCost(name) - SyscallBaseGasCost
}
