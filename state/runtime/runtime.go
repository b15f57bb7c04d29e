package runtime

import (
	"errors"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/state/runtime/memory"
	"github.com/sunvim/starkos/types"
)

var (
	ErrEntryPointNotFound = errors.New("entry point not found")
	ErrDepth              = errors.New("max call depth exceeded")
	ErrNoRuntime          = errors.New("no runtime can run the class")
)

// SyscallHandler is what the interpreter calls on every syscall instruction.
type SyscallHandler interface {
	Syscall(ptr types.Relocatable) error
}

// Runtime is a Cairo interpreter.
type Runtime interface {
	Run(req *RunRequest) (*RunResult, error)
	CanRun(class *types.CompiledClass) bool
	Name() string
}

// RunRequest is one entry point execution. The syscall segment starts at
// SyscallPtr and every syscall goes through Handler.
type RunRequest struct {
	ClassHash  *felt.Felt
	Class      *types.CompiledClass
	EntryPoint types.EntryPoint
	Call       *types.CallEntryPoint
	Segments   *memory.SegmentManager
	SyscallPtr types.Relocatable
	Handler    SyscallHandler
}

// RunResult is what the interpreter reports back. SyscallEndPtr is where
// the program left the syscall pointer.
type RunResult struct {
	Retdata       []*felt.Felt
	Failed        bool
	GasConsumed   uint64
	SyscallEndPtr types.Relocatable
	Resources     types.ExecutionResources
}

// FindEntryPoint returns the entry point of the given type registered under
// selector.
func FindEntryPoint(class *types.CompiledClass, typ types.EntryPointType, selector *felt.Felt) (types.EntryPoint, error) {
	for _, ep := range class.EntryPoints(typ) {
		if ep.Selector.Equal(selector) {
			return ep, nil
		}
	}

	return types.EntryPoint{}, ErrEntryPointNotFound
}
