package syscalltest

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/state/runtime"
	"github.com/sunvim/starkos/types"
)

const (
	baseSteps    = 100
	stepsPerCall = 25
)

// Program is a contract written in Go against the syscall client. It
// returns its retdata and whether it reverted.
type Program func(c *Client, call *types.CallEntryPoint) (retdata []*felt.Felt, failed bool, err error)

// FuncRuntime runs registered programs in place of compiled classes. Every
// class it runs reports a positive step count.
type FuncRuntime struct {
	programs map[felt.Felt]Program
}

func NewFuncRuntime() *FuncRuntime {
	return &FuncRuntime{programs: make(map[felt.Felt]Program)}
}

// Register makes p the code of classHash.
func (r *FuncRuntime) Register(classHash *felt.Felt, p Program) {
	r.programs[*classHash] = p
}

func (r *FuncRuntime) Name() string {
	return "func"
}

func (r *FuncRuntime) CanRun(class *types.CompiledClass) bool {
	return !class.Deprecated
}

func (r *FuncRuntime) Run(req *runtime.RunRequest) (*runtime.RunResult, error) {
	p, ok := r.programs[*req.ClassHash]
	if !ok {
		return nil, fmt.Errorf("%w: no program for class %s", runtime.ErrEntryPointNotFound, req.ClassHash)
	}

	c := NewClient(req.Segments, req.Handler, req.SyscallPtr, req.Call.InitialGas)

	retdata, failed, err := p(c, req.Call)
	if err != nil {
		return nil, err
	}

	return &runtime.RunResult{
		Retdata:       retdata,
		Failed:        failed,
		GasConsumed:   req.Call.InitialGas - c.Gas(),
		SyscallEndPtr: c.Ptr(),
		Resources: types.ExecutionResources{
			NSteps: baseSteps + stepsPerCall*uint64(len(c.Transcript())),
		},
	}, nil
}
