package types

import (
	"sort"

	"github.com/NethermindEth/juno/core/felt"
)

type CallType string

const (
	CallTypeCall     CallType = "CALL"
	CallTypeDelegate CallType = "DELEGATE"
)

type EntryPointType string

const (
	EntryPointTypeExternal    EntryPointType = "EXTERNAL"
	EntryPointTypeL1Handler   EntryPointType = "L1_HANDLER"
	EntryPointTypeConstructor EntryPointType = "CONSTRUCTOR"
)

// ConstructorSelector is the selector every constructor entry point is
// registered under.
var ConstructorSelector = StarknetKeccak([]byte("constructor"))

// CallEntryPoint describes a call about to be executed.
type CallEntryPoint struct {
	CallType           CallType       `json:"call_type"`
	ContractAddress    *felt.Felt     `json:"contract_address"`
	CodeAddress        *felt.Felt     `json:"code_address,omitempty"`
	ClassHash          *felt.Felt     `json:"class_hash,omitempty"`
	EntryPointSelector *felt.Felt     `json:"entry_point_selector"`
	EntryPointType     EntryPointType `json:"entry_point_type"`
	Calldata           []*felt.Felt   `json:"calldata"`
	CallerAddress      *felt.Felt     `json:"caller_address"`
	InitialGas         uint64         `json:"initial_gas"`
}

type EventContent struct {
	Keys []*felt.Felt `json:"keys"`
	Data []*felt.Felt `json:"data"`
}

type OrderedEvent struct {
	Order uint64 `json:"order"`
	EventContent
}

type OrderedL2ToL1Message struct {
	Order     uint64       `json:"order"`
	ToAddress *felt.Felt   `json:"to_address"`
	Payload   []*felt.Felt `json:"payload"`
}

type ExecutionResources struct {
	NSteps                 uint64            `json:"n_steps"`
	NMemoryHoles           uint64            `json:"n_memory_holes"`
	BuiltinInstanceCounter map[string]uint64 `json:"builtin_instance_counter,omitempty"`
}

// ExecutionResourcesManager accumulates resources across every call of a
// transaction.
type ExecutionResourcesManager struct {
	CairoUsage     ExecutionResources
	SyscallCounter map[string]uint64
}

func NewExecutionResourcesManager() *ExecutionResourcesManager {
	return &ExecutionResourcesManager{
		SyscallCounter: make(map[string]uint64),
	}
}

func (m *ExecutionResourcesManager) IncSyscallCounter(name string, n uint64) {
	m.SyscallCounter[name] += n
}

// CallInfo is the full record of one executed call, including its inner calls.
type CallInfo struct {
	CallerAddress       *felt.Felt             `json:"caller_address"`
	CallType            CallType               `json:"call_type"`
	ContractAddress     *felt.Felt             `json:"contract_address"`
	CodeAddress         *felt.Felt             `json:"code_address,omitempty"`
	ClassHash           *felt.Felt             `json:"class_hash"`
	EntryPointSelector  *felt.Felt             `json:"entry_point_selector"`
	EntryPointType      EntryPointType         `json:"entry_point_type"`
	Calldata            []*felt.Felt           `json:"calldata"`
	Retdata             []*felt.Felt           `json:"retdata"`
	InitialGas          uint64                 `json:"initial_gas"`
	GasConsumed         uint64                 `json:"gas_consumed"`
	Failed              bool                   `json:"failure_flag"`
	Resources           ExecutionResources     `json:"execution_resources"`
	Events              []OrderedEvent         `json:"events"`
	L2ToL1Messages      []OrderedL2ToL1Message `json:"l2_to_l1_messages"`
	StorageReadValues   []*felt.Felt           `json:"storage_read_values"`
	AccessedStorageKeys []*felt.Felt           `json:"accessed_storage_keys"`
	InternalCalls       []*CallInfo            `json:"internal_calls"`

	// NotExecuted marks a deployment that ran no constructor.
	NotExecuted bool `json:"not_executed,omitempty"`
}

// EmptyConstructorCall is the CallInfo of a deployment whose class has no
// constructor: nothing was executed.
func EmptyConstructorCall(contractAddress, callerAddress, classHash *felt.Felt) *CallInfo {
	return &CallInfo{
		CallerAddress:      callerAddress,
		CallType:           CallTypeCall,
		ContractAddress:    contractAddress,
		ClassHash:          classHash,
		EntryPointSelector: ConstructorSelector,
		EntryPointType:     EntryPointTypeConstructor,
		NotExecuted:        true,
	}
}

// IsConstructor reports whether the call deployed a contract.
func (c *CallInfo) IsConstructor() bool {
	return c.EntryPointType == EntryPointTypeConstructor
}

// Skipped reports whether the call ran no code, as for a constructor-less
// deployment or a failed deployment. Such calls issue no syscalls.
func (c *CallInfo) Skipped() bool {
	return c.NotExecuted
}

// Flatten returns c and all of its inner calls in pre-order.
func (c *CallInfo) Flatten() []*CallInfo {
	out := []*CallInfo{c}
	for _, inner := range c.InternalCalls {
		out = append(out, inner.Flatten()...)
	}

	return out
}

// SortedKeys returns the set as a slice in ascending order.
func SortedKeys(set map[felt.Felt]struct{}) []*felt.Felt {
	keys := make([]*felt.Felt, 0, len(set))

	for k := range set {
		key := k
		keys = append(keys, &key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Cmp(keys[j]) < 0
	})

	return keys
}

// CallResult is the outcome of a call as visible to its caller.
type CallResult struct {
	GasConsumed uint64
	Failed      bool
	Retdata     []*felt.Felt
}

func NewCallResult(c *CallInfo) *CallResult {
	return &CallResult{
		GasConsumed: c.GasConsumed,
		Failed:      c.Failed,
		Retdata:     c.Retdata,
	}
}

// ContractEvent is an event along with the contract that emitted it.
type ContractEvent struct {
	OrderedEvent
	FromAddress *felt.Felt
}

// SortedEvents returns the events of c and its inner calls in emission
// order. Events of reverted calls are left out.
func (c *CallInfo) SortedEvents() []ContractEvent {
	var out []ContractEvent

	var walk func(call *CallInfo)
	walk = func(call *CallInfo) {
		if call.Failed {
			return
		}

		for _, ev := range call.Events {
			out = append(out, ContractEvent{OrderedEvent: ev, FromAddress: call.ContractAddress})
		}

		for _, inner := range call.InternalCalls {
			walk(inner)
		}
	}

	walk(c)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})

	return out
}
