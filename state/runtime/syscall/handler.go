package syscall

import (
	"fmt"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

// syscallFunc executes one syscall with the gas left after the syscall's own
// cost and returns the response header and body.
type syscallFunc func(h *Handler, gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error)

type syscallInfo struct {
	name     string
	selector string
	request  *structs.Layout
	response *structs.Layout
	execute  syscallFunc
}

var syscallDefs = []*syscallInfo{
	{
		name:     "call_contract",
		selector: "CallContract",
		request:  structs.CallContractRequest,
		response: structs.CallContractResponse,
		execute:  (*Handler).callContract,
	},
	{
		name:     "deploy",
		selector: "Deploy",
		request:  structs.DeployRequest,
		response: structs.DeployResponse,
		execute:  (*Handler).deploy,
	},
	{
		name:     "emit_event",
		selector: "EmitEvent",
		request:  structs.EmitEventRequest,
		response: structs.EmptyResponse,
		execute:  (*Handler).emitEvent,
	},
	{
		name:     "get_block_hash",
		selector: "GetBlockHash",
		request:  structs.GetBlockHashRequest,
		response: structs.GetBlockHashResponse,
		execute:  (*Handler).getBlockHash,
	},
	{
		name:     "get_execution_info",
		selector: "GetExecutionInfo",
		request:  structs.EmptyRequest,
		response: structs.GetExecutionInfoResponse,
		execute:  (*Handler).getExecutionInfo,
	},
	{
		name:     "keccak",
		selector: "Keccak",
		request:  structs.KeccakRequest,
		response: structs.KeccakResponse,
		execute:  (*Handler).keccak,
	},
	{
		name:     "library_call",
		selector: "LibraryCall",
		request:  structs.LibraryCallRequest,
		response: structs.CallContractResponse,
		execute:  (*Handler).libraryCall,
	},
	{
		name:     "replace_class",
		selector: "ReplaceClass",
		request:  structs.ReplaceClassRequest,
		response: structs.EmptyResponse,
		execute:  (*Handler).replaceClass,
	},
	{
		name:     "send_message_to_l1",
		selector: "SendMessageToL1",
		request:  structs.SendMessageToL1Request,
		response: structs.EmptyResponse,
		execute:  (*Handler).sendMessageToL1,
	},
	{
		name:     "storage_read",
		selector: "StorageRead",
		request:  structs.StorageReadRequest,
		response: structs.StorageReadResponse,
		execute:  (*Handler).storageRead,
	},
	{
		name:     "storage_write",
		selector: "StorageWrite",
		request:  structs.StorageWriteRequest,
		response: structs.EmptyResponse,
		execute:  (*Handler).storageWrite,
	},
	{
		name:     "secp256k1_add",
		selector: "Secp256k1Add",
		request:  structs.SecpAddRequest,
		response: structs.SecpOpResponse,
		execute:  secpAdd(Secp256k1),
	},
	{
		name:     "secp256k1_get_point_from_x",
		selector: "Secp256k1GetPointFromX",
		request:  structs.SecpGetPointFromXRequest,
		response: structs.SecpNewResponse,
		execute:  secpGetPointFromX(Secp256k1),
	},
	{
		name:     "secp256k1_get_xy",
		selector: "Secp256k1GetXy",
		request:  structs.SecpGetXyRequest,
		response: structs.SecpGetXyResponse,
		execute:  (*Handler).secpGetXy,
	},
	{
		name:     "secp256k1_mul",
		selector: "Secp256k1Mul",
		request:  structs.SecpMulRequest,
		response: structs.SecpOpResponse,
		execute:  secpMul(Secp256k1),
	},
	{
		name:     "secp256k1_new",
		selector: "Secp256k1New",
		request:  structs.SecpNewRequest,
		response: structs.SecpNewResponse,
		execute:  secpNew(Secp256k1),
	},
	{
		name:     "secp256r1_add",
		selector: "Secp256r1Add",
		request:  structs.SecpAddRequest,
		response: structs.SecpOpResponse,
		execute:  secpAdd(Secp256r1),
	},
	{
		name:     "secp256r1_get_point_from_x",
		selector: "Secp256r1GetPointFromX",
		request:  structs.SecpGetPointFromXRequest,
		response: structs.SecpNewResponse,
		execute:  secpGetPointFromX(Secp256r1),
	},
	{
		name:     "secp256r1_get_xy",
		selector: "Secp256r1GetXy",
		request:  structs.SecpGetXyRequest,
		response: structs.SecpGetXyResponse,
		execute:  (*Handler).secpGetXy,
	},
	{
		name:     "secp256r1_mul",
		selector: "Secp256r1Mul",
		request:  structs.SecpMulRequest,
		response: structs.SecpOpResponse,
		execute:  secpMul(Secp256r1),
	},
	{
		name:     "secp256r1_new",
		selector: "Secp256r1New",
		request:  structs.SecpNewRequest,
		response: structs.SecpNewResponse,
		execute:  secpNew(Secp256r1),
	},
}

var (
	syscallTableOnce sync.Once
	syscallTable     map[felt.Felt]*syscallInfo
	syscallByName    map[string]*syscallInfo
)

func loadSyscallTable() {
	syscallTableOnce.Do(func() {
		syscallTable = make(map[felt.Felt]*syscallInfo, len(syscallDefs))
		syscallByName = make(map[string]*syscallInfo, len(syscallDefs))

		for _, info := range syscallDefs {
			syscallTable[*types.ShortString(info.selector)] = info
			syscallByName[info.name] = info
		}
	})
}

// Selector returns the selector of the named syscall, or false if the
// syscall is unknown.
func Selector(name string) (*felt.Felt, bool) {
	loadSyscallTable()

	info, ok := syscallByName[name]
	if !ok {
		return nil, false
	}

	return types.ShortString(info.selector), true
}

// RequestLayout returns the request body layout of the named syscall.
func RequestLayout(name string) (*structs.Layout, bool) {
	loadSyscallTable()

	info, ok := syscallByName[name]
	if !ok {
		return nil, false
	}

	return info.request, true
}

// ResponseLayout returns the body layout of a successful response of the
// named syscall.
func ResponseLayout(name string) (*structs.Layout, bool) {
	loadSyscallTable()

	info, ok := syscallByName[name]
	if !ok {
		return nil, false
	}

	return info.response, true
}

// Handler decodes syscall requests from VM memory, charges gas and writes
// the responses back. The effects are delegated to the mode-specific hooks.
type Handler struct {
	hooks      hooks
	segments   Segments
	syscallPtr *types.Relocatable
	ecPoints   *EcPointRegistry

	logger  hclog.Logger
	metrics *Metrics
}

func newHandler(hooks hooks, segments Segments, syscallPtr *types.Relocatable, logger hclog.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Handler{
		hooks:      hooks,
		segments:   segments,
		syscallPtr: syscallPtr,
		ecPoints:   NewEcPointRegistry(segments),
		logger:     logger,
		metrics:    NewDummyMetrics(metrics),
	}
}

// SyscallPtr is where the next request is expected.
func (h *Handler) SyscallPtr() (types.Relocatable, error) {
	if h.syscallPtr == nil {
		return types.Relocatable{}, ErrSyscallPtrNotSet
	}

	return *h.syscallPtr, nil
}

func (h *Handler) Segments() Segments {
	return h.segments
}

// Syscall executes the syscall whose request starts at ptr.
func (h *Handler) Syscall(ptr types.Relocatable) error {
	expected, err := h.SyscallPtr()
	if err != nil {
		return err
	}

	if ptr != expected {
		h.logger.Error("syscall pointer mismatch", "expected", expected, "actual", ptr)

		return fmt.Errorf("%w: expected %s, got %s", ErrSyscallPtrMismatch, expected, ptr)
	}

	header, err := h.readRequest(structs.RequestHeader)
	if err != nil {
		return err
	}

	loadSyscallTable()

	selector := header.Felt("selector")

	info, ok := syscallTable[*selector]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedSyscall, types.DecodeShortString(selector))
	}

	if info.name != "keccak" {
		h.hooks.countSyscall(info.name)
	}

	h.metrics.Syscalls.With("syscall", info.name).Add(1)

	req, err := h.readRequest(info.request)
	if err != nil {
		return err
	}

	// entry points start with a uint64 budget and gas only decreases, so a
	// wider value is a corrupted request
	initialGas, ok := types.FeltToUint64(header.Felt("gas"))
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidGas, header.Felt("gas"))
	}

	h.logger.Trace("syscall", "name", info.name, "gas", initialGas)

	var respHeader, resp *structs.Record

	if required := params.RequiredGas(info.name); initialGas < required {
		respHeader, resp, err = h.handleFailure(initialGas, FailureOutOfGas)
	} else {
		respHeader, resp, err = info.execute(h, initialGas-required, req)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", info.name, err)
	}

	if err := h.writeResponse(respHeader); err != nil {
		return err
	}

	return h.writeResponse(resp)
}

func (h *Handler) readRequest(layout *structs.Layout) (*structs.Record, error) {
	rec, err := structs.Read(layout, h.segments, *h.syscallPtr)
	if err != nil {
		return nil, err
	}

	next := h.syscallPtr.Add(layout.Size())
	h.syscallPtr = &next

	return rec, nil
}

func (h *Handler) writeResponse(rec *structs.Record) error {
	next, err := structs.Write(h.segments, *h.syscallPtr, rec)
	if err != nil {
		return err
	}

	h.syscallPtr = &next

	return nil
}

func success(gas uint64, body *structs.Record) (*structs.Record, *structs.Record, error) {
	return responseHeader(gas, false), body, nil
}

func responseHeader(gas uint64, failed bool) *structs.Record {
	flag := uint64(0)
	if failed {
		flag = 1
	}

	return structs.ResponseHeader.New(types.Uint64Value(gas), types.Uint64Value(flag))
}

// handleFailure builds a failure response whose reason is a fresh one-cell
// segment holding the error code.
func (h *Handler) handleFailure(gas uint64, code FailureCode) (*structs.Record, *structs.Record, error) {
	h.logger.Debug("syscall failure", "code", string(code), "gas", gas)
	h.metrics.Failures.With("code", string(code)).Add(1)

	start, err := h.hooks.allocateSegment([]types.MaybeRelocatable{types.FeltValue(code.Felt())})
	if err != nil {
		return nil, nil, err
	}

	reason := structs.FailureReason.New(types.PtrValue(start), types.PtrValue(start.Add(1)))

	return responseHeader(gas, true), reason, nil
}

// getFeltRange reads the felts in [start, end).
func (h *Handler) getFeltRange(start, end types.Relocatable) ([]*felt.Felt, error) {
	return GetFeltRange(h.segments, start, end)
}

// GetFeltRange reads the felts in [start, end); both pointers must be in the
// same segment and start must not be past end.
func GetFeltRange(mem structs.Memory, start, end types.Relocatable) ([]*felt.Felt, error) {
	size, err := end.Sub(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeltRange, err)
	}

	values, err := mem.GetRange(start, size)
	if err != nil {
		return nil, err
	}

	out := make([]*felt.Felt, size)

	for i, v := range values {
		f, ok := v.Felt()
		if !ok {
			return nil, fmt.Errorf("%w: %s holds a pointer", ErrInvalidFeltRange, start.Add(uint64(i)))
		}

		out[i] = f
	}

	return out, nil
}

// callResponse encodes the outcome of a nested call. A failed call reuses
// the retdata range as the failure reason.
func (h *Handler) callResponse(gas uint64, result *types.CallResult, body func(start, end types.Relocatable) *structs.Record) (*structs.Record, *structs.Record, error) {
	if result.GasConsumed > gas {
		return nil, nil, fmt.Errorf("%w: consumed %d of %d", ErrGasUnderflow, result.GasConsumed, gas)
	}

	remaining := gas - result.GasConsumed

	start, err := h.hooks.allocateSegmentForRetdata(result.Retdata)
	if err != nil {
		return nil, nil, err
	}

	end := start.Add(uint64(len(result.Retdata)))

	if result.Failed {
		return responseHeader(remaining, true), structs.FailureReason.New(types.PtrValue(start), types.PtrValue(end)), nil
	}

	return responseHeader(remaining, false), body(start, end), nil
}
