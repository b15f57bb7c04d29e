// Package deprecatedsyscall handles syscalls of classes compiled for the
// pre-Sierra ABI. Requests are fixed structs starting with a selector, the
// response follows the request in place and no gas is charged.
package deprecatedsyscall

import (
	"errors"
	"fmt"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

var (
	ErrNestedCallFailed = errors.New("nested call failed")
	ErrInvalidSize      = errors.New("array size does not fit in 64 bits")
)

type syscallFunc func(h *Handler, req *structs.Record) (*structs.Record, error)

type syscallInfo struct {
	name     string
	selector string
	request  *structs.Layout
	response *structs.Layout
	execute  syscallFunc
}

// size is the number of cells the syscall occupies in the syscall segment.
func (s *syscallInfo) size() uint64 {
	return s.request.Size() + s.response.Size()
}

var syscallDefs = []*syscallInfo{
	{"call_contract", "CallContract", CallContractRequest, CallContractResponse, callContract("call_contract")},
	{"delegate_call", "DelegateCall", CallContractRequest, CallContractResponse, callContract("delegate_call")},
	{"delegate_l1_handler", "DelegateL1Handler", CallContractRequest, CallContractResponse, callContract("delegate_l1_handler")},
	{"deploy", "Deploy", DeployRequest, DeployResponse, (*Handler).deploy},
	{"emit_event", "EmitEvent", EmitEventRequest, EmptyResponse, (*Handler).emitEvent},
	{"get_block_number", "GetBlockNumber", SelectorOnly, GetBlockNumberResponse, (*Handler).getBlockNumber},
	{"get_block_timestamp", "GetBlockTimestamp", SelectorOnly, GetBlockTimestampResponse, (*Handler).getBlockTimestamp},
	{"get_caller_address", "GetCallerAddress", SelectorOnly, GetCallerAddressResponse, (*Handler).getCallerAddress},
	{"get_contract_address", "GetContractAddress", SelectorOnly, GetContractAddressResponse, (*Handler).getContractAddress},
	{"get_sequencer_address", "GetSequencerAddress", SelectorOnly, GetSequencerAddressResponse, (*Handler).getSequencerAddress},
	{"get_tx_info", "GetTxInfo", SelectorOnly, GetTxInfoResponse, (*Handler).getTxInfo},
	{"get_tx_signature", "GetTxSignature", SelectorOnly, GetTxSignatureResponse, (*Handler).getTxSignature},
	{"library_call", "LibraryCall", LibraryCallRequest, CallContractResponse, callContract("library_call")},
	{"library_call_l1_handler", "LibraryCallL1Handler", LibraryCallRequest, CallContractResponse, callContract("library_call_l1_handler")},
	{"replace_class", "ReplaceClass", ReplaceClassRequest, EmptyResponse, (*Handler).replaceClass},
	{"send_message_to_l1", "SendMessageToL1", SendMessageToL1Request, EmptyResponse, (*Handler).sendMessageToL1},
	{"storage_read", "StorageRead", StorageReadRequest, StorageReadResponse, (*Handler).storageRead},
	{"storage_write", "StorageWrite", StorageWriteRequest, EmptyResponse, (*Handler).storageWrite},
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

// Layouts returns the request and response layouts of the named syscall.
func Layouts(name string) (request, response *structs.Layout, ok bool) {
	loadSyscallTable()

	info, ok := syscallByName[name]
	if !ok {
		return nil, nil, false
	}

	return info.request, info.response, true
}

// Selector returns the selector of the named syscall.
func Selector(name string) (*felt.Felt, bool) {
	loadSyscallTable()

	info, ok := syscallByName[name]
	if !ok {
		return nil, false
	}

	return types.ShortString(info.selector), true
}

// hooks are the mode-specific effects of the deprecated syscalls.
type hooks interface {
	callContract(syscallName string, req *structs.Record) ([]*felt.Felt, error)
	deploy(req *structs.Record) (*felt.Felt, error)
	storageRead(address *felt.Felt) (*felt.Felt, error)
	storageWrite(address, value *felt.Felt) error
	emitEvent(keys, data []*felt.Felt) error
	replaceClass(classHash *felt.Felt) error
	sendMessageToL1(toAddress *felt.Felt, payload []*felt.Felt) error

	blockInfo() *types.BlockInfo
	callerAddress() (*felt.Felt, error)
	contractAddress() (*felt.Felt, error)
	txInfoPtr() (types.Relocatable, error)

	allocateSegment(data []types.MaybeRelocatable) (types.Relocatable, error)
	countSyscall(name string)
}

// Handler decodes deprecated syscall requests and writes the responses
// right after them.
type Handler struct {
	hooks    hooks
	segments syscall.Segments

	// expectedPtr is nil when the handler does not track the syscall
	// pointer.
	expectedPtr *types.Relocatable

	logger  hclog.Logger
	metrics *syscall.Metrics
}

func newHandler(hooks hooks, segments syscall.Segments, expectedPtr *types.Relocatable, logger hclog.Logger, metrics *syscall.Metrics) *Handler {
	return &Handler{
		hooks:       hooks,
		segments:    segments,
		expectedPtr: expectedPtr,
		logger:      logger,
		metrics:     syscall.NewDummyMetrics(metrics),
	}
}

// Syscall executes the syscall whose request starts at ptr.
func (h *Handler) Syscall(ptr types.Relocatable) error {
	selector, err := h.readSelector(ptr)
	if err != nil {
		return err
	}

	loadSyscallTable()

	info, ok := syscallTable[*selector]
	if !ok {
		return fmt.Errorf("%w: %q", syscall.ErrUnsupportedSyscall, types.DecodeShortString(selector))
	}

	if h.expectedPtr != nil {
		if ptr != *h.expectedPtr {
			h.logger.Error("syscall pointer mismatch", "expected", *h.expectedPtr, "actual", ptr)

			return fmt.Errorf("%w: expected %s, got %s", syscall.ErrSyscallPtrMismatch, *h.expectedPtr, ptr)
		}

		next := ptr.Add(info.size())
		h.expectedPtr = &next
	}

	h.hooks.countSyscall(info.name)
	h.metrics.Syscalls.With("syscall", info.name).Add(1)
	h.logger.Trace("deprecated syscall", "name", info.name)

	req, err := structs.Read(info.request, h.segments, ptr)
	if err != nil {
		return err
	}

	resp, err := info.execute(h, req)
	if err != nil {
		return fmt.Errorf("%s: %w", info.name, err)
	}

	if _, err := structs.Write(h.segments, ptr.Add(info.request.Size()), resp); err != nil {
		return err
	}

	return nil
}

func (h *Handler) readSelector(ptr types.Relocatable) (*felt.Felt, error) {
	values, err := h.segments.GetRange(ptr, 1)
	if err != nil {
		return nil, err
	}

	selector, ok := values[0].Felt()
	if !ok {
		return nil, fmt.Errorf("%w: selector at %s is a pointer", structs.ErrInvalidFieldType, ptr)
	}

	return selector, nil
}

// readArray reads size felts starting at the pointer field of req.
func (h *Handler) readArray(req *structs.Record, sizeField, ptrField string) ([]*felt.Felt, error) {
	size, ok := types.FeltToUint64(req.Felt(sizeField))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, sizeField)
	}

	start := req.Ptr(ptrField)

	return syscall.GetFeltRange(h.segments, start, start.Add(size))
}

// callContract covers every flavour of nested call; name tells the hooks
// which one.
func callContract(name string) syscallFunc {
	return func(h *Handler, req *structs.Record) (*structs.Record, error) {
		return h.callContract(name, req)
	}
}

func (h *Handler) callContract(name string, req *structs.Record) (*structs.Record, error) {
	retdata, err := h.hooks.callContract(name, req)
	if err != nil {
		return nil, err
	}

	start, err := h.hooks.allocateSegment(feltValues(retdata))
	if err != nil {
		return nil, err
	}

	return CallContractResponse.New(types.Uint64Value(uint64(len(retdata))), types.PtrValue(start)), nil
}

func (h *Handler) deploy(req *structs.Record) (*structs.Record, error) {
	address, err := h.hooks.deploy(req)
	if err != nil {
		return nil, err
	}

	// Constructor retdata is not returned to the deployer.
	return DeployResponse.New(types.FeltValue(address), types.Uint64Value(0), types.Uint64Value(0)), nil
}

func (h *Handler) emitEvent(req *structs.Record) (*structs.Record, error) {
	keys, err := h.readArray(req, "keys_len", "keys")
	if err != nil {
		return nil, err
	}

	data, err := h.readArray(req, "data_len", "data")
	if err != nil {
		return nil, err
	}

	if err := h.hooks.emitEvent(keys, data); err != nil {
		return nil, err
	}

	return EmptyResponse.New(), nil
}

func (h *Handler) getBlockNumber(*structs.Record) (*structs.Record, error) {
	return GetBlockNumberResponse.New(types.Uint64Value(h.hooks.blockInfo().BlockNumber)), nil
}

func (h *Handler) getBlockTimestamp(*structs.Record) (*structs.Record, error) {
	return GetBlockTimestampResponse.New(types.Uint64Value(h.hooks.blockInfo().BlockTimestamp)), nil
}

func (h *Handler) getSequencerAddress(*structs.Record) (*structs.Record, error) {
	sequencer := h.hooks.blockInfo().SequencerAddress
	if sequencer == nil {
		sequencer = new(felt.Felt)
	}

	return GetSequencerAddressResponse.New(types.FeltValue(sequencer)), nil
}

func (h *Handler) getCallerAddress(*structs.Record) (*structs.Record, error) {
	caller, err := h.hooks.callerAddress()
	if err != nil {
		return nil, err
	}

	return GetCallerAddressResponse.New(types.FeltValue(caller)), nil
}

func (h *Handler) getContractAddress(*structs.Record) (*structs.Record, error) {
	address, err := h.hooks.contractAddress()
	if err != nil {
		return nil, err
	}

	return GetContractAddressResponse.New(types.FeltValue(address)), nil
}

func (h *Handler) getTxInfo(*structs.Record) (*structs.Record, error) {
	ptr, err := h.hooks.txInfoPtr()
	if err != nil {
		return nil, err
	}

	return GetTxInfoResponse.New(types.PtrValue(ptr)), nil
}

// getTxSignature answers from the TxInfo struct so both syscalls agree.
func (h *Handler) getTxSignature(*structs.Record) (*structs.Record, error) {
	ptr, err := h.hooks.txInfoPtr()
	if err != nil {
		return nil, err
	}

	txInfo, err := structs.Read(TxInfo, h.segments, ptr)
	if err != nil {
		return nil, err
	}

	return GetTxSignatureResponse.New(txInfo.Get("signature_len"), txInfo.Get("signature")), nil
}

func (h *Handler) replaceClass(req *structs.Record) (*structs.Record, error) {
	if err := h.hooks.replaceClass(req.Felt("class_hash")); err != nil {
		return nil, err
	}

	return EmptyResponse.New(), nil
}

func (h *Handler) sendMessageToL1(req *structs.Record) (*structs.Record, error) {
	payload, err := h.readArray(req, "payload_size", "payload_ptr")
	if err != nil {
		return nil, err
	}

	if err := h.hooks.sendMessageToL1(req.Felt("to_address"), payload); err != nil {
		return nil, err
	}

	return EmptyResponse.New(), nil
}

func (h *Handler) storageRead(req *structs.Record) (*structs.Record, error) {
	value, err := h.hooks.storageRead(req.Felt("address"))
	if err != nil {
		return nil, err
	}

	return StorageReadResponse.New(types.FeltValue(value)), nil
}

func (h *Handler) storageWrite(req *structs.Record) (*structs.Record, error) {
	if err := h.hooks.storageWrite(req.Felt("address"), req.Felt("value")); err != nil {
		return nil, err
	}

	return EmptyResponse.New(), nil
}

// txInfoRecord builds the deprecated TxInfo of tx whose signature was
// written at signatureStart.
func txInfoRecord(tx *types.TransactionExecutionContext, chainID string, signatureStart types.Relocatable) *structs.Record {
	return TxInfo.New(
		types.FeltValue(orZero(tx.Version)),
		types.FeltValue(orZero(tx.AccountContractAddress)),
		types.FeltValue(orZero(tx.MaxFee)),
		types.Uint64Value(uint64(len(tx.Signature))),
		types.PtrValue(signatureStart),
		types.FeltValue(orZero(tx.TransactionHash)),
		types.FeltValue(types.ShortString(chainID)),
		types.FeltValue(orZero(tx.Nonce)),
	)
}

func feltValues(fs []*felt.Felt) []types.MaybeRelocatable {
	values := make([]types.MaybeRelocatable, len(fs))
	for i, f := range fs {
		values[i] = types.FeltValue(f)
	}

	return values
}

func orZero(f *felt.Felt) *felt.Felt {
	if f == nil {
		return new(felt.Felt)
	}

	return f
}
