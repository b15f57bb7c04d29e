package syscall

import (
	"fmt"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/types"
)

func (h *Handler) callContract(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	return h.callContractHelper(gas, req, "call_contract")
}

func (h *Handler) libraryCall(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	return h.callContractHelper(gas, req, "library_call")
}

func (h *Handler) callContractHelper(gas uint64, req *structs.Record, name string) (*structs.Record, *structs.Record, error) {
	result, err := h.hooks.callContractHelper(gas, req, name)
	if err != nil {
		return nil, nil, err
	}

	return h.callResponse(gas, result, func(start, end types.Relocatable) *structs.Record {
		return structs.CallContractResponse.New(types.PtrValue(start), types.PtrValue(end))
	})
}

func (h *Handler) deploy(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	address, result, err := h.hooks.deploy(gas, req)
	if err != nil {
		return nil, nil, err
	}

	return h.callResponse(gas, result, func(start, end types.Relocatable) *structs.Record {
		return structs.DeployResponse.New(types.FeltValue(address), types.PtrValue(start), types.PtrValue(end))
	})
}

func (h *Handler) getBlockHash(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	if err := h.hooks.checkAllowed("get_block_hash"); err != nil {
		return nil, nil, err
	}

	current := h.hooks.currentBlockNumber()

	blockNumber, ok := types.FeltToUint64(req.Felt("block_number"))
	if !ok || blockNumber > current || current-blockNumber < params.StoredBlockHashBuffer {
		return h.handleFailure(gas, FailureBlockNumberOutOfRange)
	}

	hash, err := h.hooks.getBlockHash(blockNumber)
	if err != nil {
		return nil, nil, err
	}

	return success(gas, structs.GetBlockHashResponse.New(types.FeltValue(hash)))
}

func (h *Handler) getExecutionInfo(gas uint64, _ *structs.Record) (*structs.Record, *structs.Record, error) {
	ptr, err := h.hooks.getExecutionInfoPtr()
	if err != nil {
		return nil, nil, err
	}

	return success(gas, structs.GetExecutionInfoResponse.New(types.PtrValue(ptr)))
}

func (h *Handler) keccak(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	start, end := req.Ptr("input_start"), req.Ptr("input_end")

	inputLen, err := end.Sub(start)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFeltRange, err)
	}

	if inputLen%params.KeccakFullRateInU64s != 0 {
		return h.handleFailure(gas, FailureInvalidInputLen)
	}

	nRounds := inputLen / params.KeccakFullRateInU64s

	if nRounds > gas/params.KeccakRoundGasCost {
		return h.handleFailure(gas, FailureOutOfGas)
	}

	gas -= nRounds * params.KeccakRoundGasCost

	h.hooks.keccak(nRounds)
	h.metrics.KeccakRounds.Add(float64(nRounds))

	input, err := h.getFeltRange(start, end)
	if err != nil {
		return nil, nil, err
	}

	words, ok := feltsToWords(input)
	if !ok {
		return nil, nil, ErrInvalidKeccakWord
	}

	low, high := keccakSponge(words)

	return success(gas, structs.KeccakResponse.New(types.FeltValue(low), types.FeltValue(high)))
}

func checkReserved(req *structs.Record) error {
	if reserved := req.Felt("reserved"); !reserved.IsZero() {
		return fmt.Errorf("%w: %s", ErrUnsupportedDomain, reserved)
	}

	return nil
}

func (h *Handler) storageRead(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	if err := checkReserved(req); err != nil {
		return nil, nil, err
	}

	value, err := h.hooks.storageRead(req.Felt("key"))
	if err != nil {
		return nil, nil, err
	}

	return success(gas, structs.StorageReadResponse.New(types.FeltValue(value)))
}

func (h *Handler) storageWrite(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	if err := checkReserved(req); err != nil {
		return nil, nil, err
	}

	if err := h.hooks.storageWrite(req.Felt("key"), req.Felt("value")); err != nil {
		return nil, nil, err
	}

	return success(gas, structs.EmptyResponse.New())
}

func (h *Handler) emitEvent(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	keys, err := h.getFeltRange(req.Ptr("keys_start"), req.Ptr("keys_end"))
	if err != nil {
		return nil, nil, err
	}

	data, err := h.getFeltRange(req.Ptr("data_start"), req.Ptr("data_end"))
	if err != nil {
		return nil, nil, err
	}

	if err := h.hooks.emitEvent(keys, data); err != nil {
		return nil, nil, err
	}

	return success(gas, structs.EmptyResponse.New())
}

func (h *Handler) replaceClass(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	if err := h.hooks.replaceClass(req.Felt("class_hash")); err != nil {
		return nil, nil, err
	}

	return success(gas, structs.EmptyResponse.New())
}

func (h *Handler) sendMessageToL1(gas uint64, req *structs.Record) (*structs.Record, *structs.Record, error) {
	payload, err := h.getFeltRange(req.Ptr("payload_start"), req.Ptr("payload_end"))
	if err != nil {
		return nil, nil, err
	}

	if err := h.hooks.sendMessageToL1(req.Felt("to_address"), payload); err != nil {
		return nil, nil, err
	}

	return success(gas, structs.EmptyResponse.New())
}
