package deprecatedsyscall

import "github.com/sunvim/starkos/state/runtime/structs"

// Deprecated ABI layouts. A request starts with its selector and the
// response, if any, follows it in the same memory block.
var (
	SelectorOnly  = structs.NewLayout("SelectorOnly", structs.F("selector"))
	EmptyResponse = structs.NewLayout("EmptyResponse")

	CallContractRequest = structs.NewLayout("CallContractRequest",
		structs.F("selector"), structs.F("contract_address"), structs.F("function_selector"),
		structs.F("calldata_size"), structs.P("calldata"))
	LibraryCallRequest = structs.NewLayout("LibraryCallRequest",
		structs.F("selector"), structs.F("class_hash"), structs.F("function_selector"),
		structs.F("calldata_size"), structs.P("calldata"))
	CallContractResponse = structs.NewLayout("CallContractResponse",
		structs.F("retdata_size"), structs.P("retdata"))

	DeployRequest = structs.NewLayout("DeployRequest",
		structs.F("selector"), structs.F("class_hash"), structs.F("contract_address_salt"),
		structs.F("constructor_calldata_size"), structs.P("constructor_calldata"),
		structs.F("deploy_from_zero"))
	DeployResponse = structs.NewLayout("DeployResponse",
		structs.F("contract_address"), structs.F("constructor_retdata_size"), structs.F("constructor_retdata"))

	EmitEventRequest = structs.NewLayout("EmitEventRequest",
		structs.F("selector"), structs.F("keys_len"), structs.P("keys"), structs.F("data_len"), structs.P("data"))

	GetBlockNumberResponse      = structs.NewLayout("GetBlockNumberResponse", structs.F("block_number"))
	GetBlockTimestampResponse   = structs.NewLayout("GetBlockTimestampResponse", structs.F("block_timestamp"))
	GetCallerAddressResponse    = structs.NewLayout("GetCallerAddressResponse", structs.F("caller_address"))
	GetContractAddressResponse  = structs.NewLayout("GetContractAddressResponse", structs.F("contract_address"))
	GetSequencerAddressResponse = structs.NewLayout("GetSequencerAddressResponse", structs.F("sequencer_address"))
	GetTxInfoResponse           = structs.NewLayout("GetTxInfoResponse", structs.P("tx_info"))
	GetTxSignatureResponse      = structs.NewLayout("GetTxSignatureResponse", structs.F("signature_len"), structs.P("signature"))

	TxInfo = structs.NewLayout("TxInfo",
		structs.F("version"), structs.F("account_contract_address"), structs.F("max_fee"),
		structs.F("signature_len"), structs.P("signature"),
		structs.F("transaction_hash"), structs.F("chain_id"), structs.F("nonce"))

	ReplaceClassRequest    = structs.NewLayout("ReplaceClassRequest", structs.F("selector"), structs.F("class_hash"))
	SendMessageToL1Request = structs.NewLayout("SendMessageToL1Request",
		structs.F("selector"), structs.F("to_address"), structs.F("payload_size"), structs.P("payload_ptr"))

	StorageReadRequest  = structs.NewLayout("StorageReadRequest", structs.F("selector"), structs.F("address"))
	StorageReadResponse = structs.NewLayout("StorageReadResponse", structs.F("value"))
	StorageWriteRequest = structs.NewLayout("StorageWriteRequest", structs.F("selector"), structs.F("address"), structs.F("value"))
)
