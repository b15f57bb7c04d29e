package structs

// Syscall request and response layouts. Field order is the ABI shared with
// the Cairo side and must not change.
var (
	RequestHeader  = NewLayout("RequestHeader", F("selector"), F("gas"))
	ResponseHeader = NewLayout("ResponseHeader", F("gas"), F("failure_flag"))
	FailureReason  = NewLayout("FailureReason", P("start"), P("end"))

	EmptyRequest  = NewLayout("EmptyRequest")
	EmptyResponse = NewLayout("EmptyResponse")

	CallContractRequest = NewLayout("CallContractRequest",
		F("contract_address"), F("selector"), P("calldata_start"), P("calldata_end"))
	LibraryCallRequest = NewLayout("LibraryCallRequest",
		F("class_hash"), F("selector"), P("calldata_start"), P("calldata_end"))
	CallContractResponse = NewLayout("CallContractResponse",
		P("retdata_start"), P("retdata_end"))

	DeployRequest = NewLayout("DeployRequest",
		F("class_hash"), F("contract_address_salt"),
		P("constructor_calldata_start"), P("constructor_calldata_end"),
		F("deploy_from_zero"))
	DeployResponse = NewLayout("DeployResponse",
		F("contract_address"), P("constructor_retdata_start"), P("constructor_retdata_end"))

	GetBlockHashRequest  = NewLayout("GetBlockHashRequest", F("block_number"))
	GetBlockHashResponse = NewLayout("GetBlockHashResponse", F("block_hash"))

	GetExecutionInfoResponse = NewLayout("GetExecutionInfoResponse", P("execution_info"))
	ExecutionInfo            = NewLayout("ExecutionInfo",
		P("block_info"), P("tx_info"), F("caller_address"), F("contract_address"), F("selector"))
	BlockInfo = NewLayout("BlockInfo",
		F("block_number"), F("block_timestamp"), F("sequencer_address"))
	TxInfo = NewLayout("TxInfo",
		F("version"), F("account_contract_address"), F("max_fee"),
		P("signature_start"), P("signature_end"),
		F("transaction_hash"), F("chain_id"), F("nonce"),
		P("resource_bounds_start"), P("resource_bounds_end"),
		F("tip"),
		P("paymaster_data_start"), P("paymaster_data_end"),
		F("nonce_data_availability_mode"), F("fee_data_availability_mode"),
		P("account_deployment_data_start"), P("account_deployment_data_end"))

	StorageReadRequest  = NewLayout("StorageReadRequest", F("reserved"), F("key"))
	StorageReadResponse = NewLayout("StorageReadResponse", F("value"))
	StorageWriteRequest = NewLayout("StorageWriteRequest", F("reserved"), F("key"), F("value"))

	EmitEventRequest = NewLayout("EmitEventRequest",
		P("keys_start"), P("keys_end"), P("data_start"), P("data_end"))
	ReplaceClassRequest    = NewLayout("ReplaceClassRequest", F("class_hash"))
	SendMessageToL1Request = NewLayout("SendMessageToL1Request",
		F("to_address"), P("payload_start"), P("payload_end"))

	KeccakRequest  = NewLayout("KeccakRequest", P("input_start"), P("input_end"))
	KeccakResponse = NewLayout("KeccakResponse", F("result_low"), F("result_high"))

	SecpNewRequest = NewLayout("SecpNewRequest",
		F("x_low"), F("x_high"), F("y_low"), F("y_high"))
	SecpNewResponse = NewLayout("SecpNewResponse", F("not_on_curve"), P("ec_point"))
	SecpAddRequest  = NewLayout("SecpAddRequest", P("p0"), P("p1"))
	SecpOpResponse  = NewLayout("SecpOpResponse", P("ec_point"))
	SecpMulRequest  = NewLayout("SecpMulRequest",
		P("p"), F("scalar_low"), F("scalar_high"))
	SecpGetPointFromXRequest = NewLayout("SecpGetPointFromXRequest",
		F("x_low"), F("x_high"), F("y_parity"))
	SecpGetXyRequest  = NewLayout("SecpGetXyRequest", P("ec_point"))
	SecpGetXyResponse = NewLayout("SecpGetXyResponse",
		F("x_low"), F("x_high"), F("y_low"), F("y_high"))
)

// EcPointSize is the number of cells reserved per point in the EC segment:
// two Uint256 coordinates plus padding.
const EcPointSize = 6
