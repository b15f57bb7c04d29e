package params

const (
	// StoredBlockHashBuffer is how far behind the current block a block must
	// be before its hash can be queried.
	StoredBlockHashBuffer uint64 = 10

	// BlockHashContractAddress is the reserved contract whose storage maps
	// block numbers to block hashes.
	BlockHashContractAddress uint64 = 1

	// ValidateBlockNumberRounding and ValidateTimestampRounding are the
	// granularities block info is rounded down to in VALIDATE mode.
	ValidateBlockNumberRounding uint64 = 100
	ValidateTimestampRounding   uint64 = 3600

	// MaxEntryPointDepth bounds the nesting of calls within a transaction.
	MaxEntryPointDepth = 100

	// KeccakFullRateInU64s is the keccak sponge rate in 64-bit words.
	KeccakFullRateInU64s = 17
)

const (
	// ContractAddressPrefix is the short string "STARKNET_CONTRACT_ADDRESS".
	ContractAddressPrefix = "STARKNET_CONTRACT_ADDRESS"
	// ConstructorEntryPointName is hashed into the constructor selector.
	ConstructorEntryPointName = "constructor"
)
