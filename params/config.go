package params

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Well-known chain ids, encoded on chain as Cairo short strings.
const (
	ChainIDMainnet = "SN_MAIN"
	ChainIDSepolia = "SN_SEPOLIA"
)

var (
	errEmptyChainID      = errors.New("chain id is empty")
	errChainIDTooLong    = errors.New("chain id does not fit in a short string")
	errZeroRounding      = errors.New("rounding must be positive")
	errZeroStepsLimit    = errors.New("steps limit must be positive")
	errZeroInitialBudget = errors.New("initial gas budget must be positive")
)

// GeneralConfig carries the chain-wide knobs syscall handlers and the
// entry-point executor read.
type GeneralConfig struct {
	ChainID                     string `json:"chain_id"`
	SequencerAddress            string `json:"sequencer_address"`
	ValidateBlockNumberRounding uint64 `json:"validate_block_number_rounding"`
	ValidateTimestampRounding   uint64 `json:"validate_timestamp_rounding"`
	InvokeTxMaxNSteps           uint64 `json:"invoke_tx_max_n_steps"`
	ValidateMaxNSteps           uint64 `json:"validate_max_n_steps"`
	InitialGas                  uint64 `json:"initial_gas"`
}

func DefaultGeneralConfig() *GeneralConfig {
	return &GeneralConfig{
		ChainID:                     ChainIDMainnet,
		SequencerAddress:            "0x0",
		ValidateBlockNumberRounding: ValidateBlockNumberRounding,
		ValidateTimestampRounding:   ValidateTimestampRounding,
		InvokeTxMaxNSteps:           10_000_000,
		ValidateMaxNSteps:           1_000_000,
		InitialGas:                  10_000_000_000,
	}
}

// Validate reports every invalid field at once.
func (c *GeneralConfig) Validate() error {
	var err error

	check := func(field string, subErr error) {
		err = multierror.Append(err, fmt.Errorf("%s: %w", field, subErr))
	}

	if c.ChainID == "" {
		check("chain_id", errEmptyChainID)
	} else if len(c.ChainID) > 31 {
		check("chain_id", errChainIDTooLong)
	}

	if c.ValidateBlockNumberRounding == 0 {
		check("validate_block_number_rounding", errZeroRounding)
	}

	if c.ValidateTimestampRounding == 0 {
		check("validate_timestamp_rounding", errZeroRounding)
	}

	if c.InvokeTxMaxNSteps == 0 {
		check("invoke_tx_max_n_steps", errZeroStepsLimit)
	}

	if c.ValidateMaxNSteps == 0 {
		check("validate_max_n_steps", errZeroStepsLimit)
	}

	if c.InitialGas == 0 {
		check("initial_gas", errZeroInitialBudget)
	}

	return err
}
