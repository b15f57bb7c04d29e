package replay

import (
	"github.com/hashicorp/go-hclog"

	"github.com/sunvim/starkos/params"
)

// Config defines the inspect command configuration params
type Config struct {
	TracePath   string `json:"trace" hcl:"trace"`
	ChainID     string `json:"chain_id" hcl:"chain_id"`
	InitialGas  uint64 `json:"initial_gas" hcl:"initial_gas"`
	LogLevel    string `json:"log_level" hcl:"log_level"`
	LogFilePath string `json:"log_to" hcl:"log_to"`
}

func DefaultConfig() *Config {
	general := params.DefaultGeneralConfig()

	return &Config{
		ChainID:     general.ChainID,
		InitialGas:  general.InitialGas,
		LogLevel:    "INFO",
		LogFilePath: "",
	}
}

// InspectConfig is the resolved configuration of one inspect run.
type InspectConfig struct {
	TracePath string

	// Block is the block to check, nil for the block of the bundle.
	Block *uint64

	General *params.GeneralConfig

	LogLevel    hclog.Level
	LogFilePath string
}
