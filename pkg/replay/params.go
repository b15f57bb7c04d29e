package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"

	"github.com/sunvim/starkos/params"
)

const (
	configFlag          = "config"
	traceFlag           = "trace"
	blockFlag           = "block"
	chainIDFlag         = "chain-id"
	initialGasFlag      = "initial-gas"
	logFileLocationFlag = "log-to"
)

const (
	LogLevelFlag   = "log-level"
	JSONOutputFlag = "json"
)

var (
	cliParams = &inspectParams{
		rawConfig: DefaultConfig(),
	}
)

var (
	errNoTrace         = errors.New("no trace bundle given")
	errInvalidLogLevel = errors.New("invalid log level")
)

type inspectParams struct {
	rawConfig  *Config
	configPath string

	block    uint64
	blockSet bool
}

func (p *inspectParams) initConfigFromFile() error {
	var parseErr error

	if p.rawConfig, parseErr = readConfigFile(p.configPath); parseErr != nil {
		return parseErr
	}

	return nil
}

// readConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl
func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl nor json", path)
	}

	config := DefaultConfig()
	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

func (p *inspectParams) generalConfig() *params.GeneralConfig {
	general := params.DefaultGeneralConfig()
	general.ChainID = p.rawConfig.ChainID
	general.InitialGas = p.rawConfig.InitialGas

	return general
}

// validateFlags reports every invalid setting at once.
func (p *inspectParams) validateFlags() error {
	var err error

	if p.rawConfig.TracePath == "" {
		err = multierror.Append(err, errNoTrace)
	}

	if hclog.LevelFromString(p.rawConfig.LogLevel) == hclog.NoLevel {
		err = multierror.Append(err, fmt.Errorf("%w: %q", errInvalidLogLevel, p.rawConfig.LogLevel))
	}

	if generalErr := p.generalConfig().Validate(); generalErr != nil {
		err = multierror.Append(err, generalErr)
	}

	return err
}

func (p *inspectParams) generateConfig() *InspectConfig {
	config := &InspectConfig{
		TracePath:   p.rawConfig.TracePath,
		General:     p.generalConfig(),
		LogLevel:    hclog.LevelFromString(p.rawConfig.LogLevel),
		LogFilePath: p.rawConfig.LogFilePath,
	}

	if p.blockSet {
		block := p.block
		config.Block = &block
	}

	return config
}
