package replay

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "starkos"

func SetFlags(cmd *cobra.Command) {
	defaultConfig := DefaultConfig()

	// basic flags
	{
		cmd.Flags().StringVar(
			&cliParams.configPath,
			configFlag,
			"",
			"the path to the CLI config. Supports .json and .hcl",
		)

		cmd.Flags().StringVar(
			&cliParams.rawConfig.TracePath,
			traceFlag,
			defaultConfig.TracePath,
			"the JSON trace bundle to inspect",
		)

		cmd.Flags().Uint64Var(
			&cliParams.block,
			blockFlag,
			0,
			"the block the bundle must hold (default: the block of the bundle)",
		)

		cmd.Flags().Bool(
			JSONOutputFlag,
			false,
			"print the result as JSON",
		)
	}

	// chain flags
	{
		cmd.Flags().StringVar(
			&cliParams.rawConfig.ChainID,
			chainIDFlag,
			defaultConfig.ChainID,
			"the chain id written into the tx info of every call",
		)

		cmd.Flags().Uint64Var(
			&cliParams.rawConfig.InitialGas,
			initialGasFlag,
			defaultConfig.InitialGas,
			"the gas budget of a top level call",
		)
	}

	// log flags
	{
		cmd.Flags().StringVar(
			&cliParams.rawConfig.LogLevel,
			LogLevelFlag,
			defaultConfig.LogLevel,
			"the log level for console output",
		)

		cmd.Flags().StringVar(
			&cliParams.rawConfig.LogFilePath,
			logFileLocationFlag,
			defaultConfig.LogFilePath,
			"write all logs to the file at specified location instead of writing them to console",
		)
	}
}

// bindEnv lets STARKOS_* environment variables stand in for flags that
// were not given on the command line.
func (p *inspectParams) bindEnv(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	p.rawConfig.TracePath = v.GetString(traceFlag)
	p.rawConfig.ChainID = v.GetString(chainIDFlag)
	p.rawConfig.InitialGas = v.GetUint64(initialGasFlag)
	p.rawConfig.LogLevel = v.GetString(LogLevelFlag)
	p.rawConfig.LogFilePath = v.GetString(logFileLocationFlag)

	// flag defaults do not count as set
	p.blockSet = v.IsSet(blockFlag)
	if p.blockSet {
		p.block = v.GetUint64(blockFlag)
	}

	return nil
}
