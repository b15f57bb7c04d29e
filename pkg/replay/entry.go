package replay

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Checks a recorded block trace and prints its storage commitments",
		PreRunE: PreRun,
		Run:     Run,
	}

	SetFlags(cmd)

	return cmd
}

func PreRun(cmd *cobra.Command, _ []string) error {
	if err := cliParams.bindEnv(cmd); err != nil {
		return err
	}

	// Config file settings override flags and the environment
	if isConfigFileSpecified(cmd) {
		if err := cliParams.initConfigFromFile(); err != nil {
			return err
		}
	}

	return cliParams.validateFlags()
}

func Run(cmd *cobra.Command, _ []string) {
	outputter := InitializeOutputter(cmd)
	defer outputter.WriteOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := runInspect(cliParams.generateConfig())
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func runInspect(config *InspectConfig) (*InspectResult, error) {
	logger, err := newLoggerFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("could not setup new logger instance, %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bundle, err := readBundle(config.TracePath)
	if err != nil {
		return nil, err
	}

	return Inspect(ctx, config, bundle, logger)
}

func isConfigFileSpecified(cmd *cobra.Command) bool {
	return cmd.Flags().Changed(configFlag)
}
