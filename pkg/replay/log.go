package replay

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

const (
	loggerDomainName = "starkos"
)

// newFileLogger returns a logger that appends every log line to the
// configured file.
func newFileLogger(config *InspectConfig) (hclog.Logger, error) {
	logFileWriter, err := os.OpenFile(
		config.LogFilePath,
		os.O_CREATE|os.O_RDWR|os.O_APPEND,
		0640,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create log file, %w", err)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   loggerDomainName,
		Level:  config.LogLevel,
		Output: logFileWriter,
	}), nil
}

// newCLILogger logs to stderr, leaving stdout to the command output.
func newCLILogger(config *InspectConfig) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   loggerDomainName,
		Level:  config.LogLevel,
		Output: os.Stderr,
	})
}

// newLoggerFromConfig creates a file logger when a log file is set and a
// console logger otherwise.
func newLoggerFromConfig(config *InspectConfig) (hclog.Logger, error) {
	if config.LogFilePath != "" {
		return newFileLogger(config)
	}

	return newCLILogger(config), nil
}
