package replay

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// OutputFormatter writes the result or the error of a command
type OutputFormatter interface {
	SetError(err error)
	SetCommandResult(result CommandResult)
	WriteOutput(stdout, stderr io.Writer)
}

type CommandResult interface {
	GetOutput() string
}

func shouldOutputJSON(baseCmd *cobra.Command) bool {
	return baseCmd.Flag(JSONOutputFlag).Changed
}

func InitializeOutputter(cmd *cobra.Command) OutputFormatter {
	if shouldOutputJSON(cmd) {
		return &JSONOutput{}
	}

	return &CLIOutput{}
}

type commonOutputFormatter struct {
	errorOutput   error
	commandOutput CommandResult
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}

type JSONOutput struct {
	commonOutputFormatter
}

func (jo *JSONOutput) WriteOutput(stdout, stderr io.Writer) {
	if jo.errorOutput != nil {
		_, _ = fmt.Fprintln(stderr, marshalJSONToString(struct {
			Err string `json:"error"`
		}{
			Err: jo.errorOutput.Error(),
		}))

		return
	}

	_, _ = fmt.Fprintln(stdout, marshalJSONToString(jo.commandOutput))
}

func marshalJSONToString(input interface{}) string {
	bytes, err := json.Marshal(input)
	if err != nil {
		return err.Error()
	}

	return string(bytes)
}

type CLIOutput struct {
	commonOutputFormatter
}

func (cli *CLIOutput) WriteOutput(stdout, stderr io.Writer) {
	if cli.errorOutput != nil {
		_, _ = fmt.Fprintln(stderr, cli.errorOutput.Error())

		return
	}

	_, _ = fmt.Fprint(stdout, cli.commandOutput.GetOutput())
}
