package structlogger

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/state/runtime"
	"github.com/sunvim/starkos/types"
)

var _ runtime.CallTracer = (*StructLogger)(nil)

// StructLog is one entry point execution, recorded when it returned.
type StructLog struct {
	Depth          int                  `json:"depth"`
	Contract       *felt.Felt           `json:"contract"`
	Selector       *felt.Felt           `json:"selector"`
	EntryPointType types.EntryPointType `json:"entryPointType"`
	CallType       types.CallType       `json:"callType"`
	Calldata       []*felt.Felt         `json:"calldata"`
	Retdata        []*felt.Felt         `json:"retdata"`
	Gas            uint64               `json:"gas"`
	GasConsumed    uint64               `json:"gasConsumed"`
	Steps          uint64               `json:"steps"`
	Failed         bool                 `json:"failed"`
	Err            error                `json:"-"`
	ErrorString    string               `json:"error"`
}

func (s StructLog) MarshalJSON() ([]byte, error) {
	type plain StructLog

	p := plain(s)
	p.ErrorString = s.GetErrorString()

	return json.Marshal(&p)
}

// GetErrorString formats the log's error as a string.
func (s *StructLog) GetErrorString() string {
	if s.Err != nil {
		return s.Err.Error()
	}

	return ""
}

// StructLogger records every call of an execution in the order the calls
// started, so logs read as a pre-order walk of the call tree.
type StructLogger struct {
	logs  []*StructLog
	stack []int
	err   error
}

// NewStructLogger returns a new logger
func NewStructLogger() *StructLogger {
	return &StructLogger{}
}

// Reset clears the data held by the logger.
func (l *StructLogger) Reset() {
	l.logs = l.logs[:0]
	l.stack = l.stack[:0]
	l.err = nil
}

func (l *StructLogger) CaptureEnter(call *types.CallEntryPoint, depth int) {
	l.stack = append(l.stack, len(l.logs))
	l.logs = append(l.logs, &StructLog{
		Depth:          depth,
		Contract:       call.ContractAddress,
		Selector:       call.EntryPointSelector,
		EntryPointType: call.EntryPointType,
		CallType:       call.CallType,
		Calldata:       call.Calldata,
		Gas:            call.InitialGas,
	})
}

func (l *StructLogger) CaptureExit(info *types.CallInfo, depth int, err error) {
	if len(l.stack) == 0 {
		return
	}

	log := l.logs[l.stack[len(l.stack)-1]]
	l.stack = l.stack[:len(l.stack)-1]

	if err != nil {
		log.Err = err

		// the outermost error is the one the execution failed with
		if depth == 1 {
			l.err = err
		}

		return
	}

	log.Retdata = info.Retdata
	log.GasConsumed = info.GasConsumed
	log.Steps = info.Resources.NSteps
	log.Failed = info.Failed
}

// StructLogs returns the captured log entries.
func (l *StructLogger) StructLogs() []*StructLog { return l.logs }

// Error returns the error the execution was aborted with.
func (l *StructLogger) Error() error { return l.err }

func writeFelts(writer io.Writer, title string, fs []*felt.Felt) {
	if len(fs) == 0 {
		return
	}

	fmt.Fprintln(writer, title)

	for i, f := range fs {
		fmt.Fprintf(writer, "%08d  %s\n", i, f)
	}
}

// WriteTrace writes a formatted trace to the given writer
func WriteTrace(writer io.Writer, logs []*StructLog) {
	for _, log := range logs {
		fmt.Fprintf(writer, "%*s%s %s.%s gas=%v used=%v steps=%v",
			2*(log.Depth-1), "", log.EntryPointType, log.Contract, log.Selector,
			log.Gas, log.GasConsumed, log.Steps)

		switch {
		case log.Err != nil:
			fmt.Fprintf(writer, " ERROR: %v", log.Err)
		case log.Failed:
			fmt.Fprint(writer, " REVERTED")
		}

		fmt.Fprintln(writer)

		writeFelts(writer, "Calldata:", log.Calldata)
		writeFelts(writer, "Retdata:", log.Retdata)

		fmt.Fprintln(writer)
	}
}

// WriteEvents writes the events of a call tree in emission order.
func WriteEvents(writer io.Writer, call *types.CallInfo) {
	for _, ev := range call.SortedEvents() {
		fmt.Fprintf(writer, "EVENT%d: %s\n", ev.Order, ev.FromAddress)

		for i, key := range ev.Keys {
			fmt.Fprintf(writer, "%08d  %s\n", i, key)
		}

		writeFelts(writer, "Data:", ev.Data)
		fmt.Fprintln(writer)
	}
}
