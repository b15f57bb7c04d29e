package runtime

import (
	"github.com/sunvim/starkos/types"
)

// CallTracer is used to collect the call tree of a transaction execution.
// CaptureEnter is called before a call runs, CaptureExit once it returned.
type CallTracer interface {
	CaptureEnter(call *types.CallEntryPoint, depth int)
	CaptureExit(info *types.CallInfo, depth int, err error)
}

// DummyTracer does nothing in call tracing
type DummyTracer struct{}

func NewDummyTracer() CallTracer {
	return &DummyTracer{}
}

func (d *DummyTracer) CaptureEnter(call *types.CallEntryPoint, depth int) {
}

func (d *DummyTracer) CaptureExit(info *types.CallInfo, depth int, err error) {
}
