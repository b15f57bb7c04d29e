// Package syscalltest lays out syscall requests the way compiled Cairo code
// does, so handlers can be driven without an interpreter.
package syscalltest

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/state/runtime/structs"
	"github.com/sunvim/starkos/state/runtime/syscall"
	"github.com/sunvim/starkos/types"
)

var ErrUnknownSyscall = errors.New("unknown syscall")

// Handler is the syscall entry point under test.
type Handler interface {
	Syscall(ptr types.Relocatable) error
}

// Response is a decoded syscall response. Data holds the felts of every
// (start, end) range in the body, such as retdata or a failure reason.
type Response struct {
	Name   string
	Gas    uint64
	Failed bool
	Body   *structs.Record
	Data   []*felt.Felt
}

// Felts returns the felt fields of the body. Pointers are left out since
// they depend on the allocator.
func (r *Response) Felts() []*felt.Felt {
	var out []*felt.Felt

	for _, v := range r.Body.Values() {
		if f, ok := v.Felt(); ok {
			out = append(out, f)
		}
	}

	return out
}

// FailureCode decodes the failure reason of a failed response.
func (r *Response) FailureCode() string {
	if !r.Failed || len(r.Data) == 0 {
		return ""
	}

	return types.DecodeShortString(r.Data[0])
}

// Client plays the Cairo side of the syscall ABI. It tracks the syscall
// pointer and the gas left, as a compiled contract does.
type Client struct {
	segments syscall.Segments
	handler  Handler

	ptr        types.Relocatable
	gas        uint64
	transcript []*Response
}

func NewClient(segments syscall.Segments, handler Handler, syscallPtr types.Relocatable, gas uint64) *Client {
	return &Client{
		segments: segments,
		handler:  handler,
		ptr:      syscallPtr,
		gas:      gas,
	}
}

// Ptr is where the next request will be written.
func (c *Client) Ptr() types.Relocatable {
	return c.ptr
}

func (c *Client) Gas() uint64 {
	return c.gas
}

func (c *Client) SetGas(gas uint64) {
	c.gas = gas
}

// Transcript returns every response received so far.
func (c *Client) Transcript() []*Response {
	return c.transcript
}

// Alloc writes fs into a new segment.
func (c *Client) Alloc(fs ...*felt.Felt) (start, end types.Relocatable, err error) {
	start = c.segments.Add()

	values := make([]types.MaybeRelocatable, len(fs))
	for i, f := range fs {
		values[i] = types.FeltValue(f)
	}

	end, err = c.segments.Write(start, values...)

	return start, end, err
}

// Syscall writes a request for the named syscall with the given body at
// the syscall pointer, invokes the handler and decodes the response.
func (c *Client) Syscall(name string, body ...types.MaybeRelocatable) (*Response, error) {
	selector, ok := syscall.Selector(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSyscall, name)
	}

	requestLayout, _ := syscall.RequestLayout(name)
	responseLayout, _ := syscall.ResponseLayout(name)

	header := structs.RequestHeader.New(types.FeltValue(selector), types.Uint64Value(c.gas))

	addr, err := structs.Write(c.segments, c.ptr, header)
	if err != nil {
		return nil, err
	}

	addr, err = structs.Write(c.segments, addr, requestLayout.New(body...))
	if err != nil {
		return nil, err
	}

	if err := c.handler.Syscall(c.ptr); err != nil {
		return nil, err
	}

	respHeader, err := structs.Read(structs.ResponseHeader, c.segments, addr)
	if err != nil {
		return nil, err
	}

	gas, _ := types.FeltToUint64(respHeader.Felt("gas"))
	failed := !respHeader.Felt("failure_flag").IsZero()

	if failed {
		responseLayout = structs.FailureReason
	}

	resp, err := c.readBody(responseLayout, addr.Add(structs.ResponseHeader.Size()))
	if err != nil {
		return nil, err
	}

	resp.Name, resp.Gas, resp.Failed = name, gas, failed

	c.ptr = addr.Add(structs.ResponseHeader.Size() + responseLayout.Size())
	c.gas = gas
	c.transcript = append(c.transcript, resp)

	return resp, nil
}

// readBody reads the body without kind checks: a point that is not on the
// curve comes back as a zero felt in a pointer slot.
func (c *Client) readBody(layout *structs.Layout, addr types.Relocatable) (*Response, error) {
	values, err := c.segments.GetRange(addr, layout.Size())
	if err != nil {
		return nil, err
	}

	resp := &Response{Body: layout.New(values...)}

	for i := 0; i+1 < len(layout.Fields); i++ {
		startField, endField := layout.Fields[i], layout.Fields[i+1]
		if !strings.HasSuffix(startField.Name, "start") ||
			strings.TrimSuffix(startField.Name, "start") != strings.TrimSuffix(endField.Name, "end") {
			continue
		}

		data, err := syscall.GetFeltRange(c.segments, resp.Body.Ptr(startField.Name), resp.Body.Ptr(endField.Name))
		if err != nil {
			return nil, err
		}

		resp.Data = append(resp.Data, data...)
	}

	return resp, nil
}

func (c *Client) allocRange(fs []*felt.Felt) (start, end types.MaybeRelocatable, err error) {
	s, e, err := c.Alloc(fs...)
	if err != nil {
		return types.MaybeRelocatable{}, types.MaybeRelocatable{}, err
	}

	return types.PtrValue(s), types.PtrValue(e), nil
}

func (c *Client) CallContract(address, selector *felt.Felt, calldata []*felt.Felt) (*Response, error) {
	start, end, err := c.allocRange(calldata)
	if err != nil {
		return nil, err
	}

	return c.Syscall("call_contract", types.FeltValue(address), types.FeltValue(selector), start, end)
}

func (c *Client) LibraryCall(classHash, selector *felt.Felt, calldata []*felt.Felt) (*Response, error) {
	start, end, err := c.allocRange(calldata)
	if err != nil {
		return nil, err
	}

	return c.Syscall("library_call", types.FeltValue(classHash), types.FeltValue(selector), start, end)
}

func (c *Client) Deploy(classHash, salt *felt.Felt, calldata []*felt.Felt, fromZero bool) (*Response, error) {
	start, end, err := c.allocRange(calldata)
	if err != nil {
		return nil, err
	}

	flag := uint64(0)
	if fromZero {
		flag = 1
	}

	return c.Syscall("deploy",
		types.FeltValue(classHash), types.FeltValue(salt), start, end, types.Uint64Value(flag))
}

func (c *Client) EmitEvent(keys, data []*felt.Felt) (*Response, error) {
	keysStart, keysEnd, err := c.allocRange(keys)
	if err != nil {
		return nil, err
	}

	dataStart, dataEnd, err := c.allocRange(data)
	if err != nil {
		return nil, err
	}

	return c.Syscall("emit_event", keysStart, keysEnd, dataStart, dataEnd)
}

func (c *Client) GetBlockHash(blockNumber uint64) (*Response, error) {
	return c.Syscall("get_block_hash", types.Uint64Value(blockNumber))
}

func (c *Client) GetExecutionInfo() (*Response, error) {
	return c.Syscall("get_execution_info")
}

func (c *Client) Keccak(words []uint64) (*Response, error) {
	start, end, err := c.allocRange(types.FeltsFromUint64s(words...))
	if err != nil {
		return nil, err
	}

	return c.Syscall("keccak", start, end)
}

func (c *Client) ReplaceClass(classHash *felt.Felt) (*Response, error) {
	return c.Syscall("replace_class", types.FeltValue(classHash))
}

func (c *Client) SendMessageToL1(toAddress *felt.Felt, payload []*felt.Felt) (*Response, error) {
	start, end, err := c.allocRange(payload)
	if err != nil {
		return nil, err
	}

	return c.Syscall("send_message_to_l1", types.FeltValue(toAddress), start, end)
}

func (c *Client) StorageRead(key *felt.Felt) (*Response, error) {
	return c.Syscall("storage_read", types.Uint64Value(0), types.FeltValue(key))
}

func (c *Client) StorageWrite(key, value *felt.Felt) (*Response, error) {
	return c.Syscall("storage_write", types.Uint64Value(0), types.FeltValue(key), types.FeltValue(value))
}

// SecpNew registers (x, y) on the named curve, "secp256k1" or "secp256r1".
func (c *Client) SecpNew(curve string, x, y *big.Int) (*Response, error) {
	xLow, xHigh := structs.Uint256Values(x)
	yLow, yHigh := structs.Uint256Values(y)

	return c.Syscall(curve+"_new", xLow, xHigh, yLow, yHigh)
}

func (c *Client) SecpAdd(curve string, p0, p1 types.Relocatable) (*Response, error) {
	return c.Syscall(curve+"_add", types.PtrValue(p0), types.PtrValue(p1))
}

func (c *Client) SecpMul(curve string, p types.Relocatable, scalar *big.Int) (*Response, error) {
	low, high := structs.Uint256Values(scalar)

	return c.Syscall(curve+"_mul", types.PtrValue(p), low, high)
}

func (c *Client) SecpGetPointFromX(curve string, x *big.Int, yParity bool) (*Response, error) {
	low, high := structs.Uint256Values(x)

	parity := uint64(0)
	if yParity {
		parity = 1
	}

	return c.Syscall(curve+"_get_point_from_x", low, high, types.Uint64Value(parity))
}

func (c *Client) SecpGetXy(curve string, p types.Relocatable) (*Response, error) {
	return c.Syscall(curve+"_get_xy", types.PtrValue(p))
}

// ExecutionInfo is a dereferenced ExecutionInfo struct.
type ExecutionInfo struct {
	Block     *structs.Record
	Tx        *structs.Record
	Signature []*felt.Felt
	Info      *structs.Record
}

// Felts flattens every felt of the execution info, so two of them can be
// compared regardless of where they were allocated.
func (e *ExecutionInfo) Felts() []*felt.Felt {
	var out []*felt.Felt

	for _, rec := range []*structs.Record{e.Block, e.Tx, e.Info} {
		for _, v := range rec.Values() {
			if f, ok := v.Felt(); ok {
				out = append(out, f)
			}
		}
	}

	return append(out, e.Signature...)
}

// ReadExecutionInfo follows the pointer a get_execution_info response holds.
func (c *Client) ReadExecutionInfo(ptr types.Relocatable) (*ExecutionInfo, error) {
	info, err := c.readRecord(structs.ExecutionInfo, ptr)
	if err != nil {
		return nil, err
	}

	block, err := c.readRecord(structs.BlockInfo, info.Ptr("block_info"))
	if err != nil {
		return nil, err
	}

	tx, err := c.readRecord(structs.TxInfo, info.Ptr("tx_info"))
	if err != nil {
		return nil, err
	}

	signature, err := syscall.GetFeltRange(c.segments, tx.Ptr("signature_start"), tx.Ptr("signature_end"))
	if err != nil {
		return nil, err
	}

	return &ExecutionInfo{Block: block, Tx: tx, Signature: signature, Info: info}, nil
}

func (c *Client) readRecord(layout *structs.Layout, addr types.Relocatable) (*structs.Record, error) {
	values, err := c.segments.GetRange(addr, layout.Size())
	if err != nil {
		return nil, err
	}

	return layout.New(values...), nil
}
