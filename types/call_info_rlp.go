package types

import (
	"github.com/dogechain-lab/fastrlp"
)

const (
	callInfoRLPFields = 19
	txInfoRLPFields   = 7
)

func (c *CallInfo) MarshalRLP() []byte {
	return c.MarshalRLPTo(nil)
}

func (c *CallInfo) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(c.MarshalRLPWith, dst)
}

// MarshalRLPWith marshals a call and, recursively, its inner calls.
func (c *CallInfo) MarshalRLPWith(a *fastrlp.Arena) *fastrlp.Value {
	vv := a.NewArray()
	vv.Set(marshalFelt(a, c.CallerAddress))
	vv.Set(a.NewCopyBytes([]byte(c.CallType)))
	vv.Set(marshalFelt(a, c.ContractAddress))
	vv.Set(marshalFelt(a, c.CodeAddress))
	vv.Set(marshalFelt(a, c.ClassHash))
	vv.Set(marshalFelt(a, c.EntryPointSelector))
	vv.Set(a.NewCopyBytes([]byte(c.EntryPointType)))
	vv.Set(marshalFelts(a, c.Calldata))
	vv.Set(marshalFelts(a, c.Retdata))
	vv.Set(a.NewUint(c.GasConsumed))
	vv.Set(marshalBool(a, c.Failed))

	resources := a.NewArray()
	resources.Set(a.NewUint(c.Resources.NSteps))
	resources.Set(a.NewUint(c.Resources.NMemoryHoles))
	resources.Set(marshalCounter(a, c.Resources.BuiltinInstanceCounter))
	vv.Set(resources)

	if len(c.Events) == 0 {
		vv.Set(a.NewNullArray())
	} else {
		events := a.NewArray()

		for _, e := range c.Events {
			ev := a.NewArray()
			ev.Set(a.NewUint(e.Order))
			ev.Set(marshalFelts(a, e.Keys))
			ev.Set(marshalFelts(a, e.Data))
			events.Set(ev)
		}

		vv.Set(events)
	}

	if len(c.L2ToL1Messages) == 0 {
		vv.Set(a.NewNullArray())
	} else {
		msgs := a.NewArray()

		for _, m := range c.L2ToL1Messages {
			mv := a.NewArray()
			mv.Set(a.NewUint(m.Order))
			mv.Set(marshalFelt(a, m.ToAddress))
			mv.Set(marshalFelts(a, m.Payload))
			msgs.Set(mv)
		}

		vv.Set(msgs)
	}

	vv.Set(marshalFelts(a, c.StorageReadValues))
	vv.Set(marshalFelts(a, c.AccessedStorageKeys))

	if len(c.InternalCalls) == 0 {
		vv.Set(a.NewNullArray())
	} else {
		inner := a.NewArray()
		for _, ic := range c.InternalCalls {
			inner.Set(ic.MarshalRLPWith(a))
		}

		vv.Set(inner)
	}

	vv.Set(a.NewUint(c.InitialGas))
	vv.Set(marshalBool(a, c.NotExecuted))

	return vv
}

func (c *CallInfo) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(c.UnmarshalRLPFrom, input)
}

func (c *CallInfo) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, callInfoRLPFields)
	if err != nil {
		return err
	}

	if c.CallerAddress, err = unmarshalFelt(elems[0]); err != nil {
		return err
	}

	callType, err := elems[1].GetBytes(nil)
	if err != nil {
		return err
	}

	c.CallType = CallType(callType)

	if c.ContractAddress, err = unmarshalFelt(elems[2]); err != nil {
		return err
	}

	if c.CodeAddress, err = unmarshalFelt(elems[3]); err != nil {
		return err
	}

	if c.ClassHash, err = unmarshalFelt(elems[4]); err != nil {
		return err
	}

	if c.EntryPointSelector, err = unmarshalFelt(elems[5]); err != nil {
		return err
	}

	entryPointType, err := elems[6].GetBytes(nil)
	if err != nil {
		return err
	}

	c.EntryPointType = EntryPointType(entryPointType)

	if c.Calldata, err = unmarshalFelts(elems[7]); err != nil {
		return err
	}

	if c.Retdata, err = unmarshalFelts(elems[8]); err != nil {
		return err
	}

	if c.GasConsumed, err = elems[9].GetUint64(); err != nil {
		return err
	}

	if c.Failed, err = unmarshalBool(elems[10]); err != nil {
		return err
	}

	resources, err := expectElems(elems[11], 3)
	if err != nil {
		return err
	}

	if c.Resources.NSteps, err = resources[0].GetUint64(); err != nil {
		return err
	}

	if c.Resources.NMemoryHoles, err = resources[1].GetUint64(); err != nil {
		return err
	}

	if c.Resources.BuiltinInstanceCounter, err = unmarshalCounter(resources[2]); err != nil {
		return err
	}

	events, err := elems[12].GetElems()
	if err != nil {
		return err
	}

	for _, ev := range events {
		fields, err := expectElems(ev, 3)
		if err != nil {
			return err
		}

		var e OrderedEvent

		if e.Order, err = fields[0].GetUint64(); err != nil {
			return err
		}

		if e.Keys, err = unmarshalFelts(fields[1]); err != nil {
			return err
		}

		if e.Data, err = unmarshalFelts(fields[2]); err != nil {
			return err
		}

		c.Events = append(c.Events, e)
	}

	msgs, err := elems[13].GetElems()
	if err != nil {
		return err
	}

	for _, mv := range msgs {
		fields, err := expectElems(mv, 3)
		if err != nil {
			return err
		}

		var m OrderedL2ToL1Message

		if m.Order, err = fields[0].GetUint64(); err != nil {
			return err
		}

		if m.ToAddress, err = unmarshalFelt(fields[1]); err != nil {
			return err
		}

		if m.Payload, err = unmarshalFelts(fields[2]); err != nil {
			return err
		}

		c.L2ToL1Messages = append(c.L2ToL1Messages, m)
	}

	if c.StorageReadValues, err = unmarshalFelts(elems[14]); err != nil {
		return err
	}

	if c.AccessedStorageKeys, err = unmarshalFelts(elems[15]); err != nil {
		return err
	}

	inner, err := elems[16].GetElems()
	if err != nil {
		return err
	}

	for _, iv := range inner {
		ic := &CallInfo{}
		if err := ic.UnmarshalRLPFrom(p, iv); err != nil {
			return err
		}

		c.InternalCalls = append(c.InternalCalls, ic)
	}

	if c.InitialGas, err = elems[17].GetUint64(); err != nil {
		return err
	}

	if c.NotExecuted, err = unmarshalBool(elems[18]); err != nil {
		return err
	}

	return nil
}

func (t *TransactionExecutionInfo) MarshalRLP() []byte {
	return t.MarshalRLPTo(nil)
}

func (t *TransactionExecutionInfo) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(t.MarshalRLPWith, dst)
}

func (t *TransactionExecutionInfo) MarshalRLPWith(a *fastrlp.Arena) *fastrlp.Value {
	vv := a.NewArray()

	for _, c := range []*CallInfo{t.ValidateInfo, t.CallInfo, t.FeeTransferInfo} {
		if c == nil {
			vv.Set(a.NewNullArray())
		} else {
			vv.Set(c.MarshalRLPWith(a))
		}
	}

	vv.Set(a.NewUint(t.ActualFee))
	vv.Set(marshalCounter(a, t.ActualResources))
	vv.Set(a.NewCopyBytes([]byte(t.TxType)))
	vv.Set(a.NewCopyBytes([]byte(t.RevertError)))

	return vv
}

func (t *TransactionExecutionInfo) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(t.UnmarshalRLPFrom, input)
}

func (t *TransactionExecutionInfo) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, txInfoRLPFields)
	if err != nil {
		return err
	}

	calls := make([]*CallInfo, 3)

	for i := range calls {
		fields, err := elems[i].GetElems()
		if err != nil {
			return err
		}

		// an absent call is encoded as an empty list
		if len(fields) == 0 {
			continue
		}

		calls[i] = &CallInfo{}
		if err := calls[i].UnmarshalRLPFrom(p, elems[i]); err != nil {
			return err
		}
	}

	t.ValidateInfo, t.CallInfo, t.FeeTransferInfo = calls[0], calls[1], calls[2]

	if t.ActualFee, err = elems[3].GetUint64(); err != nil {
		return err
	}

	if t.ActualResources, err = unmarshalCounter(elems[4]); err != nil {
		return err
	}

	txType, err := elems[5].GetBytes(nil)
	if err != nil {
		return err
	}

	t.TxType = string(txType)

	revertError, err := elems[6].GetBytes(nil)
	if err != nil {
		return err
	}

	t.RevertError = string(revertError)

	return nil
}
