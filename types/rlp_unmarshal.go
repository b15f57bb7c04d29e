package types

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/dogechain-lab/fastrlp"
)

var (
	ErrRLPFieldCount = errors.New("unexpected number of rlp fields")
	ErrRLPFeltLength = errors.New("felt must be 32 bytes")
)

const feltByteLen = 32

type RLPUnmarshaler interface {
	UnmarshalRLP(input []byte) error
}

type unmarshalRLPFunc func(p *fastrlp.Parser, v *fastrlp.Value) error

func UnmarshalRlp(obj unmarshalRLPFunc, input []byte) error {
	pr := fastrlp.DefaultParserPool.Get()

	v, err := pr.Parse(input)
	if err != nil {
		fastrlp.DefaultParserPool.Put(pr)

		return err
	}

	if err := obj(pr, v); err != nil {
		fastrlp.DefaultParserPool.Put(pr)

		return err
	}

	fastrlp.DefaultParserPool.Put(pr)

	return nil
}

func expectElems(v *fastrlp.Value, n int) ([]*fastrlp.Value, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) != n {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrRLPFieldCount, n, len(elems))
	}

	return elems, nil
}

func unmarshalFelt(v *fastrlp.Value) (*felt.Felt, error) {
	buf, err := v.GetBytes(nil)
	if err != nil {
		return nil, err
	}

	switch len(buf) {
	case 0:
		return nil, nil
	case feltByteLen:
		return new(felt.Felt).SetBytes(buf), nil
	default:
		return nil, fmt.Errorf("%w: got %d", ErrRLPFeltLength, len(buf))
	}
}

func unmarshalFelts(v *fastrlp.Value) ([]*felt.Felt, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) == 0 {
		return nil, nil
	}

	out := make([]*felt.Felt, len(elems))

	for i, elem := range elems {
		if out[i], err = unmarshalFelt(elem); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func unmarshalCounter(v *fastrlp.Value) (map[string]uint64, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) == 0 {
		return nil, nil
	}

	m := make(map[string]uint64, len(elems))

	for _, elem := range elems {
		pair, err := expectElems(elem, 2)
		if err != nil {
			return nil, err
		}

		name, err := pair[0].GetBytes(nil)
		if err != nil {
			return nil, err
		}

		count, err := pair[1].GetUint64()
		if err != nil {
			return nil, err
		}

		m[string(name)] = count
	}

	return m, nil
}

func unmarshalBool(v *fastrlp.Value) (bool, error) {
	n, err := v.GetUint64()
	if err != nil {
		return false, err
	}

	return n != 0, nil
}
