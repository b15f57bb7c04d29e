package syscall

import (
	"github.com/NethermindEth/juno/core/felt"

	"github.com/sunvim/starkos/types"
)

// ContractStorage is the storage of a single contract, recording every value
// read and every key touched during a call.
type ContractStorage struct {
	state           State
	contractAddress *felt.Felt

	readValues   []*felt.Felt
	accessedKeys map[felt.Felt]struct{}
}

func NewContractStorage(state State, contractAddress *felt.Felt) *ContractStorage {
	return &ContractStorage{
		state:           state,
		contractAddress: contractAddress,
		accessedKeys:    make(map[felt.Felt]struct{}),
	}
}

func (s *ContractStorage) Read(key *felt.Felt) (*felt.Felt, error) {
	s.accessedKeys[*key] = struct{}{}

	value, err := s.state.GetStorageAt(types.DataAvailabilityModeL1, s.contractAddress, key)
	if err != nil {
		return nil, err
	}

	s.readValues = append(s.readValues, value)

	return value, nil
}

func (s *ContractStorage) Write(key, value *felt.Felt) error {
	s.accessedKeys[*key] = struct{}{}

	return s.state.SetStorageAt(types.DataAvailabilityModeL1, s.contractAddress, key, value)
}

// ReadValues returns the values read so far, in read order.
func (s *ContractStorage) ReadValues() []*felt.Felt {
	return s.readValues
}

// AccessedKeys returns the keys read or written so far, sorted.
func (s *ContractStorage) AccessedKeys() []*felt.Felt {
	return types.SortedKeys(s.accessedKeys)
}
