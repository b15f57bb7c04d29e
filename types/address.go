package types

import (
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
)

var (
	// L2AddressUpperBound is 2**251 - 256.
	L2AddressUpperBound = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 251), big.NewInt(256))

	contractAddressPrefix = ShortString("STARKNET_CONTRACT_ADDRESS")
)

// CalculateContractAddressFromHash computes the address a deployment of
// classHash lands on.
func CalculateContractAddressFromHash(
	salt, classHash *felt.Felt,
	constructorCalldata []*felt.Felt,
	deployerAddress *felt.Felt,
) *felt.Felt {
	calldataHash := PedersenArray(constructorCalldata...)
	raw := PedersenArray(contractAddressPrefix, deployerAddress, salt, classHash, calldataHash)

	addr := FeltToBig(raw)

	return FeltFromBig(addr.Mod(addr, L2AddressUpperBound))
}
