package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunvim/starkos/params"
	"github.com/sunvim/starkos/state/storage"
	"github.com/sunvim/starkos/types"
)

var (
	contract = types.FeltFromUint64(0xa)
	deployed = types.FeltFromUint64(0xd)
)

func testBundle() *Bundle {
	call := &types.CallInfo{
		CallerAddress:      new(felt.Felt),
		CallType:           types.CallTypeCall,
		ContractAddress:    contract,
		ClassHash:          types.FeltFromUint64(0xa1),
		EntryPointSelector: types.StarknetKeccak([]byte("run")),
		EntryPointType:     types.EntryPointTypeExternal,
		Retdata:            types.FeltsFromUint64s(42),
		InitialGas:         1_000_000,
		GasConsumed:        20_000,
		Resources:          types.ExecutionResources{NSteps: 150},
		StorageReadValues:  types.FeltsFromUint64s(41),
		InternalCalls: []*types.CallInfo{
			types.EmptyConstructorCall(deployed, contract, types.FeltFromUint64(0xc1)),
		},
	}

	return &Bundle{
		BlockInfo: &types.BlockInfo{
			BlockNumber:      5,
			BlockTimestamp:   1_700_000_000,
			SequencerAddress: types.FeltFromUint64(0x5e9),
		},
		Transactions: []*types.TransactionExecutionInfo{
			{CallInfo: call},
			{},
		},
		Storage: map[string]*ContractStorage{
			"0xa": {
				Initial: map[string]string{"0x5": "0x29"},
				Writes:  map[string]string{"0x5": "0x2a"},
			},
		},
	}
}

func testConfig() *InspectConfig {
	return &InspectConfig{
		TracePath: "bundle.json",
		General:   params.DefaultGeneralConfig(),
		LogLevel:  hclog.Info,
	}
}

func TestInspect(t *testing.T) {
	result, err := Inspect(context.Background(), testConfig(), testBundle(), hclog.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), result.Block)
	assert.Equal(t, 2, result.Transactions)
	assert.Equal(t, 2, result.Calls)
	assert.Equal(t, 1, result.SkippedCalls)

	want, err := storage.NewOsSingleStarknetStorage(contract,
		map[felt.Felt]*felt.Felt{*types.FeltFromUint64(5): types.FeltFromUint64(0x29)},
		map[felt.Felt]*felt.Felt{*types.FeltFromUint64(5): types.FeltFromUint64(0x2a)},
	).ComputeCommitment(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Commitments, 1)
	assert.True(t, want.PreviousRoot.Equal(result.Commitments[0].PreviousRoot))
	assert.True(t, want.UpdatedRoot.Equal(result.Commitments[0].UpdatedRoot))
}

func TestInspectBlockMismatch(t *testing.T) {
	config := testConfig()
	block := uint64(6)
	config.Block = &block

	_, err := Inspect(context.Background(), config, testBundle(), hclog.NewNullLogger())
	assert.ErrorIs(t, err, errBlockMismatch)
}

func TestInspectBadStorage(t *testing.T) {
	bundle := testBundle()
	bundle.Storage["0xa"].Writes["0x5"] = "not hex"

	_, err := Inspect(context.Background(), testConfig(), bundle, hclog.NewNullLogger())
	assert.Error(t, err)
}

func TestReadBundle(t *testing.T) {
	data, err := json.Marshal(testBundle())
	require.NoError(t, err)

	bundle, err := readBundle(writeFile(t, "bundle.json", string(data)))
	require.NoError(t, err)

	assert.Equal(t, uint64(5), bundle.BlockInfo.BlockNumber)
	require.Len(t, bundle.Transactions, 2)
	assert.True(t, contract.Equal(bundle.Transactions[0].CallInfo.ContractAddress))

	_, err = readBundle(writeFile(t, "empty.json", "{}"))
	assert.Error(t, err)
}

func TestParseFelt(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"0x0", 0, true},
		{"0x2a", 42, true},
		{"0xabc", 0xabc, true},
		{"abc", 0xabc, true},
		{"0xzz", 0, false},
		{"0x" + strings.Repeat("ff", 33), 0, false},
	}

	for _, c := range cases {
		f, err := parseFelt(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)

			continue
		}

		require.NoError(t, err, c.in)
		assert.True(t, types.FeltFromUint64(c.want).Equal(f), c.in)
	}
}

func TestOutput(t *testing.T) {
	result, err := Inspect(context.Background(), testConfig(), testBundle(), hclog.NewNullLogger())
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer

	cli := &CLIOutput{}
	cli.SetCommandResult(result)
	cli.WriteOutput(&stdout, &stderr)

	assert.Contains(t, stdout.String(), "Transactions  = 2")
	assert.Contains(t, stdout.String(), feltHex(result.Commitments[0].UpdatedRoot))
	assert.Empty(t, stderr.String())

	stdout.Reset()

	js := &JSONOutput{}
	js.SetCommandResult(result)
	js.WriteOutput(&stdout, &stderr)

	var decoded InspectResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Calls)

	js.SetError(errBlockMismatch)
	js.WriteOutput(&stdout, &stderr)
	assert.Contains(t, stderr.String(), `"error"`)
}
