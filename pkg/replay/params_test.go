package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestReadConfigFile(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
				"trace": "block.json",
				"chain_id": "SN_SEPOLIA",
				"log_level": "DEBUG",
				"log_to": "starkos.log"
			}`,
		},
		{
			name: "hcl",
			file: "config.hcl",
			content: `
trace = "block.json"
chain_id = "SN_SEPOLIA"
log_level = "DEBUG"
log_to = "starkos.log"
`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			config, err := readConfigFile(writeFile(t, c.file, c.content))
			require.NoError(t, err)

			assert.Equal(t, "block.json", config.TracePath)
			assert.Equal(t, "SN_SEPOLIA", config.ChainID)
			assert.Equal(t, "DEBUG", config.LogLevel)
			assert.Equal(t, "starkos.log", config.LogFilePath)

			// unset fields keep their defaults
			assert.Equal(t, DefaultConfig().InitialGas, config.InitialGas)
		})
	}
}

func TestReadConfigFileUnknownSuffix(t *testing.T) {
	_, err := readConfigFile(writeFile(t, "config.yaml", "trace: block.json"))
	assert.Error(t, err)
}

func TestValidateFlags(t *testing.T) {
	p := &inspectParams{rawConfig: DefaultConfig()}
	p.rawConfig.TracePath = "block.json"

	require.NoError(t, p.validateFlags())

	p.rawConfig.TracePath = ""
	p.rawConfig.LogLevel = "loud"
	p.rawConfig.InitialGas = 0

	err := p.validateFlags()
	assert.ErrorIs(t, err, errNoTrace)
	assert.ErrorIs(t, err, errInvalidLogLevel)
	assert.Contains(t, err.Error(), "initial_gas")
}

func TestGenerateConfig(t *testing.T) {
	p := &inspectParams{rawConfig: DefaultConfig()}
	p.rawConfig.TracePath = "block.json"
	p.rawConfig.ChainID = "SN_SEPOLIA"
	p.rawConfig.LogLevel = "trace"

	config := p.generateConfig()
	assert.Nil(t, config.Block)
	assert.Equal(t, "SN_SEPOLIA", config.General.ChainID)
	assert.Equal(t, hclog.Trace, config.LogLevel)

	p.block, p.blockSet = 12, true

	config = p.generateConfig()
	require.NotNil(t, config.Block)
	assert.Equal(t, uint64(12), *config.Block)
}
