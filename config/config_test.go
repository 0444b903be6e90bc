package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisJSON = `{
  "timestamp": 1630000000,
  "rollup_type_hash": "0x0101010101010101010101010101010101010101010101010101010101010101",
  "meta_contract_validator_type_hash": "0x0202020202020202020202020202020202020202020202020202020202020202",
  "rollup_config": {
    "l2_sudt_validator_script_type_hash": "0x0303030303030303030303030303030303030303030303030303030303030303",
    "finality_blocks": 100,
    "allowed_eoa_type_hashes": ["0x0404040404040404040404040404040404040404040404040404040404040404"]
  }
}`

func TestLoadGenesisConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(file, []byte(genesisJSON), 0600))

	cfg, err := LoadGenesisConfig(file)
	require.NoError(t, err)
	assert.Equal(t, uint64(1630000000), cfg.Timestamp)
	assert.Equal(t, common.HexToHash("0x0101010101010101010101010101010101010101010101010101010101010101"), cfg.RollupTypeHash)
	assert.Equal(t, uint64(100), cfg.RollupConfig.FinalityBlocks)
	require.Len(t, cfg.RollupConfig.AllowedEOATypeHashes, 1)
	assert.Equal(t, byte(4), cfg.RollupConfig.AllowedEOATypeHashes[0][0])
}

func TestGenesisConfigRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "genesis.json")
	cfg := &GenesisConfig{Timestamp: 7, RollupTypeHash: common.Hash{1}}
	require.NoError(t, WriteGenesisConfig(file, cfg))

	loaded, err := LoadGenesisConfig(file)
	require.NoError(t, err)
	assert.Equal(t, cfg.RollupTypeHash, loaded.RollupTypeHash)
	assert.Equal(t, cfg.RollupConfig.Hash(), loaded.RollupConfig.Hash())
}

func TestLoadGenesisConfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadGenesisConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	file := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(file, []byte("{"), 0600))
	_, err = LoadGenesisConfig(file)
	assert.Error(t, err)

	file = filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))
	_, err = LoadGenesisConfig(file)
	assert.ErrorIs(t, err, ErrMissingRollupTypeHash)
}

func TestRollupConfigHash(t *testing.T) {
	a := RollupConfig{FinalityBlocks: 1}
	b := RollupConfig{FinalityBlocks: 2}
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Hash(), a.Hash())
}
