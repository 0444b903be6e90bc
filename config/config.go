package config

import (
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/types"
)

// RollupConfig is the on-chain configuration of a rollup. Its hash is part of
// every GlobalState.
type RollupConfig struct {
	L1SUDTScriptTypeHash          types.Hash256   `json:"l1_sudt_script_type_hash"`
	CustodianScriptTypeHash       types.Hash256   `json:"custodian_script_type_hash"`
	DepositScriptTypeHash         types.Hash256   `json:"deposit_script_type_hash"`
	WithdrawalScriptTypeHash      types.Hash256   `json:"withdrawal_script_type_hash"`
	ChallengeScriptTypeHash       types.Hash256   `json:"challenge_script_type_hash"`
	StakeScriptTypeHash           types.Hash256   `json:"stake_script_type_hash"`
	L2SUDTValidatorScriptTypeHash types.Hash256   `json:"l2_sudt_validator_script_type_hash"`
	BurnLockHash                  types.Hash256   `json:"burn_lock_hash"`
	RequiredStakingCapacity       uint64          `json:"required_staking_capacity"`
	ChallengeMaturityBlocks       uint64          `json:"challenge_maturity_blocks"`
	FinalityBlocks                uint64          `json:"finality_blocks"`
	RewardBurnRate                uint8           `json:"reward_burn_rate"`
	AllowedEOATypeHashes          []types.Hash256 `json:"allowed_eoa_type_hashes"`
	AllowedContractTypeHashes     []types.Hash256 `json:"allowed_contract_type_hashes"`
}

// Hash is the content hash of the configuration.
func (c *RollupConfig) Hash() types.Hash256 {
	enc, err := rlp.EncodeToBytes(c)
	if err != nil {
		panic(err)
	}
	return types.Blake2bHash(enc)
}

type GenesisConfig struct {
	Timestamp                     uint64        `json:"timestamp"`
	RollupTypeHash                types.Hash256 `json:"rollup_type_hash"`
	MetaContractValidatorTypeHash types.Hash256 `json:"meta_contract_validator_type_hash"`
	RollupConfig                  RollupConfig  `json:"rollup_config"`
}

var ErrMissingRollupTypeHash = errors.New("genesis config: rollup_type_hash is required")

func (c *GenesisConfig) Validate() error {
	if c.RollupTypeHash == (types.Hash256{}) {
		return ErrMissingRollupTypeHash
	}
	return nil
}

// LoadGenesisConfig reads a JSON genesis config from file.
func LoadGenesisConfig(file string) (*GenesisConfig, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis config")
	}
	var cfg GenesisConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode genesis config %s", file)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteGenesisConfig writes cfg to file as indented JSON.
func WriteGenesisConfig(file string, cfg *GenesisConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode genesis config")
	}
	return os.WriteFile(file, data, 0600)
}
