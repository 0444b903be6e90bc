package state

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/types"
)

// maxAmountBits bounds simple UDT balances to u128.
const maxAmountBits = 128

// CreateAccount allocates the next account id for scriptHash. The SMT is
// written in one batch before the count advances, so a failure leaves the
// count untouched.
func CreateAccount(s State, scriptHash types.Hash256) (uint32, error) {
	id, err := s.GetAccountCount()
	if err != nil {
		return 0, err
	}
	if err := s.UpdateMultiRaw([]types.KV{
		{Key: BuildAccountFieldKey(id, FieldTypeNonce), Value: types.Hash256{}},
		{Key: BuildAccountFieldKey(id, FieldTypeScriptHash), Value: scriptHash},
		{Key: BuildScriptHashToAccountIDKey(scriptHash), Value: encodeAccountID(id)},
	}); err != nil {
		return 0, err
	}
	if err := s.SetAccountCount(id + 1); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateAccountFromScript creates the account and registers its script.
// Either both happen or the state is left as it was.
func CreateAccountFromScript(s StateWithCode, script *types.Script) (uint32, error) {
	hash := script.Hash()
	if _, err := s.GetScriptHashByShortAddress(script.ShortAddress()); err != nil && !errors.Is(err, ErrMissingKey) {
		return 0, err
	}
	id, err := s.GetAccountCount()
	if err != nil {
		return 0, err
	}
	prev, err := readPairs(s, accountKeys(id, hash))
	if err != nil {
		return 0, err
	}
	if _, err := CreateAccount(s, hash); err != nil {
		return 0, err
	}
	if err := s.InsertScript(hash, script); err != nil {
		if rerr := s.UpdateMultiRaw(prev); rerr != nil {
			return 0, errors.Wrapf(err, "revert account %d: %v", id, rerr)
		}
		if rerr := s.SetAccountCount(id); rerr != nil {
			return 0, errors.Wrapf(err, "revert account count %d: %v", id, rerr)
		}
		return 0, err
	}
	return id, nil
}

func accountKeys(id uint32, scriptHash types.Hash256) []types.Hash256 {
	return []types.Hash256{
		BuildAccountFieldKey(id, FieldTypeNonce),
		BuildAccountFieldKey(id, FieldTypeScriptHash),
		BuildScriptHashToAccountIDKey(scriptHash),
	}
}

func readPairs(s State, keys []types.Hash256) ([]types.KV, error) {
	pairs := make([]types.KV, len(keys))
	for i, key := range keys {
		value, err := s.GetRaw(key)
		if err != nil {
			return nil, err
		}
		pairs[i] = types.KV{Key: key, Value: value}
	}
	return pairs, nil
}

func GetScriptHash(s State, id uint32) (types.Hash256, error) {
	return s.GetRaw(BuildAccountFieldKey(id, FieldTypeScriptHash))
}

// GetAccountIDByScriptHash returns ErrMissingKey when no account has the script.
func GetAccountIDByScriptHash(s State, scriptHash types.Hash256) (uint32, error) {
	value, err := s.GetRaw(BuildScriptHashToAccountIDKey(scriptHash))
	if err != nil {
		return 0, err
	}
	id, ok := decodeAccountID(value)
	if !ok {
		return 0, ErrMissingKey
	}
	return id, nil
}

func GetAccountIDByShortAddress(s StateWithCode, shortAddress []byte) (uint32, error) {
	if len(shortAddress) != types.ShortAddressLength {
		return 0, ErrInvalidShortAddress
	}
	hash, err := s.GetScriptHashByShortAddress(shortAddress)
	if err != nil {
		return 0, err
	}
	return GetAccountIDByScriptHash(s, hash)
}

func GetNonce(s State, id uint32) (uint32, error) {
	value, err := s.GetRaw(BuildAccountFieldKey(id, FieldTypeNonce))
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(value[:4]), nil
}

func SetNonce(s State, id uint32, nonce uint32) error {
	return s.UpdateRaw(BuildAccountFieldKey(id, FieldTypeNonce), encodeUint32(nonce))
}

func GetValue(s State, id uint32, key []byte) (types.Hash256, error) {
	return s.GetRaw(BuildAccountKey(id, key))
}

func UpdateValue(s State, id uint32, key []byte, value types.Hash256) error {
	return s.UpdateRaw(BuildAccountKey(id, key), value)
}

// IsDataHashExist reports whether dataHash was registered in the state.
func IsDataHashExist(s State, dataHash types.Hash256) (bool, error) {
	value, err := s.GetRaw(BuildDataHashKey(dataHash))
	if err != nil {
		return false, err
	}
	return value == encodeUint32(1), nil
}

func StoreDataHash(s State, dataHash types.Hash256) error {
	return s.UpdateRaw(BuildDataHashKey(dataHash), encodeUint32(1))
}

// Balances are stored little-endian in the leaf value.
func decodeAmount(value types.Hash256) *uint256.Int {
	var be [32]byte
	for i := range value {
		be[31-i] = value[i]
	}
	return new(uint256.Int).SetBytes(be[:])
}

func encodeAmount(amount *uint256.Int) types.Hash256 {
	be := amount.Bytes32()
	var value types.Hash256
	for i := range be {
		value[31-i] = be[i]
	}
	return value
}

func GetSUDTBalance(s State, sudtID uint32, shortAddress []byte) (*uint256.Int, error) {
	if len(shortAddress) != types.ShortAddressLength {
		return nil, ErrInvalidShortAddress
	}
	value, err := s.GetRaw(BuildSUDTKey(sudtID, shortAddress))
	if err != nil {
		return nil, err
	}
	return decodeAmount(value), nil
}

func MintSUDT(s State, sudtID uint32, shortAddress []byte, amount *uint256.Int) error {
	if amount.BitLen() > maxAmountBits {
		return ErrAmountOverflow
	}
	balance, err := GetSUDTBalance(s, sudtID, shortAddress)
	if err != nil {
		return err
	}
	// operands fit in 128 bits, the 256-bit sum cannot wrap
	balance.Add(balance, amount)
	if balance.BitLen() > maxAmountBits {
		return ErrAmountOverflow
	}
	return s.UpdateRaw(BuildSUDTKey(sudtID, shortAddress), encodeAmount(balance))
}

func BurnSUDT(s State, sudtID uint32, shortAddress []byte, amount *uint256.Int) error {
	balance, err := GetSUDTBalance(s, sudtID, shortAddress)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "balance %v, amount %v", balance.ToBig(), amount.ToBig())
	}
	balance.Sub(balance, amount)
	return s.UpdateRaw(BuildSUDTKey(sudtID, shortAddress), encodeAmount(balance))
}

// PayFee moves amount from payer to the block producer. Only the CKB simple
// UDT is accepted for fees.
func PayFee(s State, payer, producer []byte, sudtID uint32, amount *uint256.Int) error {
	if sudtID != CKBSUDTAccountID {
		return ErrUnsupportedFeeSUDT
	}
	if err := BurnSUDT(s, sudtID, payer, amount); err != nil {
		return err
	}
	return MintSUDT(s, sudtID, producer, amount)
}

// CalculateStateCheckpoint binds a root and an account count.
func CalculateStateCheckpoint(root types.Hash256, count uint32) types.Hash256 {
	countLE := encodeUint32(count)
	return types.Blake2bHash(root[:], countLE[:4])
}

func CalculateMerkleState(s State) (types.AccountMerkleState, error) {
	root, err := s.CalculateRoot()
	if err != nil {
		return types.AccountMerkleState{}, err
	}
	count, err := s.GetAccountCount()
	if err != nil {
		return types.AccountMerkleState{}, err
	}
	return types.AccountMerkleState{MerkleRoot: root, Count: count}, nil
}

// CalculateStateCheckpointOf returns the checkpoint of the current state.
func CalculateStateCheckpointOf(s State) (types.Hash256, error) {
	merkle, err := CalculateMerkleState(s)
	if err != nil {
		return types.Hash256{}, err
	}
	return CalculateStateCheckpoint(merkle.MerkleRoot, merkle.Count), nil
}
