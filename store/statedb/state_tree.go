package statedb

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/smt"
	"github.com/quake/godwoken/state"
	"github.com/quake/godwoken/store"
	"github.com/quake/godwoken/types"
)

var _ state.StateWithCode = (*StateTree)(nil)

type shortAddress [types.ShortAddressLength]byte

// StateTree is the account state of one transition: the account SMT plus
// scripts and data created during the transition, kept in memory until
// SubmitTreeToStore. It borrows a store transaction and fails with
// store.ErrTransactionClosed once that transaction is committed or rolled
// back.
type StateTree struct {
	tx           *store.Transaction
	tree         *smt.SparseMerkleTree
	accountCount uint32
	context      StateContext
	tracker      *StateTracker

	scripts           map[types.Hash256]*types.Script
	data              map[types.Hash256][]byte
	scriptsHashPrefix map[shortAddress]types.Hash256
}

// New wraps tree, whose nodes must live in tx or in an overlay over it.
func New(tx *store.Transaction, tree *smt.SparseMerkleTree, accountCount uint32, context StateContext) *StateTree {
	return &StateTree{
		tx:                tx,
		tree:              tree,
		accountCount:      accountCount,
		context:           context,
		tracker:           NewStateTracker(),
		scripts:           make(map[types.Hash256]*types.Script),
		data:              make(map[types.Hash256][]byte),
		scriptsHashPrefix: make(map[shortAddress]types.Hash256),
	}
}

// NewStateTree opens the persisted account state of tx. Tree writes go
// straight into the transaction.
func NewStateTree(tx *store.Transaction, context StateContext, opts ...smt.Option) (*StateTree, error) {
	merkle, err := tx.GetAccountMerkleState()
	if err != nil {
		return nil, state.WrapStore(err)
	}
	return New(tx, tx.AccountSMTWithMerkleState(merkle, opts...), merkle.Count, context), nil
}

// NewMemStateTree opens the persisted account state of tx behind an
// in-memory node overlay: tree writes stay in memory until
// SubmitTreeToStore.
func NewMemStateTree(tx *store.Transaction, context StateContext, opts ...smt.Option) (*StateTree, error) {
	merkle, err := tx.GetAccountMerkleState()
	if err != nil {
		return nil, state.WrapStore(err)
	}
	tree, _, err := tx.AccountSMTOverlay(merkle, opts...)
	if err != nil {
		return nil, state.WrapStore(err)
	}
	return New(tx, tree, merkle.Count, context), nil
}

func (t *StateTree) Context() StateContext {
	return t.context
}

func (t *StateTree) Tracker() *StateTracker {
	return t.tracker
}

func (t *StateTree) SMT() *smt.SparseMerkleTree {
	return t.tree
}

func (t *StateTree) GetMerkleState() types.AccountMerkleState {
	return types.AccountMerkleState{MerkleRoot: t.tree.Root(), Count: t.accountCount}
}

func (t *StateTree) checkOpen() error {
	if t.tx.Closed() {
		return store.ErrTransactionClosed
	}
	return nil
}

func (t *StateTree) checkWritable() error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if t.context.IsHistory() {
		return state.ErrReadOnlyContext
	}
	return nil
}

func (t *StateTree) GetRaw(key types.Hash256) (types.Hash256, error) {
	if err := t.checkOpen(); err != nil {
		return types.Hash256{}, err
	}
	t.tracker.Touch(key)
	if t.context.IsHistory() {
		value, err := t.tx.GetHistoryState(t.context.number, key)
		return value, state.WrapStore(err)
	}
	value, err := t.tree.Get(key)
	return value, state.WrapAccumulator(err)
}

func (t *StateTree) UpdateRaw(key, value types.Hash256) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.tracker.Touch(key)
	if _, err := t.tree.Update(key, value); err != nil {
		return state.WrapAccumulator(err)
	}
	return t.record(key, value)
}

func (t *StateTree) UpdateMultiRaw(pairs []types.KV) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	leaves := make([]smt.Pair, len(pairs))
	for i, kv := range pairs {
		t.tracker.Touch(kv.Key)
		leaves[i] = smt.Pair{Key: kv.Key, Value: kv.Value}
	}
	if _, err := t.tree.UpdateAll(leaves); err != nil {
		return state.WrapAccumulator(err)
	}
	// in order, so a repeated key keeps its last value
	for _, kv := range pairs {
		if err := t.record(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (t *StateTree) record(key, value types.Hash256) error {
	if t.context.kind != attachBlockContext {
		return nil
	}
	return state.WrapStore(t.tx.RecordBlockState(t.context.number, key, value))
}

func (t *StateTree) GetAccountCount() (uint32, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	return t.accountCount, nil
}

func (t *StateTree) SetAccountCount(count uint32) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.accountCount = count
	return nil
}

func (t *StateTree) CalculateRoot() (types.Hash256, error) {
	if err := t.checkOpen(); err != nil {
		return types.Hash256{}, err
	}
	return t.tree.Root(), nil
}

// InsertScript keeps the script in memory and indexes its short address.
// A short address already bound to another script is rebound to this one.
func (t *StateTree) InsertScript(hash types.Hash256, script *types.Script) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	var prefix shortAddress
	copy(prefix[:], hash[:types.ShortAddressLength])
	existing, err := t.GetScriptHashByShortAddress(prefix[:])
	switch {
	case err == nil && existing != hash:
		log.Warn("Short address collision", "short_address", hexutil.Bytes(prefix[:]), "old", existing, "new", hash)
	case err != nil && !errors.Is(err, state.ErrMissingKey):
		return err
	}
	t.scripts[hash] = script
	t.scriptsHashPrefix[prefix] = hash
	return nil
}

func (t *StateTree) GetScript(hash types.Hash256) (*types.Script, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if script, ok := t.scripts[hash]; ok {
		return script, nil
	}
	script, err := t.tx.GetScript(hash)
	if err != nil {
		return nil, storeError(err)
	}
	return script, nil
}

func (t *StateTree) GetScriptHashByShortAddress(short []byte) (types.Hash256, error) {
	if err := t.checkOpen(); err != nil {
		return types.Hash256{}, err
	}
	if len(short) != types.ShortAddressLength {
		return types.Hash256{}, state.ErrInvalidShortAddress
	}
	var prefix shortAddress
	copy(prefix[:], short)
	if hash, ok := t.scriptsHashPrefix[prefix]; ok {
		return hash, nil
	}
	hash, err := t.tx.GetScriptHashByShortAddress(short)
	if err != nil {
		return types.Hash256{}, storeError(err)
	}
	return hash, nil
}

func (t *StateTree) InsertData(hash types.Hash256, data []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.data[hash] = data
	return nil
}

func (t *StateTree) GetData(hash types.Hash256) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if data, ok := t.data[hash]; ok {
		return data, nil
	}
	data, err := t.tx.GetData(hash)
	if err != nil {
		return nil, storeError(err)
	}
	return data, nil
}

// SubmitTreeToStore writes the in-memory scripts, short address index, data
// and tree nodes into the transaction, together with the merkle state.
func (t *StateTree) SubmitTreeToStore() error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	for hash, script := range t.scripts {
		if err := t.tx.InsertScript(hash, script); err != nil {
			return state.WrapStore(err)
		}
	}
	for prefix, hash := range t.scriptsHashPrefix {
		if err := t.tx.InsertScriptPrefix(prefix[:], hash); err != nil {
			return state.WrapStore(err)
		}
	}
	for hash, data := range t.data {
		if err := t.tx.InsertData(hash, data); err != nil {
			return state.WrapStore(err)
		}
	}
	if overlay, ok := t.tree.Store().(*store.MemSMTStore); ok {
		if err := overlay.Flush(overlay.Inner()); err != nil {
			return state.WrapStore(err)
		}
	}
	if err := t.tx.SetAccountMerkleState(t.GetMerkleState()); err != nil {
		return state.WrapStore(err)
	}
	t.scripts = make(map[types.Hash256]*types.Script)
	t.data = make(map[types.Hash256][]byte)
	t.scriptsHashPrefix = make(map[shortAddress]types.Hash256)
	return nil
}

// GenerateWitness proves the touched keys against the current root. The
// tracker must be enabled before the transition runs.
func (t *StateTree) GenerateWitness() ([]smt.Pair, smt.CompiledMerkleProof, error) {
	if err := t.checkOpen(); err != nil {
		return nil, nil, err
	}
	keys := t.tracker.TouchedKeys()
	if len(keys) == 0 {
		return nil, nil, nil
	}
	leaves := make([]smt.Pair, len(keys))
	for i, key := range keys {
		value, err := t.tree.Get(key)
		if err != nil {
			return nil, nil, state.WrapAccumulator(err)
		}
		leaves[i] = smt.Pair{Key: key, Value: value}
	}
	proof, err := t.tree.MerkleProof(keys)
	if err != nil {
		return nil, nil, errors.Wrap(state.ErrMerkleProof, err.Error())
	}
	compiled, err := proof.Compile(leaves)
	if err != nil {
		return nil, nil, errors.Wrap(state.ErrMerkleProof, err.Error())
	}
	return leaves, compiled, nil
}

func storeError(err error) error {
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return state.ErrMissingKey
	}
	return state.WrapStore(err)
}
