package store

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/database/leveldb"
	"github.com/quake/godwoken/types"
	"github.com/quake/godwoken/utils"
)

var ErrTransactionClosed = errors.New("transaction is closed")

// initial capacity of the write buffer, grown on demand
const txBufferSize = 64 * 1024

var _ KVStore = (*Transaction)(nil)

// Transaction buffers writes until Commit, which applies all of them across
// every column atomically. Reads and iterators observe the buffered writes.
// Only one transaction may be committing blocks at a time; callers
// serialize writers.
type Transaction struct {
	reader
	store  *Store
	db     database.KeyValueStore
	buf    *memdb.DB
	closed bool

	// set by AttachBlock, reported once committed
	attached *types.L2Block
}

func newTransaction(store *Store) *Transaction {
	tx := &Transaction{
		store: store,
		db:    store.db,
		buf:   memdb.New(comparer.DefaultComparer, txBufferSize),
	}
	tx.reader = reader{kv: tx}
	return tx
}

// Closed reports whether the transaction was committed or rolled back.
func (tx *Transaction) Closed() bool {
	return tx.closed
}

func (tx *Transaction) Get(col Col, key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTransactionClosed
	}
	full := columnKey(col, key)
	raw, err := tx.buf.Get(full)
	if err == nil {
		if raw[0] == tombstone {
			return nil, database.ErrDatabaseNotFound
		}
		return utils.CopyBytes(raw[1:]), nil
	}
	if err != memdb.ErrNotFound {
		return nil, err
	}
	return tx.db.Get(full)
}

func (tx *Transaction) Iterate(col Col, mode IteratorMode) Iterator {
	if tx.closed {
		return columnIterator{&errIterator{err: ErrTransactionClosed}}
	}
	var origin []byte
	if mode.from != nil {
		origin = columnKey(col, mode.from)
	}
	reverse := mode.direction == Reverse
	buf := leveldb.WrapIterator(tx.buf.NewIterator(util.BytesPrefix([]byte{byte(col)})), origin, reverse)
	return columnIterator{newMergedIterator(buf, iterateDatabase(tx.db, col, mode), reverse)}
}

func (tx *Transaction) Insert(col Col, key, value []byte) error {
	if tx.closed {
		return ErrTransactionClosed
	}
	raw := make([]byte, 1+len(value))
	raw[0] = written
	copy(raw[1:], value)
	return tx.buf.Put(columnKey(col, key), raw)
}

func (tx *Transaction) Delete(col Col, key []byte) error {
	if tx.closed {
		return ErrTransactionClosed
	}
	return tx.buf.Put(columnKey(col, key), []byte{tombstone})
}

// Commit writes the buffered changes through a single batch.
func (tx *Transaction) Commit() error {
	if tx.closed {
		return ErrTransactionClosed
	}
	batch := tx.db.NewBatch()
	it := tx.buf.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		var err error
		if raw := it.Value(); raw[0] == tombstone {
			err = batch.Delete(utils.CopyBytes(it.Key()))
		} else {
			err = batch.Set(utils.CopyBytes(it.Key()), utils.CopyBytes(raw[1:]))
		}
		if err != nil {
			return errors.Wrap(err, "stage write")
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	writes, size := tx.buf.Len(), tx.buf.Size()
	tx.close()
	tx.store.reportCommit(writes, size, tx.attached)
	return nil
}

// Rollback drops the buffered changes.
func (tx *Transaction) Rollback() {
	if tx.closed {
		return
	}
	tx.close()
}

func (tx *Transaction) close() {
	tx.closed = true
	tx.buf.Reset()
}

type errIterator struct {
	err error
}

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Error() error  { return it.err }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Release()      {}
