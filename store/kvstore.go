package store

import (
	"bytes"

	"github.com/quake/godwoken/database"
)

// KVStore is the read and write contract shared by Transaction and Snapshot.
// Get returns database.ErrDatabaseNotFound for an absent key.
type KVStore interface {
	Get(col Col, key []byte) ([]byte, error)
	Iterate(col Col, mode IteratorMode) Iterator
	Insert(col Col, key, value []byte) error
	Delete(col Col, key []byte) error
}

type Direction int

const (
	Forward Direction = iota
	Reverse
)

// IteratorMode selects where an iteration starts and which way it walks.
type IteratorMode struct {
	from      []byte
	direction Direction
}

// Start walks a column in ascending key order.
func Start() IteratorMode {
	return IteratorMode{direction: Forward}
}

// End walks a column in descending key order.
func End() IteratorMode {
	return IteratorMode{direction: Reverse}
}

// From starts at key, or at the nearest key past it in the given direction.
func From(key []byte, direction Direction) IteratorMode {
	from := key
	if from == nil {
		from = []byte{}
	}
	return IteratorMode{from: from, direction: direction}
}

// Iterator walks the entries of one column. Keys are returned without the
// column prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

func iterateDatabase(db database.Iteratee, col Col, mode IteratorMode) database.Iterator {
	if mode.direction == Reverse {
		return db.NewReverseIterator([]byte{byte(col)}, mode.from)
	}
	return db.NewIterator([]byte{byte(col)}, mode.from)
}

// columnIterator strips the column prefix from the keys of an iterator over
// full keys.
type columnIterator struct {
	database.Iterator
}

func (it columnIterator) Key() []byte {
	key := it.Iterator.Key()
	if len(key) == 0 {
		return nil
	}
	return key[1:]
}

const (
	tombstone = byte(0)
	written   = byte(1)
)

// mergedIterator overlays the buffered writes of a transaction on the
// database. On equal keys the buffer wins and tombstones hide the entry.
type mergedIterator struct {
	buf, db     database.Iterator
	bufOk, dbOk bool
	reverse     bool
	started     bool
	key, value  []byte
}

func newMergedIterator(buf, db database.Iterator, reverse bool) *mergedIterator {
	return &mergedIterator{buf: buf, db: db, reverse: reverse}
}

func (it *mergedIterator) Next() bool {
	if !it.started {
		it.started = true
		it.bufOk = it.buf.Next()
		it.dbOk = it.db.Next()
	}
	for it.bufOk || it.dbOk {
		fromBuf := !it.dbOk
		if it.bufOk && it.dbOk {
			c := bytes.Compare(it.buf.Key(), it.db.Key())
			if it.reverse {
				c = -c
			}
			if c == 0 {
				it.dbOk = it.db.Next()
			}
			fromBuf = c <= 0
		}
		if !fromBuf {
			it.key, it.value = it.db.Key(), it.db.Value()
			it.dbOk = it.db.Next()
			return true
		}
		key, raw := it.buf.Key(), it.buf.Value()
		it.bufOk = it.buf.Next()
		if len(raw) == 0 || raw[0] == tombstone {
			continue
		}
		it.key, it.value = key, raw[1:]
		return true
	}
	it.key, it.value = nil, nil
	return false
}

func (it *mergedIterator) Key() []byte {
	return it.key
}

func (it *mergedIterator) Value() []byte {
	return it.value
}

func (it *mergedIterator) Error() error {
	if err := it.buf.Error(); err != nil {
		return err
	}
	return it.db.Error()
}

func (it *mergedIterator) Release() {
	it.buf.Release()
	it.db.Release()
}
