package database

type (
	KeyValueReader interface {
		// Has retrieves if a key is present in the key-value data store.
		Has(key []byte) (bool, error)

		// Get retrieves the given key if it's present in the key-value data store.
		Get(key []byte) ([]byte, error)
	}
	KeyValueWriter interface {
		// Set inserts the given value into the key-value data store.
		Set(key []byte, value []byte) error

		// Delete removes the key from the key-value data store.
		Delete(key []byte) error
	}
	Iteratee interface {
		// NewIterator creates an ascending iterator over the keys carrying the
		// given prefix, starting at prefix+start (or after, if it does not exist).
		NewIterator(prefix []byte, start []byte) Iterator

		// NewReverseIterator creates a descending iterator over the keys carrying
		// the given prefix, starting at prefix+start (or before, if it does not
		// exist). A nil start begins at the last key of the prefix.
		NewReverseIterator(prefix []byte, start []byte) Iterator
	}
	// Iterator walks a consistent view of a key range. The key and value
	// slices are only valid until the next call to Next.
	Iterator interface {
		Next() bool
		Error() error
		Key() []byte
		Value() []byte
		Release()
	}
	// Snapshot is an immutable point-in-time view of the data store.
	Snapshot interface {
		KeyValueReader
		Iteratee
		Release()
	}
	KeyValueStore interface {
		KeyValueReader
		KeyValueWriter
		Iteratee
		// NewSnapshot captures the current content of the data store. Writes
		// applied afterwards are never observed through the snapshot.
		NewSnapshot() (Snapshot, error)
		// NewBatch creates a write-only database that buffers changes to its host db
		// until a final write is called.
		NewBatch() Batcher
		Close() error
	}

	Batcher interface {
		KeyValueWriter

		// Write flushes any accumulated data to disk. All queued writes become
		// visible together.
		Write() error

		// Reset resets the batch for reuse.
		Reset()

		// ValueSize retrieves the amount of data queued up for writing.
		ValueSize() int
	}
)
