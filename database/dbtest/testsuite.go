package dbtest

import (
	"bytes"
	"testing"

	"github.com/quake/godwoken/database"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() database.KeyValueStore) {
	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}

		if _, err := db.Get(key); err != database.ErrDatabaseNotFound {
			t.Errorf("wrong error: %v", err)
		}

		value := []byte("hello world")
		if err := db.Set(key, value); err != nil {
			t.Error(err)
		}

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if !got {
			t.Errorf("wrong value: %t", got)
		}

		if got, err := db.Get(key); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, value) {
			t.Errorf("wrong value: %q", got)
		}

		if err := db.Delete(key); err != nil {
			t.Error(err)
		}

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			if err := b.Set([]byte(k), nil); err != nil {
				t.Fatal(err)
			}
		}

		if has, err := db.Has([]byte("1")); err != nil {
			t.Fatal(err)
		} else if has {
			t.Error("db contains element before batch write")
		}

		if err := b.Write(); err != nil {
			t.Fatal(err)
		}

		b.Reset()

		// Mix writes and deletes in batch
		b.Set([]byte("5"), nil)
		b.Delete([]byte("1"))
		b.Set([]byte("6"), nil)
		b.Delete([]byte("3"))
		b.Set([]byte("3"), []byte("test3"))

		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		type obj struct {
			Key   []byte
			Val   []byte
			Exist bool
		}
		testObjs := []obj{
			{
				Key:   []byte("1"),
				Exist: false,
			},
			{
				Key:   []byte("2"),
				Val:   nil,
				Exist: true,
			},
			{
				Key:   []byte("3"),
				Val:   []byte("test3"),
				Exist: true,
			},
			{
				Key:   []byte("4"),
				Val:   nil,
				Exist: true,
			},
			{
				Key:   []byte("5"),
				Val:   nil,
				Exist: true,
			},
			{
				Key:   []byte("6"),
				Val:   nil,
				Exist: true,
			},
		}
		{
			for _, testObj := range testObjs {
				if testObj.Exist {
					if got, err := db.Get(testObj.Key); err != nil {
						t.Error(err)
					} else if !bytes.Equal(got, testObj.Val) {
						t.Errorf("wrong value: %q", got)
					}
				} else {
					if got, err := db.Has(testObj.Key); err != nil {
						t.Error(err)
					} else if got {
						t.Errorf("wrong value: %t", got)
					}
				}
			}
		}
	})

	t.Run("Iterator", func(t *testing.T) {
		db := New()
		defer db.Close()

		for _, k := range []string{"a1", "a2", "a3", "b1", "b2"} {
			if err := db.Set([]byte(k), []byte("v"+k)); err != nil {
				t.Fatal(err)
			}
		}

		tests := []struct {
			name    string
			prefix  string
			start   []byte
			reverse bool
			want    []string
		}{
			{name: "all", want: []string{"a1", "a2", "a3", "b1", "b2"}},
			{name: "prefix", prefix: "a", want: []string{"a1", "a2", "a3"}},
			{name: "start", prefix: "a", start: []byte("2"), want: []string{"a2", "a3"}},
			{name: "start between", start: []byte("a25"), want: []string{"a3", "b1", "b2"}},
			{name: "reverse", prefix: "b", reverse: true, want: []string{"b2", "b1"}},
			{name: "reverse start", prefix: "a", start: []byte("2"), reverse: true, want: []string{"a2", "a1"}},
			{name: "reverse start between", start: []byte("a25"), reverse: true, want: []string{"a2", "a1"}},
			{name: "reverse start past end", start: []byte("c"), reverse: true, want: []string{"b2", "b1", "a3", "a2", "a1"}},
			{name: "empty", prefix: "c", want: nil},
		}
		for _, tt := range tests {
			var it database.Iterator
			if tt.reverse {
				it = db.NewReverseIterator([]byte(tt.prefix), tt.start)
			} else {
				it = db.NewIterator([]byte(tt.prefix), tt.start)
			}
			var got []string
			for it.Next() {
				got = append(got, string(it.Key()))
				if want := "v" + string(it.Key()); string(it.Value()) != want {
					t.Errorf("%s: wrong value for %q: %q", tt.name, it.Key(), it.Value())
				}
			}
			if err := it.Error(); err != nil {
				t.Errorf("%s: %v", tt.name, err)
			}
			it.Release()
			if len(got) != len(tt.want) {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
				continue
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
					break
				}
			}
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
			t.Fatal(err)
		}
		snap, err := db.NewSnapshot()
		if err != nil {
			t.Fatal(err)
		}
		defer snap.Release()

		if err := db.Set([]byte("k1"), []byte("v2")); err != nil {
			t.Fatal(err)
		}
		if err := db.Set([]byte("k2"), []byte("v2")); err != nil {
			t.Fatal(err)
		}

		if got, err := snap.Get([]byte("k1")); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, []byte("v1")) {
			t.Errorf("snapshot observed a later write: %q", got)
		}
		if has, err := snap.Has([]byte("k2")); err != nil {
			t.Error(err)
		} else if has {
			t.Error("snapshot observed a later insert")
		}
		if _, err := snap.Get([]byte("k2")); err != database.ErrDatabaseNotFound {
			t.Errorf("wrong error: %v", err)
		}

		it := snap.NewIterator(nil, nil)
		count := 0
		for it.Next() {
			count++
		}
		it.Release()
		if count != 1 {
			t.Errorf("snapshot iterator saw %d entries, want 1", count)
		}
	})

	t.Run("SnapshotRelease", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
			t.Fatal(err)
		}
		snap, err := db.NewSnapshot()
		if err != nil {
			t.Fatal(err)
		}
		snap.Release()

		if _, err := snap.Get([]byte("k1")); err != database.ErrSnapshotReleased {
			t.Errorf("wrong error: %v", err)
		}
		if _, err := snap.Has([]byte("k1")); err != database.ErrSnapshotReleased {
			t.Errorf("wrong error: %v", err)
		}
	})
}
