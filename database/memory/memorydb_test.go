package memory

import (
	"testing"

	"github.com/quake/godwoken/database"
	"github.com/quake/godwoken/database/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.KeyValueStore {
			return NewMemoryDB()
		})
	})
}
