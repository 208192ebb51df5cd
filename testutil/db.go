package testutil

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/services/filestore"
	"github.com/mathvision/mdm/storage/database"
)

// NewConfig returns the test configuration with its storage rooted in a temporary directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	conf := core.NewTestConfig()
	conf.WorkDir = t.TempDir()
	conf.Storage.UploadDir = filepath.Join(conf.WorkDir, "uploads")
	conf.Database.Path = filepath.Join(conf.WorkDir, uuid.NewString()+".db")
	return conf
}

// PrepareDB opens a fresh, migrated sqlite database that is closed when the test ends.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()
	var c *core.Config
	if len(conf) > 0 {
		c = conf[0]
	} else {
		c = NewConfig(t)
	}

	db, err := database.Open(c)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, c); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

// PrepareStore returns a LocalStore rooted at conf's upload directory.
func PrepareStore(t *testing.T, conf *core.Config) *filestore.LocalStore {
	t.Helper()
	store, err := filestore.NewLocalStore(conf)
	if err != nil {
		t.Fatalf("PrepareStore(): %v", err)
	}
	return store
}
