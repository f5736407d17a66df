// Package testutil provides test helpers for building dice stores on temporary directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dice/internal/dice"
	"github.com/cory-johannsen/dice/internal/storage/filestore"
)

// DiceStore wraps a file-backed die store rooted at a per-test temporary directory.
type DiceStore struct {
	Root  string
	Store *filestore.Store[dice.Die]
	Repo  *dice.Repository
}

// NewDiceStore creates an empty die store and repository for t. Store and repository log
// through t at debug level.
//
// Postcondition: Root exists and is removed when the test ends.
func NewDiceStore(t *testing.T) *DiceStore {
	t.Helper()
	root := t.TempDir()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
	store := filestore.New[dice.Die](root, dice.Codec{}, logger)
	return &DiceStore{
		Root:  root,
		Store: store,
		Repo:  dice.NewRepository(store, logger),
	}
}

// Create stores a new die or fails the test.
func (s *DiceStore) Create(t *testing.T, name string, faces int) dice.Die {
	t.Helper()
	d, err := s.Repo.Create(name, faces)
	if err != nil {
		t.Fatalf("creating die %q: %v", name, err)
	}
	return d
}

// Find loads an existing die or fails the test.
func (s *DiceStore) Find(t *testing.T, name string) dice.Die {
	t.Helper()
	d, ok, err := s.Repo.Find(name)
	if err != nil {
		t.Fatalf("finding die %q: %v", name, err)
	}
	if !ok {
		t.Fatalf("die %q does not exist", name)
	}
	return d
}

// WriteRaw writes data as the record file of the die called name, bypassing the codec.
func (s *DiceStore) WriteRaw(t *testing.T, name string, data []byte) {
	t.Helper()
	dir := filepath.Join(s.Root, "dice")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o600); err != nil {
		t.Fatalf("writing raw record %q: %v", name, err)
	}
}
