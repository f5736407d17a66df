package dice_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/dice/internal/dice"
	"github.com/cory-johannsen/dice/internal/storage/filestore"
	"github.com/cory-johannsen/dice/internal/testutil"
)

func newRepository(t *testing.T) (*dice.Repository, *testutil.DiceStore) {
	t.Helper()
	s := testutil.NewDiceStore(t)
	return s.Repo, s
}

func mustCreate(t *testing.T, repo *dice.Repository, name string, faces int) dice.Die {
	t.Helper()
	d, err := repo.Create(name, faces)
	require.NoError(t, err)
	return d
}

func TestListAll_Empty(t *testing.T) {
	repo, _ := newRepository(t)
	all, err := repo.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_WritesYAMLFile(t *testing.T) {
	repo, s := newRepository(t)
	mustCreate(t, repo, "d6", 6)

	data, err := os.ReadFile(filepath.Join(s.Root, "dice", "d6.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "name: d6\nfaces: 6\nthrows: [0, 0, 0, 0, 0, 0]\n", string(data))
}

func TestCreate_Duplicate(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)
	_, err := repo.RecordThrow("d6", 2)
	require.NoError(t, err)

	_, err = repo.Create("d6", 20)
	assert.ErrorIs(t, err, dice.ErrAlreadyExists)

	d, ok, err := repo.Find("d6")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6, d.Faces, "existing die must be untouched")
	assert.Equal(t, 1, d.TotalThrows())
}

func TestCreate_InvalidInput(t *testing.T) {
	repo, _ := newRepository(t)
	_, err := repo.Create("../escape", 6)
	assert.ErrorIs(t, err, dice.ErrInvalidName)
	_, err = repo.Create("d0", 0)
	assert.ErrorIs(t, err, dice.ErrInvalidFaces)
}

func TestCreate_LineBreakNameKeepsListing(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)
	for _, name := range []string{"\n", "\na", "a\r\n"} {
		_, err := repo.Create(name, 6)
		assert.ErrorIs(t, err, dice.ErrInvalidName, "name %q", name)
	}

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "d6", all[0].Name)
}

func TestFind_Absent(t *testing.T) {
	repo, _ := newRepository(t)
	_, ok, err := repo.Find("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAll_SortedByName(t *testing.T) {
	repo, _ := newRepository(t)
	for _, name := range []string{"zebra", "alpha", "mid"} {
		mustCreate(t, repo, name, 6)
	}
	all, err := repo.ListAll()
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, d := range all {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}

func TestRecordThrow_UnknownDie(t *testing.T) {
	repo, _ := newRepository(t)
	_, err := repo.RecordThrow("ghost", 1)
	assert.ErrorIs(t, err, dice.ErrUnknownDie)
}

func TestRecordThrow_InvalidValueIgnored(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)
	d, err := repo.RecordThrow("d6", 9)
	require.NoError(t, err)
	assert.Equal(t, 0, d.TotalThrows())
}

func TestRecordThrow_CorruptRecord(t *testing.T) {
	repo, s := newRepository(t)
	s.WriteRaw(t, "bad", []byte("name: bad\nfaces: 2\nthrows: [1]\n"))

	_, err := repo.RecordThrow("bad", 1)
	assert.ErrorIs(t, err, filestore.ErrCorruptData)
	_, err = repo.ListAll()
	assert.ErrorIs(t, err, filestore.ErrCorruptData)
}

// TestRepository_ScenarioD6 walks the create, list, throw, reject sequence.
func TestRepository_ScenarioD6(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)

	all, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "d6", all[0].Name)
	assert.Equal(t, 6, all[0].Faces)
	assert.Equal(t, 0, all[0].TotalThrows())

	require.NoError(t, repo.ThrowBatch([]dice.Throw{{Name: "d6", Value: 3}, {Name: "d6", Value: 3}, {Name: "d6", Value: 5}}))
	d, _, err := repo.Find("d6")
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalThrows())
	avg, err := d.Average()
	require.NoError(t, err)
	assert.InDelta(t, 3.6667, avg, 1e-4)

	err = repo.ThrowBatch([]dice.Throw{{Name: "d6", Value: 7}})
	assert.ErrorIs(t, err, dice.ErrInvalidValue)
	d, _, err = repo.Find("d6")
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalThrows())
}

func TestThrowBatch_RejectsWholeBatch(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)
	mustCreate(t, repo, "d20", 20)
	require.NoError(t, repo.ThrowBatch([]dice.Throw{{Name: "d6", Value: 1}}))
	before, _, err := repo.Find("d6")
	require.NoError(t, err)

	throws, err := dice.ParseThrows([]string{"d6", "3", "d6", "9"})
	require.NoError(t, err)
	err = repo.ThrowBatch(throws)
	assert.ErrorIs(t, err, dice.ErrInvalidValue)

	err = repo.ThrowBatch([]dice.Throw{{Name: "d20", Value: 20}, {Name: "ghost", Value: 1}})
	assert.ErrorIs(t, err, dice.ErrUnknownDie)

	after, _, err := repo.Find("d6")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	d20, _, err := repo.Find("d20")
	require.NoError(t, err)
	assert.Equal(t, 0, d20.TotalThrows(), "no throw of a rejected batch may apply")
}

func TestThrowBatch_AppliesAll(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)
	mustCreate(t, repo, "d20", 20)

	throws, err := dice.ParseThrows([]string{"d6", "6", "d20", "20", "d6", "1"})
	require.NoError(t, err)
	require.NoError(t, repo.ThrowBatch(throws))

	d6, _, err := repo.Find("d6")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 1}, d6.Histogram)
	d20, _, err := repo.Find("d20")
	require.NoError(t, err)
	assert.Equal(t, 1, d20.Histogram[19])
}

func TestParseThrows(t *testing.T) {
	throws, err := dice.ParseThrows([]string{"a", "1", "b", "12"})
	require.NoError(t, err)
	assert.Equal(t, []dice.Throw{{Name: "a", Value: 1}, {Name: "b", Value: 12}}, throws)

	_, err = dice.ParseThrows([]string{"a", "1", "b"})
	assert.ErrorIs(t, err, dice.ErrUnpairedArgs)

	for _, bad := range []string{"x", "-1", "1.5", "", " 3", "99999999999999999999999"} {
		_, err = dice.ParseThrows([]string{"a", bad})
		assert.ErrorIs(t, err, dice.ErrInvalidValue, "value %q", bad)
	}
}

func TestCreate_ConcurrentSingleWinner(t *testing.T) {
	repo, _ := newRepository(t)
	results := make([]error, 8)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			_, results[i] = repo.Create("fudge", 6)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	created := 0
	for _, err := range results {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, dice.ErrAlreadyExists), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	all, err := repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordThrow_ConcurrentNoLostUpdates(t *testing.T) {
	repo, _ := newRepository(t)
	mustCreate(t, repo, "d6", 6)

	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := repo.RecordThrow("d6", 4)
			return err
		})
	}
	require.NoError(t, g.Wait())

	d, _, err := repo.Find("d6")
	require.NoError(t, err)
	assert.Equal(t, n, d.Histogram[3])
	assert.Equal(t, n, d.TotalThrows())
}
