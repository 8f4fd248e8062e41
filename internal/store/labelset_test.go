package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signify/internal/labels"
)

var greetings = []labels.Entry{
	{Index: 2, Label: "Yes"},
	{Index: 0, Label: "Hello"},
	{Index: 1, Label: "Thanks"},
	{Index: 2, Label: "No"},
}

func TestLabelRepository_Import(t *testing.T) {
	s := newTestStore(t)

	ls, err := s.Labels().Import("greetings", greetings)
	require.NoError(t, err)

	assert.NotEmpty(t, ls.ID)
	assert.Equal(t, 3, ls.Count)
	assert.False(t, ls.Active)

	got, err := s.Labels().Get(ls.ID)
	require.NoError(t, err)
	assert.Equal(t, "greetings", got.Name)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, []labels.Entry{
		{Index: 0, Label: "Hello"},
		{Index: 1, Label: "Thanks"},
		{Index: 2, Label: "No"},
	}, got.Entries)

	table, err := got.Table()
	require.NoError(t, err)
	assert.Equal(t, "Thanks", table.Lookup(1))
	assert.Equal(t, labels.Unknown, table.Lookup(3))
}

func TestLabelRepository_Import_Errors(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Labels().Import("bad", []labels.Entry{{Index: -1, Label: "x"}})
	assert.Error(t, err)

	_, err = s.Labels().Import("greetings", greetings)
	require.NoError(t, err)
	_, err = s.Labels().Import("greetings", greetings)
	assert.Error(t, err, "names are unique")

	sets, err := s.Labels().List()
	require.NoError(t, err)
	assert.Len(t, sets, 1, "failed imports leave nothing behind")
}

func TestLabelRepository_List(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Labels().Import("a", greetings[:1])
	require.NoError(t, err)
	_, err = s.Labels().Import("b", greetings)
	require.NoError(t, err)

	sets, err := s.Labels().List()
	require.NoError(t, err)
	require.Len(t, sets, 2)

	counts := map[string]int{}
	for _, ls := range sets {
		counts[ls.Name] = ls.Count
		assert.Nil(t, ls.Entries)
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 3}, counts)
}

func TestLabelRepository_Activate(t *testing.T) {
	s := newTestStore(t)
	repo := s.Labels()

	_, err := repo.Active()
	assert.ErrorIs(t, err, ErrNotFound)

	a, err := repo.Import("a", greetings[:1])
	require.NoError(t, err)
	b, err := repo.Import("b", greetings)
	require.NoError(t, err)

	require.NoError(t, repo.Activate(a.ID))
	require.NoError(t, repo.Activate(b.ID))

	active, err := repo.Active()
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)
	assert.Len(t, active.Entries, 3)

	got, err := repo.Get(a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, repo.Activate("missing"), ErrNotFound)
}

func TestLabelRepository_Delete(t *testing.T) {
	s := newTestStore(t)

	ls, err := s.Labels().Import("greetings", greetings)
	require.NoError(t, err)

	require.NoError(t, s.Labels().Delete(ls.ID))

	_, err = s.Labels().Get(ls.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM labels`).Scan(&n))
	assert.Zero(t, n, "entries cascade with their set")

	assert.ErrorIs(t, s.Labels().Delete(ls.ID), ErrNotFound)
}
