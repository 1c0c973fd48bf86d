package ninefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFidTableAttachLookup(t *testing.T) {
	ft := NewFidTable()
	require.NoError(t, ft.Attach(1, fidState{path: "/"}))
	got, err := ft.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "/", got.path)
}

func TestFidTableAttachDuplicateFails(t *testing.T) {
	ft := NewFidTable()
	require.NoError(t, ft.Attach(1, fidState{path: "/"}))
	err := ft.Attach(1, fidState{path: "/other"})
	assert.ErrorIs(t, err, ErrDuplicateFid)
}

func TestFidTableLookupUnknownFails(t *testing.T) {
	ft := NewFidTable()
	_, err := ft.Lookup(99)
	assert.ErrorIs(t, err, ErrUnknownFid)
}

func TestFidTableMutate(t *testing.T) {
	ft := NewFidTable()
	require.NoError(t, ft.Attach(1, fidState{path: "/a"}))
	mode := OREAD
	require.NoError(t, ft.Mutate(1, func(s fidState) (fidState, error) {
		s.openMode = &mode
		return s, nil
	}))
	got, err := ft.Lookup(1)
	require.NoError(t, err)
	assert.True(t, got.isOpen())
}

func TestFidTableReleaseAndReuse(t *testing.T) {
	ft := NewFidTable()
	require.NoError(t, ft.Attach(1, fidState{path: "/"}))
	assert.True(t, ft.Release(1))
	assert.False(t, ft.Release(1))
	require.NoError(t, ft.Attach(1, fidState{path: "/again"}))
}

func TestFidTableReleaseAll(t *testing.T) {
	ft := NewFidTable()
	require.NoError(t, ft.Attach(1, fidState{path: "/"}))
	require.NoError(t, ft.Attach(2, fidState{path: "/x"}))
	ft.ReleaseAll()
	_, err := ft.Lookup(1)
	assert.Error(t, err)
	_, err = ft.Lookup(2)
	assert.Error(t, err)
}
