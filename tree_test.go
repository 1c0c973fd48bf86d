package ninefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeCreateAndStat(t *testing.T) {
	tr := NewTree()
	st, err := tr.CreateFile("/", "a.txt", 0644, "bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", st.Name)
	assert.Zero(t, st.Mode&DMDIR)

	got, err := tr.Stat("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, st.Qid, got.Qid)
}

func TestTreeCreateDuplicateNameFails(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "a.txt", 0644, "bob", "bob")
	require.NoError(t, err)
	_, err = tr.CreateFile("/", "a.txt", 0644, "bob", "bob")
	assert.ErrorIs(t, err, ErrExists)
}

func TestTreeWalkStepAndDotDot(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateDir("/", "sub", 0755, "bob", "bob")
	require.NoError(t, err)

	path, stat, err := tr.WalkStep("/", "sub")
	require.NoError(t, err)
	assert.Equal(t, "/sub", path)
	assert.NotZero(t, stat.Mode&DMDIR)

	back, _, err := tr.WalkStep(path, "..")
	require.NoError(t, err)
	assert.Equal(t, "/", back)
}

func TestTreeWalkStepMissingFails(t *testing.T) {
	tr := NewTree()
	_, _, err := tr.WalkStep("/", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeReadWriteOffsets(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "f", 0644, "bob", "bob")
	require.NoError(t, err)

	n, err := tr.Write("/f", 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = tr.Write("/f", 10, []byte("!!"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 32)
	n, err = tr.Read("/f", 0, buf)
	require.NoError(t, err)
	want := append([]byte("hello"), make([]byte, 5)...)
	want = append(want, '!', '!')
	assert.Equal(t, want, buf[:n])
}

func TestTreeReadPastEOFIsEmpty(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "f", 0644, "bob", "bob")
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := tr.Read("/f", 1000, buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTreeReaddirStableOrder(t *testing.T) {
	tr := NewTree()
	for _, name := range []string{"c", "a", "b"} {
		_, err := tr.CreateFile("/", name, 0644, "bob", "bob")
		require.NoError(t, err)
	}
	buf, err := tr.ReadDir("/")
	require.NoError(t, err)

	var names []string
	for len(buf) > 0 {
		st, n, err := decodeStat(buf)
		require.NoError(t, err)
		names = append(names, st.Name)
		buf = buf[n:]
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestTreeRemove(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "f", 0644, "bob", "bob")
	require.NoError(t, err)
	require.NoError(t, tr.Remove("/f"))
	_, err = tr.Stat("/f")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeRemoveRootFails(t *testing.T) {
	tr := NewTree()
	err := tr.Remove("/")
	assert.Error(t, err)
}

func TestTreeWstatRename(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "old.txt", 0644, "bob", "bob")
	require.NoError(t, err)

	patch := Stat{Mode: DontTouch32, Mtime: DontTouch32, Length: DontTouch64, Name: "new.txt"}
	require.NoError(t, tr.Wstat("/old.txt", patch))

	_, err = tr.Stat("/old.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := tr.Stat("/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Name)
}

func TestTreeWstatRenameCollisionFails(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "a", 0644, "bob", "bob")
	require.NoError(t, err)
	_, err = tr.CreateFile("/", "b", 0644, "bob", "bob")
	require.NoError(t, err)

	patch := Stat{Mode: DontTouch32, Mtime: DontTouch32, Length: DontTouch64, Name: "b"}
	err = tr.Wstat("/a", patch)
	assert.ErrorIs(t, err, ErrExists)
}

func TestTreeWstatTruncate(t *testing.T) {
	tr := NewTree()
	_, err := tr.CreateFile("/", "f", 0644, "bob", "bob")
	require.NoError(t, err)
	_, err = tr.Write("/f", 0, []byte("0123456789"))
	require.NoError(t, err)

	patch := Stat{Mode: DontTouch32, Mtime: DontTouch32, Length: 4}
	require.NoError(t, tr.Wstat("/f", patch))

	got, err := tr.Stat("/f")
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.Length)
}

func TestTreeQidPathStableAcrossRename(t *testing.T) {
	tr := NewTree()
	st, err := tr.CreateFile("/", "a", 0644, "bob", "bob")
	require.NoError(t, err)

	patch := Stat{Mode: DontTouch32, Mtime: DontTouch32, Length: DontTouch64, Name: "b"}
	require.NoError(t, tr.Wstat("/a", patch))

	got, err := tr.Stat("/b")
	require.NoError(t, err)
	assert.Equal(t, st.Qid.Path, got.Qid.Path)
}
