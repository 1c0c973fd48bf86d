package ninefs

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialServer wires a Session directly to a Conn over an in-memory pipe,
// without needing a real listener.
func dialServer(t *testing.T) *Session {
	t.Helper()
	client, server := net.Pipe()

	tree := NewTree()
	log := NewLogger(false)
	c := newConn(server, tree, log, nil)
	go c.serve()

	t.Cleanup(func() { client.Close() })
	return &Session{conn: client, msize: ServerMaxMsize}
}

func mustVersionAttach(t *testing.T, s *Session, fid uint32) Qid {
	t.Helper()
	_, err := s.Version(ServerMaxMsize)
	require.NoError(t, err)
	qid, err := s.Attach(fid, "bob", "")
	require.NoError(t, err)
	return qid
}

func TestServerHandshakeAndAttach(t *testing.T) {
	s := dialServer(t)
	qid := mustVersionAttach(t, s, 1)
	assert.NotZero(t, qid.Type&QTDIR|qid.Type)
}

func TestServerRequestBeforeVersionFails(t *testing.T) {
	s := dialServer(t)
	_, err := s.Attach(1, "bob", "")
	assert.Error(t, err)
}

func TestServerCreateWriteReadRoundTrip(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)

	_, _, err := s.Create(1, "greeting.txt", 0644, OWRITE)
	require.NoError(t, err)

	n, err := s.Write(1, 0, []byte("hello, 9p"))
	require.NoError(t, err)
	assert.EqualValues(t, len("hello, 9p"), n)

	require.NoError(t, s.Clunk(1))

	mustVersionAttach(t, s, 2)
	qids, err := s.Walk(2, 3, []string{"greeting.txt"})
	require.NoError(t, err)
	require.Len(t, qids, 1)

	_, _, err = s.Open(3, OREAD)
	require.NoError(t, err)
	data, err := s.Read(3, 0, 128)
	require.NoError(t, err)
	assert.Equal(t, "hello, 9p", string(data))
}

func TestServerWalkUnknownNameFails(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	_, err := s.Walk(1, 2, []string{"nope"})
	assert.Error(t, err)
}

func TestServerUnknownFidFails(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	_, err := s.Stat(99)
	assert.Error(t, err)
}

func TestServerWstatRename(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	_, _, err := s.Create(1, "a.txt", 0644, OWRITE)
	require.NoError(t, err)

	patch := Stat{Mode: DontTouch32, Mtime: DontTouch32, Length: DontTouch64, Name: "b.txt"}
	require.NoError(t, s.Wstat(1, patch))

	st, err := s.Stat(1)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", st.Name)
}

func TestServerRemoveClunksFid(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	_, _, err := s.Create(1, "doomed.txt", 0644, OWRITE)
	require.NoError(t, err)
	require.NoError(t, s.Remove(1))

	_, err = s.Stat(1)
	assert.Error(t, err)
}

func TestServerCloneSharesOpenMode(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	_, _, err := s.Create(1, "f.txt", 0644, OWRITE)
	require.NoError(t, err)
	_, err = s.Write(1, 0, []byte("abc"))
	require.NoError(t, err)

	require.NoError(t, s.Clone(1, 2))
	n, err := s.Write(2, 3, []byte("def"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestServerFlushAlwaysSucceeds(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	assert.NoError(t, s.Flush(0))
}

func TestServerListDirectory(t *testing.T) {
	s := dialServer(t)
	mustVersionAttach(t, s, 1)
	for _, name := range []string{"one", "two"} {
		_, _, err := s.Create(1, name, 0644, OWRITE)
		require.NoError(t, err)
		require.NoError(t, s.Clunk(1))
		mustVersionAttach(t, s, 1)
	}

	_, _, err := s.Open(1, OREAD)
	require.NoError(t, err)
	entries, err := s.ReadDir(1, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
