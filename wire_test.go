package ninefs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQidRoundTrip(t *testing.T) {
	q := Qid{Type: QTDIR, Version: 7, Path: 42}
	buf := make([]byte, 13)
	q.encode(buf)
	got, n, err := decodeQid(buf)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, q, got)
}

func TestStatRoundTrip(t *testing.T) {
	s := Stat{
		Type: 0, Dev: 0,
		Qid:    Qid{Type: 0, Version: 1, Path: 99},
		Mode:   0644,
		Atime:  1000, Mtime: 2000,
		Length: 128,
		Name:   "notes.txt", Uid: "alice", Gid: "alice", Muid: "alice",
	}
	buf := marshalStat(s)
	got, n, err := decodeStat(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, s, got)
}

func TestDecodeStatRejectsTruncated(t *testing.T) {
	s := Stat{Name: "x", Uid: "a", Gid: "b", Muid: "a"}
	buf := marshalStat(s)
	_, _, err := decodeStat(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := msgTversion{Msize: 8192, Version: "9P2000"}.encode()
	require.NoError(t, WriteFrame(&buf, Tversion, 0xBEEF, body))

	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, Tversion, f.Type)
	assert.EqualValues(t, 0xBEEF, f.Tag)
	assert.Equal(t, body, f.Body)
}

func TestReadFrameRejectsShortHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{3, 0, 0, 0})
	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWstatSentinelsRoundTrip(t *testing.T) {
	s := Stat{
		Mode: DontTouch32, Mtime: DontTouch32, Length: DontTouch64,
		Name: "", Uid: "", Gid: "", Muid: "",
	}
	buf := marshalStat(s)
	got, _, err := decodeStat(buf)
	require.NoError(t, err)
	assert.Equal(t, DontTouch32, got.Mode)
	assert.Equal(t, DontTouch64, got.Length)
}

func TestMessageName(t *testing.T) {
	assert.Equal(t, "Tversion", MessageName(Tversion))
	assert.Equal(t, "Tclone", MessageName(Tclone))
	assert.Equal(t, "unknown(250)", MessageName(250))
}

func TestTwalkRoundTripMultipleNames(t *testing.T) {
	m := msgTwalk{Fid: 1, Newfid: 2, Wname: []string{"a", "bb", "ccc"}}
	got, err := decodeTwalk(m.encode())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestTwriteRoundTrip(t *testing.T) {
	m := msgTwrite{Fid: 9, Offset: 512, Data: []byte("hello world")}
	got, err := decodeTwrite(m.encode())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
