// Package ninefs implements a 9P2000 file server keeping all files in
// memory, plus the framing codec and client session used to drive one.
//
// A 9P2000 server is an agent that provides a hierarchical file tree that
// may be accessed by processes over a stream connection. A client projects
// the tree into its local namespace by walking names into numbered fids,
// then reads, writes, creates, removes, and re-stats through those fids.
//
// This file holds the wire codec: frame I/O, little-endian primitive and
// composite encoding, and the 9P2000 message taxonomy (plus the Tclone/
// Rclone extension at codes 128/129). There is no off-the-shelf Go library
// in reach that speaks this extension, so — in the same spirit as the
// hand-rolled, dependency-free codecs elsewhere in the 9P Go ecosystem —
// it is built directly on encoding/binary rather than wrapped around a
// third-party 9P client library.
package ninefs

import (
	"encoding/binary"
	"io"
	"strconv"
)

// Message type codes. Fixed, part of the wire contract.
const (
	Tversion uint8 = 100
	Rversion uint8 = 101
	Tauth    uint8 = 102
	Rauth    uint8 = 103
	Tattach  uint8 = 104
	Rattach  uint8 = 105
	// Terror (106) is reserved and never appears on the wire.
	Rerror  uint8 = 107
	Tflush  uint8 = 108
	Rflush  uint8 = 109
	Twalk   uint8 = 110
	Rwalk   uint8 = 111
	Topen   uint8 = 112
	Ropen   uint8 = 113
	Tcreate uint8 = 114
	Rcreate uint8 = 115
	Tread   uint8 = 116
	Rread   uint8 = 117
	Twrite  uint8 = 118
	Rwrite  uint8 = 119
	Tclunk  uint8 = 120
	Rclunk  uint8 = 121
	Tremove uint8 = 122
	Rremove uint8 = 123
	Tstat   uint8 = 124
	Rstat   uint8 = 125
	Twstat  uint8 = 126
	Rwstat  uint8 = 127

	// Tclone/Rclone is a local extension: duplicate a fid under a new
	// number, preserving path, qid, and open mode. Not part of standard
	// 9P2000, but bit-exact at these codes for this server.
	Tclone uint8 = 128
	Rclone uint8 = 129
)

var msgNames = map[uint8]string{
	Tversion: "Tversion", Rversion: "Rversion",
	Tauth: "Tauth", Rauth: "Rauth",
	Tattach: "Tattach", Rattach: "Rattach",
	Rerror: "Rerror",
	Tflush: "Tflush", Rflush: "Rflush",
	Twalk: "Twalk", Rwalk: "Rwalk",
	Topen: "Topen", Ropen: "Ropen",
	Tcreate: "Tcreate", Rcreate: "Rcreate",
	Tread: "Tread", Rread: "Rread",
	Twrite: "Twrite", Rwrite: "Rwrite",
	Tclunk: "Tclunk", Rclunk: "Rclunk",
	Tremove: "Tremove", Rremove: "Rremove",
	Tstat: "Tstat", Rstat: "Rstat",
	Twstat: "Twstat", Rwstat: "Rwstat",
	Tclone: "Tclone", Rclone: "Rclone",
}

// MessageName returns the human-readable name of a message type code, or
// "unknown(N)" if the code isn't part of the taxonomy.
func MessageName(t uint8) string {
	if name, ok := msgNames[t]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// Open-mode constants.
const (
	OREAD   uint8 = 0
	OWRITE  uint8 = 1
	ORDWR   uint8 = 2
	OEXEC   uint8 = 3
	omask   uint8 = 3
	OTRUNC  uint8 = 0x10
	ORCLOSE uint8 = 0x40
)

// Qid type and Stat mode bits.
const (
	QTDIR uint8   = 0x80
	DMDIR uint32  = 0x80000000
	NOFID uint32  = 1<<32 - 1
	NOTAG uint16  = 1<<16 - 1
)

// ServerMaxMsize is the reference server's maximum negotiable msize.
const ServerMaxMsize uint32 = 128 * 1024

// IOUnit is the chunk size Session and the demonstration CLI use when
// splitting a read/write into multiple Tread/Twrite calls. Ropen/Rcreate
// themselves always report iounit 0 (unspecified), per protocol.
const IOUnit uint32 = 128 * 1024

// Qid identifies a file across renames: type, version, and path. Fixed
// 13-byte wire form.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

func (q Qid) encode(buf []byte) int {
	buf[0] = q.Type
	binary.LittleEndian.PutUint32(buf[1:5], q.Version)
	binary.LittleEndian.PutUint64(buf[5:13], q.Path)
	return 13
}

func decodeQid(buf []byte) (Qid, int, error) {
	if len(buf) < 13 {
		return Qid{}, 0, ErrMalformed
	}
	return Qid{
		Type:    buf[0],
		Version: binary.LittleEndian.Uint32(buf[1:5]),
		Path:    binary.LittleEndian.Uint64(buf[5:13]),
	}, 13, nil
}

// Stat is the packed metadata record. Sentinel value DontTouch32/64 in a
// numeric field of a Twstat payload means "leave this field unchanged".
type Stat struct {
	Type   uint16
	Dev    uint32
	Qid    Qid
	Mode   uint32
	Atime  uint32
	Mtime  uint32
	Length uint64
	Name   string
	Uid    string
	Gid    string
	Muid   string
}

// Sentinels for "do not change" in a Twstat record.
const (
	DontTouch32 uint32 = 1<<32 - 1
	DontTouch64 uint64 = 1<<64 - 1
)

func putString(buf []byte, s string) int {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(s)))
	copy(buf[2:], s)
	return 2 + len(s)
}

func stringSize(s string) int { return 2 + len(s) }

func getString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, ErrMalformed
	}
	n := int(binary.LittleEndian.Uint16(buf[0:2]))
	if len(buf) < 2+n {
		return "", 0, ErrMalformed
	}
	return string(buf[2 : 2+n]), 2 + n, nil
}

// statBodySize returns the encoded size of s, excluding the leading
// u16 size field that wraps it on the wire.
func statBodySize(s Stat) int {
	return 2 + 4 + 13 + 4 + 4 + 4 + 8 +
		stringSize(s.Name) + stringSize(s.Uid) + stringSize(s.Gid) + stringSize(s.Muid)
}

// encodeStat appends the u16-size-prefixed Stat record to buf and returns
// the number of bytes written.
func encodeStat(buf []byte, s Stat) int {
	body := statBodySize(s)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(body))
	n := 2
	binary.LittleEndian.PutUint16(buf[n:n+2], s.Type)
	n += 2
	binary.LittleEndian.PutUint32(buf[n:n+4], s.Dev)
	n += 4
	n += s.Qid.encode(buf[n:])
	binary.LittleEndian.PutUint32(buf[n:n+4], s.Mode)
	n += 4
	binary.LittleEndian.PutUint32(buf[n:n+4], s.Atime)
	n += 4
	binary.LittleEndian.PutUint32(buf[n:n+4], s.Mtime)
	n += 4
	binary.LittleEndian.PutUint64(buf[n:n+8], s.Length)
	n += 8
	n += putString(buf[n:], s.Name)
	n += putString(buf[n:], s.Uid)
	n += putString(buf[n:], s.Gid)
	n += putString(buf[n:], s.Muid)
	return n
}

// marshalStat returns the Stat as a freestanding, size-prefixed byte slice.
func marshalStat(s Stat) []byte {
	buf := make([]byte, 2+statBodySize(s))
	n := encodeStat(buf, s)
	return buf[:n]
}

// decodeStat parses a size-prefixed Stat record from the front of buf,
// returning the record and the number of bytes it consumed.
func decodeStat(buf []byte) (Stat, int, error) {
	if len(buf) < 2 {
		return Stat{}, 0, ErrMalformed
	}
	size := int(binary.LittleEndian.Uint16(buf[0:2]))
	if len(buf) < 2+size {
		return Stat{}, 0, ErrMalformed
	}
	if size < statBodySize(Stat{}) {
		return Stat{}, 0, ErrMalformed
	}

	var s Stat
	n := 2
	s.Type = binary.LittleEndian.Uint16(buf[n : n+2])
	n += 2
	s.Dev = binary.LittleEndian.Uint32(buf[n : n+4])
	n += 4
	qid, qn, err := decodeQid(buf[n:])
	if err != nil {
		return Stat{}, 0, err
	}
	s.Qid = qid
	n += qn
	s.Mode = binary.LittleEndian.Uint32(buf[n : n+4])
	n += 4
	s.Atime = binary.LittleEndian.Uint32(buf[n : n+4])
	n += 4
	s.Mtime = binary.LittleEndian.Uint32(buf[n : n+4])
	n += 4
	s.Length = binary.LittleEndian.Uint64(buf[n : n+8])
	n += 8

	var sn int
	s.Name, sn, err = getString(buf[n:])
	if err != nil {
		return Stat{}, 0, err
	}
	n += sn
	s.Uid, sn, err = getString(buf[n:])
	if err != nil {
		return Stat{}, 0, err
	}
	n += sn
	s.Gid, sn, err = getString(buf[n:])
	if err != nil {
		return Stat{}, 0, err
	}
	n += sn
	s.Muid, sn, err = getString(buf[n:])
	if err != nil {
		return Stat{}, 0, err
	}
	n += sn

	if n != 2+size {
		return Stat{}, 0, ErrMalformed
	}
	return s, n, nil
}

// Frame is one decoded 9P message: the header fields plus the undecoded
// body. size == 7 + len(Body) is the wire invariant.
type Frame struct {
	Type uint8
	Tag  uint16
	Body []byte
}

const frameHeaderSize = 7

// ReadFrame consumes exactly the bytes of one message from r: a 4-byte
// little-endian size, then type, tag, and size-7 bytes of body. A short
// size fails with ErrMalformed; a short read fails with the underlying
// io error (io.ErrUnexpectedEOF on a partial frame, io.EOF at a message
// boundary).
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size < frameHeaderSize {
		return Frame{}, wrapf(ErrMalformed, "header too small: %d", size)
	}

	rest := make([]byte, size-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}

	return Frame{
		Type: rest[0],
		Tag:  binary.LittleEndian.Uint16(rest[1:3]),
		Body: rest[3:],
	}, nil
}

// WriteFrame writes a complete framed message: size is computed from
// len(body) so callers never pre-compute it.
func WriteFrame(w io.Writer, typ uint8, tag uint16, body []byte) error {
	size := uint32(frameHeaderSize + len(body))
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], size)
	buf[4] = typ
	binary.LittleEndian.PutUint16(buf[5:7], tag)
	copy(buf[7:], body)
	_, err := w.Write(buf)
	return err
}
