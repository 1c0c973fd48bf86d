package ninefs

import (
	"net"
	"sync"

	"github.com/pkg/errors"
)

// Session is a blocking 9P2000 client over a single connection. Calls are
// serialized internally (one in flight at a time), matching the server's
// own no-pipelining contract and keeping tag allocation trivial.
type Session struct {
	mu   sync.Mutex
	conn net.Conn
	tag  uint16
	msize uint32
}

// Dial connects to a 9P server and returns an un-negotiated Session;
// call Version before anything else.
func Dial(network, addr string) (*Session, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, msize: ServerMaxMsize}, nil
}

// Close closes the underlying connection.
func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) nextTag() uint16 {
	t := s.tag
	s.tag++
	if s.tag == NOTAG {
		s.tag = 0
	}
	return t
}

// RawCall sends a request frame and returns the matching reply frame, or
// an error built from Rerror's Ename if the server rejected the request.
// It is the escape hatch the typed helpers below are built on.
func (s *Session) RawCall(typ uint8, body []byte) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.nextTag()
	if err := WriteFrame(s.conn, typ, tag, body); err != nil {
		return Frame{}, err
	}
	resp, err := ReadFrame(s.conn)
	if err != nil {
		return Frame{}, err
	}
	if resp.Tag != tag {
		return Frame{}, wrapf(ErrMalformed, "tag mismatch: sent %d got %d", tag, resp.Tag)
	}
	if resp.Type == Rerror {
		re, err := decodeRerror(resp.Body)
		if err != nil {
			return Frame{}, err
		}
		return Frame{}, errors.New(re.Ename)
	}
	return resp, nil
}

// Version negotiates msize and protocol version, resetting the server's
// fid table for this connection.
func (s *Session) Version(msize uint32) (uint32, error) {
	resp, err := s.RawCall(Tversion, msgTversion{Msize: msize, Version: "9P2000"}.encode())
	if err != nil {
		return 0, err
	}
	rv, err := decodeRversion(resp.Body)
	if err != nil {
		return 0, err
	}
	s.msize = rv.Msize
	return rv.Msize, nil
}

// Attach registers fid at the tree root.
func (s *Session) Attach(fid uint32, uname, aname string) (Qid, error) {
	resp, err := s.RawCall(Tattach, msgTattach{Fid: fid, Afid: NOFID, Uname: uname, Aname: aname}.encode())
	if err != nil {
		return Qid{}, err
	}
	ra, err := decodeRattach(resp.Body)
	return ra.Qid, err
}

// Walk resolves names from fid and binds the result to newfid.
func (s *Session) Walk(fid, newfid uint32, names []string) ([]Qid, error) {
	resp, err := s.RawCall(Twalk, msgTwalk{Fid: fid, Newfid: newfid, Wname: names}.encode())
	if err != nil {
		return nil, err
	}
	rw, err := decodeRwalk(resp.Body)
	return rw.Wqid, err
}

// Open opens fid with the given mode.
func (s *Session) Open(fid uint32, mode uint8) (Qid, uint32, error) {
	resp, err := s.RawCall(Topen, msgTopen{Fid: fid, Mode: mode}.encode())
	if err != nil {
		return Qid{}, 0, err
	}
	ro, err := decodeRopen(resp.Body)
	return ro.Qid, ro.Iounit, err
}

// Create creates name under the directory fid and turns fid into it.
func (s *Session) Create(fid uint32, name string, perm uint32, mode uint8) (Qid, uint32, error) {
	resp, err := s.RawCall(Tcreate, msgTcreate{Fid: fid, Name: name, Perm: perm, Mode: mode}.encode())
	if err != nil {
		return Qid{}, 0, err
	}
	rc, err := decodeRcreate(resp.Body)
	return rc.Qid, rc.Iounit, err
}

// Read reads up to count bytes from fid at offset.
func (s *Session) Read(fid uint32, offset uint64, count uint32) ([]byte, error) {
	resp, err := s.RawCall(Tread, msgTread{Fid: fid, Offset: offset, Count: count}.encode())
	if err != nil {
		return nil, err
	}
	rr, err := decodeRread(resp.Body)
	return rr.Data, err
}

// Write writes data to fid at offset, returning the number of bytes
// accepted.
func (s *Session) Write(fid uint32, offset uint64, data []byte) (uint32, error) {
	resp, err := s.RawCall(Twrite, msgTwrite{Fid: fid, Offset: offset, Data: data}.encode())
	if err != nil {
		return 0, err
	}
	rw, err := decodeRwrite(resp.Body)
	return rw.Count, err
}

// Stat fetches fid's metadata.
func (s *Session) Stat(fid uint32) (Stat, error) {
	resp, err := s.RawCall(Tstat, msgTstat{Fid: fid}.encode())
	if err != nil {
		return Stat{}, err
	}
	rs, err := decodeRstat(resp.Body)
	return rs.Stat, err
}

// Wstat patches fid's metadata.
func (s *Session) Wstat(fid uint32, stat Stat) error {
	_, err := s.RawCall(Twstat, msgTwstat{Fid: fid, Stat: stat}.encode())
	return err
}

// Remove removes fid's file and clunks fid regardless of outcome.
func (s *Session) Remove(fid uint32) error {
	_, err := s.RawCall(Tremove, msgTremove{Fid: fid}.encode())
	return err
}

// Clunk releases fid.
func (s *Session) Clunk(fid uint32) error {
	_, err := s.RawCall(Tclunk, msgTclunk{Fid: fid}.encode())
	return err
}

// Clone duplicates fid, including its open mode, under newfid.
func (s *Session) Clone(fid, newfid uint32) error {
	_, err := s.RawCall(Tclone, msgTclone{Fid: fid, Newfid: newfid}.encode())
	return err
}

// Flush is always a no-op reply from this server, but real 9P clients
// issue it to cancel a pending request; kept for protocol completeness.
func (s *Session) Flush(oldtag uint16) error {
	_, err := s.RawCall(Tflush, msgTflush{Oldtag: oldtag}.encode())
	return err
}

// ReadDir reads the full packed-Stat body of a directory fid and decodes
// it into individual Stat records.
func (s *Session) ReadDir(fid uint32, iounit uint32) ([]Stat, error) {
	if iounit == 0 {
		iounit = IOUnit
	}
	var all []byte
	var offset uint64
	for {
		chunk, err := s.Read(fid, offset, iounit)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		all = append(all, chunk...)
		offset += uint64(len(chunk))
	}

	var stats []Stat
	for len(all) > 0 {
		st, n, err := decodeStat(all)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
		all = all[n:]
	}
	return stats, nil
}
