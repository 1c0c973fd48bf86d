package ninefs

import "encoding/binary"

// This file holds the per-message body encoders/decoders named in the
// the message taxonomy. Each Txxx/Rxxx pair is encoded as a plain
// struct; (en|de)coding never panics on adversarial input — short or
// inconsistent bodies fail with ErrMalformed.

// ---- Tversion / Rversion ----

type msgTversion struct {
	Msize   uint32
	Version string
}

func (m msgTversion) encode() []byte {
	buf := make([]byte, 4+stringSize(m.Version))
	binary.LittleEndian.PutUint32(buf[0:4], m.Msize)
	putString(buf[4:], m.Version)
	return buf
}

func decodeTversion(b []byte) (msgTversion, error) {
	if len(b) < 4 {
		return msgTversion{}, ErrMalformed
	}
	m := msgTversion{Msize: binary.LittleEndian.Uint32(b[0:4])}
	v, _, err := getString(b[4:])
	if err != nil {
		return msgTversion{}, err
	}
	m.Version = v
	return m, nil
}

type msgRversion struct {
	Msize   uint32
	Version string
}

func (m msgRversion) encode() []byte {
	buf := make([]byte, 4+stringSize(m.Version))
	binary.LittleEndian.PutUint32(buf[0:4], m.Msize)
	putString(buf[4:], m.Version)
	return buf
}

func decodeRversion(b []byte) (msgRversion, error) {
	if len(b) < 4 {
		return msgRversion{}, ErrMalformed
	}
	v, _, err := getString(b[4:])
	if err != nil {
		return msgRversion{}, err
	}
	return msgRversion{Msize: binary.LittleEndian.Uint32(b[0:4]), Version: v}, nil
}

// ---- Tauth / Rauth ----

type msgTauth struct {
	Fid   uint32
	Uname string
	Aname string
}

func (m msgTauth) encode() []byte {
	buf := make([]byte, 4+stringSize(m.Uname)+stringSize(m.Aname))
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	n := 4 + putString(buf[4:], m.Uname)
	putString(buf[n:], m.Aname)
	return buf
}

func decodeTauth(b []byte) (msgTauth, error) {
	if len(b) < 4 {
		return msgTauth{}, ErrMalformed
	}
	m := msgTauth{Fid: binary.LittleEndian.Uint32(b[0:4])}
	uname, n, err := getString(b[4:])
	if err != nil {
		return msgTauth{}, err
	}
	m.Uname = uname
	aname, _, err := getString(b[4+n:])
	if err != nil {
		return msgTauth{}, err
	}
	m.Aname = aname
	return m, nil
}

type msgRauth struct{ Aqid Qid }

func (m msgRauth) encode() []byte {
	buf := make([]byte, 13)
	m.Aqid.encode(buf)
	return buf
}

func decodeRauth(b []byte) (msgRauth, error) {
	q, _, err := decodeQid(b)
	if err != nil {
		return msgRauth{}, err
	}
	return msgRauth{Aqid: q}, nil
}

// ---- Tattach / Rattach ----

type msgTattach struct {
	Fid   uint32
	Afid  uint32
	Uname string
	Aname string
}

func (m msgTattach) encode() []byte {
	buf := make([]byte, 8+stringSize(m.Uname)+stringSize(m.Aname))
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	binary.LittleEndian.PutUint32(buf[4:8], m.Afid)
	n := 8 + putString(buf[8:], m.Uname)
	putString(buf[n:], m.Aname)
	return buf
}

func decodeTattach(b []byte) (msgTattach, error) {
	if len(b) < 8 {
		return msgTattach{}, ErrMalformed
	}
	m := msgTattach{
		Fid:  binary.LittleEndian.Uint32(b[0:4]),
		Afid: binary.LittleEndian.Uint32(b[4:8]),
	}
	uname, n, err := getString(b[8:])
	if err != nil {
		return msgTattach{}, err
	}
	m.Uname = uname
	aname, _, err := getString(b[8+n:])
	if err != nil {
		return msgTattach{}, err
	}
	m.Aname = aname
	return m, nil
}

type msgRattach struct{ Qid Qid }

func (m msgRattach) encode() []byte {
	buf := make([]byte, 13)
	m.Qid.encode(buf)
	return buf
}

func decodeRattach(b []byte) (msgRattach, error) {
	q, _, err := decodeQid(b)
	if err != nil {
		return msgRattach{}, err
	}
	return msgRattach{Qid: q}, nil
}

// ---- Rerror ----

type msgRerror struct{ Ename string }

func (m msgRerror) encode() []byte {
	buf := make([]byte, stringSize(m.Ename))
	putString(buf, m.Ename)
	return buf
}

func decodeRerror(b []byte) (msgRerror, error) {
	s, _, err := getString(b)
	if err != nil {
		return msgRerror{}, err
	}
	return msgRerror{Ename: s}, nil
}

// ---- Tflush / Rflush ----

type msgTflush struct{ Oldtag uint16 }

func (m msgTflush) encode() []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, m.Oldtag)
	return buf
}

func decodeTflush(b []byte) (msgTflush, error) {
	if len(b) < 2 {
		return msgTflush{}, ErrMalformed
	}
	return msgTflush{Oldtag: binary.LittleEndian.Uint16(b[0:2])}, nil
}

type msgRflush struct{}

func (m msgRflush) encode() []byte             { return nil }
func decodeRflush(b []byte) (msgRflush, error) { return msgRflush{}, nil }

// ---- Twalk / Rwalk ----

type msgTwalk struct {
	Fid    uint32
	Newfid uint32
	Wname  []string
}

func (m msgTwalk) encode() []byte {
	size := 4 + 4 + 2
	for _, n := range m.Wname {
		size += stringSize(n)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	binary.LittleEndian.PutUint32(buf[4:8], m.Newfid)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(m.Wname)))
	n := 10
	for _, name := range m.Wname {
		n += putString(buf[n:], name)
	}
	return buf
}

func decodeTwalk(b []byte) (msgTwalk, error) {
	if len(b) < 10 {
		return msgTwalk{}, ErrMalformed
	}
	m := msgTwalk{
		Fid:    binary.LittleEndian.Uint32(b[0:4]),
		Newfid: binary.LittleEndian.Uint32(b[4:8]),
	}
	nwname := int(binary.LittleEndian.Uint16(b[8:10]))
	n := 10
	m.Wname = make([]string, nwname)
	for i := 0; i < nwname; i++ {
		s, sn, err := getString(b[n:])
		if err != nil {
			return msgTwalk{}, err
		}
		m.Wname[i] = s
		n += sn
	}
	return m, nil
}

type msgRwalk struct{ Wqid []Qid }

func (m msgRwalk) encode() []byte {
	buf := make([]byte, 2+13*len(m.Wqid))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(m.Wqid)))
	n := 2
	for _, q := range m.Wqid {
		n += q.encode(buf[n:])
	}
	return buf
}

func decodeRwalk(b []byte) (msgRwalk, error) {
	if len(b) < 2 {
		return msgRwalk{}, ErrMalformed
	}
	nwqid := int(binary.LittleEndian.Uint16(b[0:2]))
	n := 2
	m := msgRwalk{Wqid: make([]Qid, nwqid)}
	for i := 0; i < nwqid; i++ {
		q, qn, err := decodeQid(b[n:])
		if err != nil {
			return msgRwalk{}, err
		}
		m.Wqid[i] = q
		n += qn
	}
	return m, nil
}

// ---- Topen / Ropen ----

type msgTopen struct {
	Fid  uint32
	Mode uint8
}

func (m msgTopen) encode() []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	buf[4] = m.Mode
	return buf
}

func decodeTopen(b []byte) (msgTopen, error) {
	if len(b) < 5 {
		return msgTopen{}, ErrMalformed
	}
	return msgTopen{Fid: binary.LittleEndian.Uint32(b[0:4]), Mode: b[4]}, nil
}

type msgRopen struct {
	Qid    Qid
	Iounit uint32
}

func (m msgRopen) encode() []byte {
	buf := make([]byte, 17)
	m.Qid.encode(buf)
	binary.LittleEndian.PutUint32(buf[13:17], m.Iounit)
	return buf
}

func decodeRopen(b []byte) (msgRopen, error) {
	q, n, err := decodeQid(b)
	if err != nil {
		return msgRopen{}, err
	}
	if len(b) < n+4 {
		return msgRopen{}, ErrMalformed
	}
	return msgRopen{Qid: q, Iounit: binary.LittleEndian.Uint32(b[n : n+4])}, nil
}

// ---- Tcreate / Rcreate ----

type msgTcreate struct {
	Fid  uint32
	Name string
	Perm uint32
	Mode uint8
}

func (m msgTcreate) encode() []byte {
	buf := make([]byte, 4+stringSize(m.Name)+4+1)
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	n := 4 + putString(buf[4:], m.Name)
	binary.LittleEndian.PutUint32(buf[n:n+4], m.Perm)
	buf[n+4] = m.Mode
	return buf
}

func decodeTcreate(b []byte) (msgTcreate, error) {
	if len(b) < 4 {
		return msgTcreate{}, ErrMalformed
	}
	m := msgTcreate{Fid: binary.LittleEndian.Uint32(b[0:4])}
	name, n, err := getString(b[4:])
	if err != nil {
		return msgTcreate{}, err
	}
	m.Name = name
	n += 4
	if len(b) < n+5 {
		return msgTcreate{}, ErrMalformed
	}
	m.Perm = binary.LittleEndian.Uint32(b[n : n+4])
	m.Mode = b[n+4]
	return m, nil
}

type msgRcreate struct {
	Qid    Qid
	Iounit uint32
}

func (m msgRcreate) encode() []byte {
	buf := make([]byte, 17)
	m.Qid.encode(buf)
	binary.LittleEndian.PutUint32(buf[13:17], m.Iounit)
	return buf
}

func decodeRcreate(b []byte) (msgRcreate, error) {
	q, n, err := decodeQid(b)
	if err != nil {
		return msgRcreate{}, err
	}
	if len(b) < n+4 {
		return msgRcreate{}, ErrMalformed
	}
	return msgRcreate{Qid: q, Iounit: binary.LittleEndian.Uint32(b[n : n+4])}, nil
}

// ---- Tread / Rread ----

type msgTread struct {
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m msgTread) encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	binary.LittleEndian.PutUint64(buf[4:12], m.Offset)
	binary.LittleEndian.PutUint32(buf[12:16], m.Count)
	return buf
}

func decodeTread(b []byte) (msgTread, error) {
	if len(b) < 16 {
		return msgTread{}, ErrMalformed
	}
	return msgTread{
		Fid:    binary.LittleEndian.Uint32(b[0:4]),
		Offset: binary.LittleEndian.Uint64(b[4:12]),
		Count:  binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

type msgRread struct{ Data []byte }

func (m msgRread) encode() []byte {
	buf := make([]byte, 4+len(m.Data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(m.Data)))
	copy(buf[4:], m.Data)
	return buf
}

func decodeRread(b []byte) (msgRread, error) {
	if len(b) < 4 {
		return msgRread{}, ErrMalformed
	}
	count := int(binary.LittleEndian.Uint32(b[0:4]))
	if len(b) < 4+count {
		return msgRread{}, ErrMalformed
	}
	return msgRread{Data: b[4 : 4+count]}, nil
}

// ---- Twrite / Rwrite ----

type msgTwrite struct {
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (m msgTwrite) encode() []byte {
	buf := make([]byte, 16+len(m.Data))
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	binary.LittleEndian.PutUint64(buf[4:12], m.Offset)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(m.Data)))
	copy(buf[16:], m.Data)
	return buf
}

func decodeTwrite(b []byte) (msgTwrite, error) {
	if len(b) < 16 {
		return msgTwrite{}, ErrMalformed
	}
	count := int(binary.LittleEndian.Uint32(b[12:16]))
	if len(b) < 16+count {
		return msgTwrite{}, ErrMalformed
	}
	return msgTwrite{
		Fid:    binary.LittleEndian.Uint32(b[0:4]),
		Offset: binary.LittleEndian.Uint64(b[4:12]),
		Data:   b[16 : 16+count],
	}, nil
}

type msgRwrite struct{ Count uint32 }

func (m msgRwrite) encode() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, m.Count)
	return buf
}

func decodeRwrite(b []byte) (msgRwrite, error) {
	if len(b) < 4 {
		return msgRwrite{}, ErrMalformed
	}
	return msgRwrite{Count: binary.LittleEndian.Uint32(b[0:4])}, nil
}

// ---- Tclunk / Rclunk ----

type msgTclunk struct{ Fid uint32 }

func (m msgTclunk) encode() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, m.Fid)
	return buf
}

func decodeTclunk(b []byte) (msgTclunk, error) {
	if len(b) < 4 {
		return msgTclunk{}, ErrMalformed
	}
	return msgTclunk{Fid: binary.LittleEndian.Uint32(b[0:4])}, nil
}

type msgRclunk struct{}

func (m msgRclunk) encode() []byte             { return nil }
func decodeRclunk(b []byte) (msgRclunk, error) { return msgRclunk{}, nil }

// ---- Tremove / Rremove ----

type msgTremove struct{ Fid uint32 }

func (m msgTremove) encode() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, m.Fid)
	return buf
}

func decodeTremove(b []byte) (msgTremove, error) {
	if len(b) < 4 {
		return msgTremove{}, ErrMalformed
	}
	return msgTremove{Fid: binary.LittleEndian.Uint32(b[0:4])}, nil
}

type msgRremove struct{}

func (m msgRremove) encode() []byte              { return nil }
func decodeRremove(b []byte) (msgRremove, error) { return msgRremove{}, nil }

// ---- Tstat / Rstat ----

type msgTstat struct{ Fid uint32 }

func (m msgTstat) encode() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, m.Fid)
	return buf
}

func decodeTstat(b []byte) (msgTstat, error) {
	if len(b) < 4 {
		return msgTstat{}, ErrMalformed
	}
	return msgTstat{Fid: binary.LittleEndian.Uint32(b[0:4])}, nil
}

type msgRstat struct{ Stat Stat }

func (m msgRstat) encode() []byte { return marshalStat(m.Stat) }

func decodeRstat(b []byte) (msgRstat, error) {
	s, _, err := decodeStat(b)
	if err != nil {
		return msgRstat{}, err
	}
	return msgRstat{Stat: s}, nil
}

// ---- Twstat / Rwstat ----

type msgTwstat struct {
	Fid  uint32
	Stat Stat
}

func (m msgTwstat) encode() []byte {
	statBuf := marshalStat(m.Stat)
	buf := make([]byte, 4+len(statBuf))
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	copy(buf[4:], statBuf)
	return buf
}

func decodeTwstat(b []byte) (msgTwstat, error) {
	if len(b) < 4 {
		return msgTwstat{}, ErrMalformed
	}
	s, _, err := decodeStat(b[4:])
	if err != nil {
		return msgTwstat{}, err
	}
	return msgTwstat{Fid: binary.LittleEndian.Uint32(b[0:4]), Stat: s}, nil
}

type msgRwstat struct{}

func (m msgRwstat) encode() []byte             { return nil }
func decodeRwstat(b []byte) (msgRwstat, error) { return msgRwstat{}, nil }

// ---- Tclone / Rclone (extension) ----

type msgTclone struct {
	Fid    uint32
	Newfid uint32
}

func (m msgTclone) encode() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], m.Fid)
	binary.LittleEndian.PutUint32(buf[4:8], m.Newfid)
	return buf
}

func decodeTclone(b []byte) (msgTclone, error) {
	if len(b) < 8 {
		return msgTclone{}, ErrMalformed
	}
	return msgTclone{
		Fid:    binary.LittleEndian.Uint32(b[0:4]),
		Newfid: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

type msgRclone struct{}

func (m msgRclone) encode() []byte             { return nil }
func decodeRclone(b []byte) (msgRclone, error) { return msgRclone{}, nil }
