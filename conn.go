package ninefs

import (
	"io"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Conn serves one client connection: a strictly sequential request/reply
// loop over a single stream: no pipelining across tags, since nothing
// here needs it. All connections on a Server share the
// same *Tree; only the fid table is private to a connection.
type Conn struct {
	id     uint32
	rwc    net.Conn
	tree   *Tree
	fids   *FidTable
	log    *logrus.Logger
	metrics *serverMetrics

	msize     uint32
	versioned bool

	dirCache map[uint32][]byte
}

var connIDSeq uint32

func newConn(rwc net.Conn, tree *Tree, log *logrus.Logger, metrics *serverMetrics) *Conn {
	return &Conn{
		id:       atomic.AddUint32(&connIDSeq, 1),
		rwc:      rwc,
		tree:     tree,
		fids:     NewFidTable(),
		log:      log,
		metrics:  metrics,
		msize:    ServerMaxMsize,
		dirCache: make(map[uint32][]byte),
	}
}

// serve runs the read-dispatch-write loop until the connection closes or a
// frame can no longer be parsed. It never returns an error to the caller;
// Server.Serve only needs to know the connection ended.
func (c *Conn) serve() {
	defer c.rwc.Close()
	defer c.fids.ReleaseAll()

	if c.metrics != nil {
		c.metrics.connections.Inc()
		defer c.metrics.connections.Dec()
	}

	for {
		f, err := ReadFrame(c.rwc)
		if err != nil {
			if err != io.EOF {
				c.log.WithField("conn", c.id).WithError(err).Debug("read frame")
			}
			return
		}
		traceRecv(c.log, c.id, f)
		c.metrics.observeRequest(f.Type)

		respType, body := c.dispatch(f)
		traceSend(c.log, c.id, respType, f.Tag)
		if err := WriteFrame(c.rwc, respType, f.Tag, body); err != nil {
			c.log.WithField("conn", c.id).WithError(err).Debug("write frame")
			return
		}
	}
}

// dispatch routes one decoded frame to its handler and turns a returned
// error into an Rerror reply: every Tx either succeeds with the matching
// Rx or fails with Rerror, never both, never neither.
func (c *Conn) dispatch(f Frame) (uint8, []byte) {
	if !c.versioned && f.Type != Tversion {
		return Rerror, msgRerror{Ename: "Tversion must be the first message"}.encode()
	}

	var (
		body []byte
		err  error
		rtyp uint8
	)

	switch f.Type {
	case Tversion:
		body, err = c.handleVersion(f.Body)
		rtyp = Rversion
	case Tauth:
		body, err = c.handleAuth(f.Body)
		rtyp = Rauth
	case Tattach:
		body, err = c.handleAttach(f.Body)
		rtyp = Rattach
	case Twalk:
		body, err = c.handleWalk(f.Body)
		rtyp = Rwalk
	case Topen:
		body, err = c.handleOpen(f.Body)
		rtyp = Ropen
	case Tcreate:
		body, err = c.handleCreate(f.Body)
		rtyp = Rcreate
	case Tread:
		body, err = c.handleRead(f.Body)
		rtyp = Rread
	case Twrite:
		body, err = c.handleWrite(f.Body)
		rtyp = Rwrite
	case Tclunk:
		body, err = c.handleClunk(f.Body)
		rtyp = Rclunk
	case Tremove:
		body, err = c.handleRemove(f.Body)
		rtyp = Rremove
	case Tstat:
		body, err = c.handleStat(f.Body)
		rtyp = Rstat
	case Twstat:
		body, err = c.handleWstat(f.Body)
		rtyp = Rwstat
	case Tclone:
		body, err = c.handleClone(f.Body)
		rtyp = Rclone
	case Tflush:
		body, err = c.handleFlush(f.Body)
		rtyp = Rflush
	default:
		err = wrapf(ErrUnsupported, "type %d", f.Type)
	}

	if err != nil {
		return Rerror, msgRerror{Ename: err.Error()}.encode()
	}
	return rtyp, body
}

// perFidDirBytes materializes the packed Stat records of a directory on a
// read at offset 0 and caches them per fid number until the next offset-0
// read of that fid (clunking does not drop the entry), so that a client reading it in
// several Tread calls at increasing offsets sees one consistent snapshot
// rather than the live tree re-rendered mid-read.
func (c *Conn) perFidDirBytes(fid uint32, offset uint64) ([]byte, error) {
	if offset == 0 {
		delete(c.dirCache, fid)
	}
	if buf, ok := c.dirCache[fid]; ok {
		return buf, nil
	}

	state, err := c.fids.Lookup(fid)
	if err != nil {
		return nil, err
	}
	buf, err := c.tree.ReadDir(state.path)
	if err != nil {
		return nil, err
	}
	c.dirCache[fid] = buf
	return buf, nil
}
