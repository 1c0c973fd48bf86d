package ninefs

// This file is the server state machine: one handler per 9P
// message type, each translating a decoded request body into either a
// reply body or an error that the caller (Conn.dispatch, in conn.go)
// turns into Rerror. Handlers never panic on backend failure; a fid whose
// path no longer resolves (e.g. its node was removed) comes back as
// ErrNotFound, and other backend surprises as ErrInternal.

// handleVersion negotiates msize and version. A successful
// Tversion resets session state — this handler clears the fid table.
func (c *Conn) handleVersion(body []byte) ([]byte, error) {
	req, err := decodeTversion(body)
	if err != nil {
		return nil, err
	}

	msize := req.Msize
	if msize > ServerMaxMsize {
		msize = ServerMaxMsize
	}
	if msize < 1 {
		msize = 1
	}

	version := "unknown"
	if strHasPrefix(req.Version, "9P2000") {
		version = "9P2000"
	}

	c.msize = msize
	c.versioned = true
	c.fids.ReleaseAll()

	return msgRversion{Msize: msize, Version: version}.encode(), nil
}

func strHasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// handleAuth always succeeds with an all-zero aqid: this server requires
// no authentication, resolved in favor of success so that clients which
// always send Tauth still work.
func (c *Conn) handleAuth(body []byte) ([]byte, error) {
	if _, err := decodeTauth(body); err != nil {
		return nil, err
	}
	return msgRauth{Aqid: Qid{}}.encode(), nil
}

// handleAttach registers the client-chosen fid at the backend root.
func (c *Conn) handleAttach(body []byte) ([]byte, error) {
	req, err := decodeTattach(body)
	if err != nil {
		return nil, err
	}

	qid := c.tree.RootQid()
	if err := c.fids.Attach(req.Fid, fidState{path: "/", qid: qid}); err != nil {
		return nil, err
	}
	return msgRattach{Qid: qid}.encode(), nil
}

// handleWalk resolves names one at a time from the source fid's path. A
// failing component aborts the whole walk with Rerror, the simpler
// policy, rather than returning a short Rwalk. Zero names clones the fid.
func (c *Conn) handleWalk(body []byte) ([]byte, error) {
	req, err := decodeTwalk(body)
	if err != nil {
		return nil, err
	}

	src, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}

	if len(req.Wname) == 0 {
		if err := c.fids.Attach(req.Newfid, fidState{path: src.path, qid: src.qid}); err != nil {
			return nil, err
		}
		return msgRwalk{Wqid: nil}.encode(), nil
	}

	cur := src.path
	qids := make([]Qid, 0, len(req.Wname))
	var lastStat Stat
	for _, name := range req.Wname {
		next, stat, err := c.tree.WalkStep(cur, name)
		if err != nil {
			return nil, err
		}
		cur = next
		lastStat = stat
		qids = append(qids, stat.Qid)
	}

	if err := c.fids.Attach(req.Newfid, fidState{path: cur, qid: lastStat.Qid}); err != nil {
		return nil, err
	}
	return msgRwalk{Wqid: qids}.encode(), nil
}

// handleOpen checks the path still exists and records the requested
// access mode so subsequent Tread/Twrite can be gated.
func (c *Conn) handleOpen(body []byte) ([]byte, error) {
	req, err := decodeTopen(body)
	if err != nil {
		return nil, err
	}

	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	stat, err := c.tree.Stat(fid.path)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if err := c.fids.Mutate(req.Fid, func(s fidState) (fidState, error) {
		s.qid = stat.Qid
		s.openMode = &mode
		return s, nil
	}); err != nil {
		return nil, err
	}
	return msgRopen{Qid: stat.Qid, Iounit: 0}.encode(), nil
}

// handleCreate requires the fid to name an existing directory. The new
// file replaces what the fid refers to: the existing fid becomes the
// newly created file.
func (c *Conn) handleCreate(body []byte) ([]byte, error) {
	req, err := decodeTcreate(body)
	if err != nil {
		return nil, err
	}

	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	dirStat, err := c.tree.Stat(fid.path)
	if err != nil {
		return nil, err
	}
	if dirStat.Mode&DMDIR == 0 {
		return nil, wrapf(ErrInternal, "%s: not a directory", fid.path)
	}

	var stat Stat
	if req.Perm&DMDIR != 0 {
		stat, err = c.tree.CreateDir(fid.path, req.Name, req.Perm, "none", "none")
	} else {
		stat, err = c.tree.CreateFile(fid.path, req.Name, req.Perm, "none", "none")
	}
	if err != nil {
		return nil, err
	}
	c.metrics.observeMutation("create")

	newPath := Canonical(fid.path + "/" + req.Name)
	mode := req.Mode
	if err := c.fids.Mutate(req.Fid, func(s fidState) (fidState, error) {
		s.path = newPath
		s.qid = stat.Qid
		s.openMode = &mode
		return s, nil
	}); err != nil {
		return nil, err
	}
	return msgRcreate{Qid: stat.Qid, Iounit: 0}.encode(), nil
}

// handleRead gates on open_mode, then serves a file or a directory-listing
// snapshot with the same offset/count slicing policy: offset >= length
// or count == 0 returns zero bytes.
func (c *Conn) handleRead(body []byte) ([]byte, error) {
	req, err := decodeTread(body)
	if err != nil {
		return nil, err
	}

	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	if !fid.isOpen() || !canRead(*fid.openMode) {
		return nil, ErrBadOpenMode
	}

	stat, err := c.tree.Stat(fid.path)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if stat.Mode&DMDIR != 0 {
		dirBytes, err := c.perFidDirBytes(req.Fid, req.Offset)
		if err != nil {
			return nil, err
		}
		data := sliceAt(dirBytes, req.Offset, count)
		return msgRread{Data: data}.encode(), nil
	}

	buf := make([]byte, count)
	n, err := c.tree.Read(fid.path, int64(req.Offset), buf)
	if err != nil {
		return nil, err
	}
	return msgRread{Data: buf[:n]}.encode(), nil
}

func canRead(mode uint8) bool {
	switch mode & omask {
	case OREAD, ORDWR, OEXEC:
		return true
	default:
		return false
	}
}

func canWrite(mode uint8) bool {
	if mode&OTRUNC != 0 {
		return true
	}
	switch mode & omask {
	case OWRITE, ORDWR:
		return true
	default:
		return false
	}
}

// sliceAt applies the frame's offset/count slicing policy to an
// already-materialized byte buffer (used for directory reads).
func sliceAt(buf []byte, offset uint64, count uint32) []byte {
	if offset >= uint64(len(buf)) || count == 0 {
		return nil
	}
	end := offset + uint64(count)
	if end > uint64(len(buf)) {
		end = uint64(len(buf))
	}
	return buf[offset:end]
}

// handleWrite gates on open_mode and delegates offset/zero-fill semantics
// to the backend.
func (c *Conn) handleWrite(body []byte) ([]byte, error) {
	req, err := decodeTwrite(body)
	if err != nil {
		return nil, err
	}

	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	if !fid.isOpen() || !canWrite(*fid.openMode) {
		return nil, ErrBadOpenMode
	}

	n, err := c.tree.Write(fid.path, int64(req.Offset), req.Data)
	if err != nil {
		return nil, err
	}
	c.metrics.observeMutation("write")
	return msgRwrite{Count: uint32(n)}.encode(), nil
}

// handleRemove unlinks the path and always clunks the fid, even on
// failure.
func (c *Conn) handleRemove(body []byte) ([]byte, error) {
	req, err := decodeTremove(body)
	if err != nil {
		return nil, err
	}

	fid, lookupErr := c.fids.Lookup(req.Fid)
	defer c.fids.Release(req.Fid)
	if lookupErr != nil {
		return nil, lookupErr
	}

	if err := c.tree.Remove(fid.path); err != nil {
		return nil, err
	}
	c.metrics.observeMutation("remove")
	return msgRremove{}.encode(), nil
}

// handleClunk always succeeds, even for a fid that was never valid — the
// net effect (fid no longer usable) is the same either way.
func (c *Conn) handleClunk(body []byte) ([]byte, error) {
	req, err := decodeTclunk(body)
	if err != nil {
		return nil, err
	}
	c.fids.Release(req.Fid)
	return msgRclunk{}.encode(), nil
}

// handleClone duplicates a fid, including its open mode — standard Twalk
// with zero names does NOT carry the open mode forward (it starts the new
// fid unopened), but this extension's whole purpose is to let a caller
// keep reading/writing through a second handle without reopening.
func (c *Conn) handleClone(body []byte) ([]byte, error) {
	req, err := decodeTclone(body)
	if err != nil {
		return nil, err
	}
	src, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	if err := c.fids.Attach(req.Newfid, src); err != nil {
		return nil, err
	}
	return msgRclone{}.encode(), nil
}

// handleStat builds a Stat record for the fid's current path.
func (c *Conn) handleStat(body []byte) ([]byte, error) {
	req, err := decodeTstat(body)
	if err != nil {
		return nil, err
	}
	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}
	stat, err := c.tree.Stat(fid.path)
	if err != nil {
		return nil, err
	}
	return msgRstat{Stat: stat}.encode(), nil
}

// handleWstat applies a patch record, renaming, resizing, or rebadging
// the fid's path as requested. All-sentinel fields are a content no-op.
func (c *Conn) handleWstat(body []byte) ([]byte, error) {
	req, err := decodeTwstat(body)
	if err != nil {
		return nil, err
	}
	fid, err := c.fids.Lookup(req.Fid)
	if err != nil {
		return nil, err
	}

	renamed := req.Stat.Name != ""
	if err := c.tree.Wstat(fid.path, req.Stat); err != nil {
		return nil, err
	}
	c.metrics.observeMutation("wstat")

	if renamed {
		dir := parentPath(fid.path)
		newPath := Canonical(dir + "/" + req.Stat.Name)
		_ = c.fids.Mutate(req.Fid, func(s fidState) (fidState, error) {
			s.path = newPath
			return s, nil
		})
	}
	return msgRwstat{}.encode(), nil
}

func parentPath(path string) string {
	segs := split(path)
	if len(segs) == 0 {
		return "/"
	}
	segs = segs[:len(segs)-1]
	if len(segs) == 0 {
		return "/"
	}
	return "/" + joinSlash(segs)
}

func joinSlash(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

// handleFlush always succeeds: because a connection is served strictly
// sequentially, there is never a pending request to cancel.
func (c *Conn) handleFlush(body []byte) ([]byte, error) {
	if _, err := decodeTflush(body); err != nil {
		return nil, err
	}
	return msgRflush{}.encode(), nil
}
