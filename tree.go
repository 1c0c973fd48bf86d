package ninefs

import (
	"strings"
	"sync"
)

// treeNode is one entry in the in-memory hierarchy. Children are kept both
// in a map (O(1) lookup by name) and an ordered slice (stable directory
// listing order — insertion order).
type treeNode struct {
	name     string
	isDir    bool
	data     []byte
	children map[string]*treeNode
	order    []*treeNode
	parent   *treeNode

	mode  uint32 // low 9 bits permission, DMDIR bit for directories
	uid   string
	gid   string
	atime uint32
	mtime uint32

	qidPath uint64
	version uint32
}

func (n *treeNode) qid() Qid {
	t := uint8(0)
	if n.isDir {
		t = QTDIR
	}
	return Qid{Type: t, Version: n.version, Path: n.qidPath}
}

func (n *treeNode) stat() Stat {
	mode := n.mode
	if n.isDir {
		mode |= DMDIR
	}
	return Stat{
		Type:   0,
		Dev:    0,
		Qid:    n.qid(),
		Mode:   mode,
		Atime:  n.atime,
		Mtime:  n.mtime,
		Length: uint64(len(n.data)),
		Name:   n.name,
		Uid:    n.uid,
		Gid:    n.gid,
		Muid:   n.uid,
	}
}

func (n *treeNode) addChild(c *treeNode) {
	n.children[c.name] = c
	n.order = append(n.order, c)
	c.parent = n
}

func (n *treeNode) removeChild(name string) {
	c, ok := n.children[name]
	if !ok {
		return
	}
	delete(n.children, name)
	for i, o := range n.order {
		if o == c {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Tree is the reference in-memory hierarchical filesystem backend. All
// operations run under a single mutex, coarse-grained locking held only
// for the operation's duration; that is sufficient for
// the sequential-consistency guarantee the spec asks for and keeps
// multi-step mutations (e.g. rename, which removes and re-adds an entry in
// the parent directory) atomic.
type Tree struct {
	mu       sync.Mutex
	root     *treeNode
	nextPath uint64
	clock    func() uint32
}

// NewTree creates an empty backend with just a root directory, mode 0755.
func NewTree() *Tree {
	t := &Tree{clock: epochNow}
	t.root = t.newNode("", true, 0755, "none", "none")
	return t
}

func (t *Tree) newNode(name string, isDir bool, mode uint32, uid, gid string) *treeNode {
	now := t.clock()
	path := t.nextPath
	t.nextPath++
	n := &treeNode{
		name:  name,
		isDir: isDir,
		mode:  mode,
		uid:   uid,
		gid:   gid,
		atime: now,
		mtime: now,
		qidPath: path,
	}
	if isDir {
		n.children = make(map[string]*treeNode)
	}
	return n
}

// split breaks a path into non-empty components; "/", "", and "." all
// split to the empty path (the root).
func split(path string) []string {
	if path == "" || path == "/" || path == "." {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// resolve walks path components from the root, honoring "." (no-op) and
// ".." (parent, capped at root). It does not take the tree lock; callers
// must hold it.
func (t *Tree) resolve(path string) (*treeNode, error) {
	return t.resolveFrom(t.root, split(path))
}

func (t *Tree) resolveFrom(from *treeNode, names []string) (*treeNode, error) {
	cur := from
	for _, name := range names {
		switch name {
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
		default:
			next, ok := cur.children[name]
			if !ok {
				return nil, ErrNotFound
			}
			cur = next
		}
	}
	return cur, nil
}

// Canonical renders the absolute, slash-separated, no-trailing-slash form
// of path (root renders as "/").
func Canonical(path string) string {
	parts := split(path)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

func nodePath(n *treeNode) string {
	if n.parent == nil {
		return "/"
	}
	var segs []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		segs = append([]string{cur.name}, segs...)
	}
	return "/" + strings.Join(segs, "/")
}

// RootQid returns the qid of the root directory.
func (t *Tree) RootQid() Qid {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.qid()
}

// Stat returns the metadata for path.
func (t *Tree) Stat(path string) (Stat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	return n.stat(), nil
}

// WalkStep resolves a single path component from `from`, returning the
// resulting canonical path and its stat. Used by the server one name at a
// time so a failing middle component aborts the whole Twalk.
func (t *Tree) WalkStep(from, name string) (string, Stat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fromNode, err := t.resolve(from)
	if err != nil {
		return "", Stat{}, err
	}
	toNode, err := t.resolveFrom(fromNode, []string{name})
	if err != nil {
		return "", Stat{}, err
	}
	return nodePath(toNode), toNode.stat(), nil
}

// ReadDir materializes a directory's entries, in stable insertion order, as
// a concatenation of packed Stat records.
func (t *Tree) ReadDir(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	if !n.isDir {
		return nil, wrapf(ErrInternal, "%s: not a directory", path)
	}
	var buf []byte
	for _, c := range n.order {
		buf = append(buf, marshalStat(c.stat())...)
	}
	return buf, nil
}

// Read copies bytes [offset, min(offset+len(p), length)) of the file at
// path into p, returning the number of bytes copied. Reading at or past
// EOF, or with a zero-length p, yields zero bytes and no error.
func (t *Tree) Read(path string, offset int64, p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return 0, err
	}
	if n.isDir {
		return 0, wrapf(ErrInternal, "%s: is a directory", path)
	}
	if offset < 0 {
		return 0, wrapf(ErrMalformed, "negative offset")
	}
	if offset >= int64(len(n.data)) || len(p) == 0 {
		return 0, nil
	}
	n.atime = t.clock()
	return copy(p, n.data[offset:]), nil
}

// Write extends the file at path with zero-fill if offset is past the
// current length, then overwrites len(data) bytes starting at offset.
// New length is max(oldLength, offset+len(data)).
func (t *Tree) Write(path string, offset int64, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return 0, err
	}
	if n.isDir {
		return 0, wrapf(ErrInternal, "%s: is a directory", path)
	}
	if offset < 0 {
		return 0, wrapf(ErrMalformed, "negative offset")
	}

	end := offset + int64(len(data))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], data)

	n.mtime = t.clock()
	n.atime = n.mtime
	n.version++
	return len(data), nil
}

// CreateFile creates a regular file named name in the directory at
// dirPath, failing with ErrExists if the name is already taken.
func (t *Tree) CreateFile(dirPath, name string, mode uint32, uid, gid string) (Stat, error) {
	return t.create(dirPath, name, mode, false, uid, gid)
}

// CreateDir creates a subdirectory.
func (t *Tree) CreateDir(dirPath, name string, mode uint32, uid, gid string) (Stat, error) {
	return t.create(dirPath, name, mode, true, uid, gid)
}

func (t *Tree) create(dirPath, name string, mode uint32, isDir bool, uid, gid string) (Stat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if name == "" || name == "." || name == ".." {
		return Stat{}, wrapf(ErrMalformed, "illegal name %q", name)
	}
	dir, err := t.resolve(dirPath)
	if err != nil {
		return Stat{}, err
	}
	if !dir.isDir {
		return Stat{}, wrapf(ErrInternal, "%s: not a directory", dirPath)
	}
	if _, found := dir.children[name]; found {
		return Stat{}, ErrExists
	}

	node := t.newNode(name, isDir, mode&0777, uid, gid)
	dir.addChild(node)
	return node.stat(), nil
}

// Seed creates one regular file per entry of files (name → content) in the
// existing directory dirPath; it creates no directories. It is not called
// by NewTree — a fresh tree has only the root directory.
func (t *Tree) Seed(dirPath string, files map[string]string) error {
	for name, content := range files {
		if _, err := t.CreateFile(dirPath, name, 0644, "none", "none"); err != nil {
			return err
		}
		if _, err := t.Write(Canonical(dirPath+"/"+name), 0, []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// Remove unlinks path from its parent. The root cannot be removed.
func (t *Tree) Remove(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return err
	}
	if n.parent == nil {
		return wrapf(ErrInternal, "cannot remove root")
	}
	n.parent.removeChild(n.name)
	return nil
}

// Wstat applies a Twstat record to path: fields holding the "do not
// change" sentinel (DontTouch32/64, or an empty string for Name/Gid) are
// left alone; everything else is applied atomically — either every
// requested change lands, or (on error) none does.
func (t *Tree) Wstat(path string, s Stat) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.resolve(path)
	if err != nil {
		return err
	}

	renaming := s.Name != "" && s.Name != n.name
	if renaming {
		if n.parent == nil {
			return wrapf(ErrInternal, "cannot rename root")
		}
		if _, found := n.parent.children[s.Name]; found {
			return ErrExists
		}
	}

	if s.Mode != DontTouch32 {
		n.mode = s.Mode & 0777
	}
	if s.Mtime != DontTouch32 {
		n.mtime = s.Mtime
	}
	if s.Length != DontTouch64 {
		newLen := int(s.Length)
		if newLen > len(n.data) {
			grown := make([]byte, newLen)
			copy(grown, n.data)
			n.data = grown
		} else {
			n.data = n.data[:newLen]
		}
		n.version++
	}
	if s.Gid != "" {
		n.gid = s.Gid
	}
	if renaming {
		parent := n.parent
		parent.removeChild(n.name)
		n.name = s.Name
		parent.addChild(n)
	}
	return nil
}
