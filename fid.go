package ninefs

import "sync"

// fidState is the per-fid record: a canonical path, the
// qid observed at attach/walk/create time, and the open mode (nil until a
// Topen/Tcreate succeeds).
type fidState struct {
	path     string
	qid      Qid
	openMode *uint8
}

func (s fidState) isOpen() bool { return s.openMode != nil }

// ErrDuplicateFid is returned by FidTable.Attach when the fid is already
// in use. The spec calls overwrite-on-duplicate a permitted but
// not-recommended choice; this implementation takes the recommended,
// stricter path and rejects it.
var ErrDuplicateFid = wrapf(ErrInternal, "fid already in use")

// FidTable maps a connection's client-chosen fid numbers to fidState.
// There is no server-side fid numbering: clients pick fids, the table
// just remembers what each one currently points at.
type FidTable struct {
	mu sync.Mutex
	m  map[uint32]fidState
}

// NewFidTable returns an empty table.
func NewFidTable() *FidTable {
	return &FidTable{m: make(map[uint32]fidState)}
}

// Attach inserts state under fid, failing with ErrDuplicateFid if fid is
// already attached.
func (t *FidTable) Attach(fid uint32, state fidState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, found := t.m[fid]; found {
		return ErrDuplicateFid
	}
	t.m[fid] = state
	return nil
}

// Lookup returns a read-only copy of fid's state, or ErrUnknownFid.
func (t *FidTable) Lookup(fid uint32) (fidState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, found := t.m[fid]
	if !found {
		return fidState{}, ErrUnknownFid
	}
	return s, nil
}

// Mutate applies fn to fid's current state and stores the result, failing
// with ErrUnknownFid if fid isn't attached. fn returning an error aborts
// the mutation; the stored state is unchanged.
func (t *FidTable) Mutate(fid uint32, fn func(fidState) (fidState, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, found := t.m[fid]
	if !found {
		return ErrUnknownFid
	}
	next, err := fn(s)
	if err != nil {
		return err
	}
	t.m[fid] = next
	return nil
}

// Release removes fid, reporting whether it was present.
func (t *FidTable) Release(fid uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, found := t.m[fid]; !found {
		return false
	}
	delete(t.m, fid)
	return true
}

// ReleaseAll clears every fid, used on connection teardown.
func (t *FidTable) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[uint32]fidState)
}
