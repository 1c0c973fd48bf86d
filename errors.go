package ninefs

import "github.com/pkg/errors"

// Error kinds surfaced to a 9P client as Rerror(ename). The exact wording of
// ename is not part of the wire contract; callers should
// match on substrings, or unwrap with errors.Is against these sentinels.
var (
	ErrUnknownFid  = errors.New("unknown fid")
	ErrNotFound    = errors.New("file does not exist")
	ErrBadOpenMode = errors.New("fid not open for that operation")
	ErrExists      = errors.New("file exists")
	ErrMalformed   = errors.New("malformed message")
	ErrUnsupported = errors.New("message type not supported")
	ErrInternal    = errors.New("internal server error")
)

// wrapf attaches a kind sentinel to a more specific message so that
// errors.Is(err, kind) still holds after errors.Wrapf formats it.
func wrapf(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
