package ninefs

import "time"

// epochNow returns the current Unix time truncated to uint32, the wire
// width of Stat.Atime/Mtime.
func epochNow() uint32 { return uint32(time.Now().Unix()) }
