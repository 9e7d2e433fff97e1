//go:build unix

package file

import (
	"io/fs"
	"syscall"
)

// ownedBy reports whether info already has the wanted owner and group. A
// negative id matches anything.
func ownedBy(info fs.FileInfo, uid, gid int) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return (uid < 0 || int(st.Uid) == uid) && (gid < 0 || int(st.Gid) == gid)
}
