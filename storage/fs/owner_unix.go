//go:build !windows && !plan9

package fs

import (
	"os"
	"syscall"
)

// copyOwner chown path to the owner of info, if it differs.
func copyOwner(path string, info os.FileInfo) error {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	current, err := os.Stat(path)
	if err != nil {
		return err
	}
	if cst, ok := current.Sys().(*syscall.Stat_t); ok && cst.Uid == st.Uid && cst.Gid == st.Gid {
		return nil
	}
	return os.Chown(path, int(st.Uid), int(st.Gid))
}
