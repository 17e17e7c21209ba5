//go:build !linux && !darwin && !netbsd && !freebsd

package fs

func isNoXattrData(error) bool {
	return false
}

func isXattrSupported() bool {
	return false
}
