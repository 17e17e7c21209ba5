package fs

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Permissions applies requested owner, group and mode to a managed file.
// Empty owner/group and nil mode are left untouched.
type Permissions interface {
	Apply(path, owner, group string, mode *os.FileMode) error
}

// SysPermissions implements Permissions with local user database and chown/chmod.
type SysPermissions struct{}

// Apply implements Permissions.
func (SysPermissions) Apply(path, owner, group string, mode *os.FileMode) error {
	if mode != nil {
		if err := os.Chmod(path, *mode); err != nil {
			return err
		}
	}
	if owner == "" && group == "" {
		return nil
	}

	uid, gid := -1, -1
	if owner != "" {
		id, err := lookupID(owner, func(name string) (string, error) {
			u, err := user.Lookup(name)
			if err != nil {
				return "", err
			}
			return u.Uid, nil
		})
		if err != nil {
			return fmt.Errorf("lookup owner %q: %w", owner, err)
		}
		uid = id
	}
	if group != "" {
		id, err := lookupID(group, func(name string) (string, error) {
			g, err := user.LookupGroup(name)
			if err != nil {
				return "", err
			}
			return g.Gid, nil
		})
		if err != nil {
			return fmt.Errorf("lookup group %q: %w", group, err)
		}
		gid = id
	}
	return os.Chown(path, uid, gid)
}

// lookupID accept numeric ids as is, resolve names with lookup.
func lookupID(name string, lookup func(string) (string, error)) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	sid, err := lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(sid)
}
