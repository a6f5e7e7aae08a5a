package git

import (
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// credentialLookup resolves user and group names to numeric ids.
type credentialLookup interface {
	LookupUser(name string) (*user.User, error)
	LookupGroup(name string) (*user.Group, error)
}

type osLookup struct{}

func (osLookup) LookupUser(name string) (*user.User, error)   { return user.Lookup(name) }
func (osLookup) LookupGroup(name string) (*user.Group, error) { return user.LookupGroup(name) }

// applyIdentity sets the child's credentials from the user/group options.
// When only a user is given, that user's primary group is used.
func (g *Git) applyIdentity(cmd *exec.Cmd, opts vcs.Options) error {
	userName := opts.Get(vcs.OptionUser, "")
	groupName := opts.Get(vcs.OptionGroup, "")
	if userName == "" && groupName == "" {
		return nil
	}

	cred, home, err := g.resolve(userName, groupName)
	if err != nil {
		return err
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	if home != "" {
		// git reads ~/.gitconfig and ssh keys relative to HOME
		cmd.Env = append(cmd.Environ(), "HOME="+home)
	}
	return nil
}

func (g *Git) resolve(userName, groupName string) (*syscall.Credential, string, error) {
	uid, gid := uint64(syscall.Getuid()), uint64(syscall.Getgid())
	var home string

	if userName != "" {
		u, err := g.lookup.LookupUser(userName)
		if err != nil {
			return nil, "", fmt.Errorf("lookup user %q: %w", userName, err)
		}
		if uid, err = strconv.ParseUint(u.Uid, 10, 32); err != nil {
			return nil, "", fmt.Errorf("user %q has non-numeric uid %q", userName, u.Uid)
		}
		if gid, err = strconv.ParseUint(u.Gid, 10, 32); err != nil {
			return nil, "", fmt.Errorf("user %q has non-numeric gid %q", userName, u.Gid)
		}
		home = u.HomeDir
	}

	if groupName != "" {
		grp, err := g.lookup.LookupGroup(groupName)
		if err != nil {
			return nil, "", fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		if gid, err = strconv.ParseUint(grp.Gid, 10, 32); err != nil {
			return nil, "", fmt.Errorf("group %q has non-numeric gid %q", groupName, grp.Gid)
		}
	}

	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, home, nil
}
