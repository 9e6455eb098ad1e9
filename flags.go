package xv6fs

import "strconv"

////////////////////////////////////////////////////////////////////////////////
// On-disk inode types (dinode.type, spec §3)

type InodeType uint16

const (
	// T_FREE marks an inode table slot as unused.
	T_FREE InodeType = 0
	// T_DIR is a directory inode.
	T_DIR InodeType = 1
	// T_FILE is a regular file inode.
	T_FILE InodeType = 2
	// T_DEV is a device special file inode.
	T_DEV InodeType = 3
)

func (t InodeType) String() string {
	switch t {
	case T_FREE:
		return "free"
	case T_DIR:
		return "dir"
	case T_FILE:
		return "file"
	case T_DEV:
		return "dev"
	default:
		return "unknown"
	}
}

////////////////////////////////////////////////////////////////////////////////
// Mount flags

// MountFlags carries the mount-time behavior switches recognized by Mount().
type MountFlags uint32

const (
	// MountReadOnly mounts the image read-only: every mutating operation in
	// §4.2, §4.5's allocate/free, and the write path of §4.6 fails with ErrReadOnly.
	MountReadOnly = MountFlags(1 << iota)
)

func (f MountFlags) ReadOnly() bool {
	return f&MountReadOnly != 0
}

// MountOptions carries the opaque key/value pairs from spec §6. Only "uid"
// and "gid" are recognized; recognition is case-sensitive and any other key
// makes ParseMountOptions fail with ErrInvalid.
type MountOptions struct {
	UID uint32
	GID uint32
}

// ParseMountOptions decodes a key/value map of mount options into the
// MountOptions that Mount() takes. Recognized keys are exactly "uid" and
// "gid"; anything else is rejected outright so typos don't silently mount
// with defaults.
func ParseMountOptions(raw map[string]string) (MountOptions, *DriverError) {
	var opts MountOptions
	for key, value := range raw {
		switch key {
		case "uid":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return MountOptions{}, NewDriverErrorWithMessage(ErrInvalid, "bad uid: "+value)
			}
			opts.UID = uint32(n)
		case "gid":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return MountOptions{}, NewDriverErrorWithMessage(ErrInvalid, "bad gid: "+value)
			}
			opts.GID = uint32(n)
		default:
			return MountOptions{}, NewDriverErrorWithMessage(ErrInvalid, "unrecognized mount option: "+key)
		}
	}
	return opts, nil
}
