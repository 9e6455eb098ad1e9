package xv6fs

import (
	"os"
	"time"
)

// FSStat is a platform-independent summary of file system occupancy,
// returned by the mounted file system handle's Stat method. It mirrors
// the shape of [syscall.Statfs_t] without tying callers to a single OS.
type FSStat struct {
	BlockSize       int64
	TotalBlocks     uint64
	BlocksFree      uint64
	BlocksAvailable uint64
	Files           uint64
	FilesFree       uint64
	MaxNameLength   int64
}

// FileStat mirrors the fields of an in-memory inode (spec §3 "In-memory
// inode") that are meaningful to a caller outside the engine.
type FileStat struct {
	InodeNumber  uint64
	Nlinks       uint64
	Type         InodeType
	Uid          uint32
	Gid          uint32
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	LastModified time.Time
}

func (stat *FileStat) IsDir() bool {
	return stat.Type == T_DIR
}

func (stat *FileStat) IsFile() bool {
	return stat.Type == T_FILE
}

// Mode renders Type as an os.FileMode for os-shaped call sites: directories
// get os.ModeDir|0o755, everything else 0o644.
func (stat *FileStat) Mode() os.FileMode {
	if stat.IsDir() {
		return os.ModeDir | 0o755
	}
	return 0o644
}

// Logger is the three-level logging capability spec §6 asks the host to
// supply. Fatalf must not return; it is reserved for broken invariants (a
// corrupted bitmap, a directory whose size isn't a multiple of sizeof(dirent))
// and never for ordinary request failures, which are returned as errors.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}
