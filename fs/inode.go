package fs

import (
	"sync"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/layout"
)

// Inode is the in-memory, reference-counted copy of a dinode (spec §3
// "In-memory inode", §4.5 inode table). Its fields mirror the on-disk record
// exactly. On a mounted image the inode table constructs them; the offline
// checker builds a bare one, with no owning FSInfo, for the root directory.
type Inode struct {
	fs   *FSInfo
	Inum uint32

	mu sync.RWMutex // per-inode lock (spec §5, lock order 3)

	Type  xv6fs.InodeType
	Major uint16
	Minor uint16
	Nlink uint16
	Size  uint32
	Addrs [layout.NDIRECT + 1]uint32

	refcount int32
	dirty    bool
}

// Lock/Unlock/RLock/RUnlock expose the per-inode lock to file and directory
// operations (spec §5: callers take it for the duration of read/write/
// truncate/dir mutation).
func (ino *Inode) Lock()    { ino.mu.Lock() }
func (ino *Inode) Unlock()  { ino.mu.Unlock() }
func (ino *Inode) RLock()   { ino.mu.RLock() }
func (ino *Inode) RUnlock() { ino.mu.RUnlock() }

func (ino *Inode) IsDir() bool { return ino.Type == xv6fs.T_DIR }

// Stat renders ino as a host-facing xv6fs.FileStat (spec §6 "uid"/"gid":
// "Owner uid/gid reported for every inode"). xv6 dinodes carry no per-file
// owner on disk, so every inode reports the single uid/gid pair supplied at
// mount time via MountOptions, uniformly.
func Stat(ino *Inode) (xv6fs.FileStat, error) {
	ino.RLock()
	defer ino.RUnlock()

	numBlocks, err := ino.blockCountLocked()
	if err != nil {
		return xv6fs.FileStat{}, err
	}

	return xv6fs.FileStat{
		InodeNumber: uint64(ino.Inum),
		Nlinks:      uint64(ino.Nlink),
		Type:        ino.Type,
		Uid:         ino.fs.Options.UID,
		Gid:         ino.fs.Options.GID,
		Size:        int64(ino.Size),
		BlockSize:   layout.BSIZE,
		NumBlocks:   numBlocks,
	}, nil
}

// blockCountLocked counts every data block ino currently addresses, direct
// and indirect, plus the indirect block itself when allocated. Caller must
// hold ino.mu.
func (ino *Inode) blockCountLocked() (int64, error) {
	var n int64
	for i := 0; i < layout.NDIRECT; i++ {
		if ino.Addrs[i] != 0 {
			n++
		}
	}

	indirect := ino.Addrs[layout.NDIRECT]
	if indirect == 0 {
		return n, nil
	}
	n++

	handle, err := ino.fs.cap.Read(blockio.LBA(indirect))
	if err != nil {
		return 0, err
	}
	defer handle.Release()

	for _, b := range layout.DecodeIndirect(handle.Data()) {
		if b != 0 {
			n++
		}
	}
	return n, nil
}

func (ino *Inode) toDinode() layout.Dinode {
	return layout.Dinode{
		Type:  uint16(ino.Type),
		Major: ino.Major,
		Minor: ino.Minor,
		Nlink: ino.Nlink,
		Size:  ino.Size,
		Addrs: ino.Addrs,
	}
}

func (ino *Inode) loadDinode(d layout.Dinode) {
	ino.Type = xv6fs.InodeType(d.Type)
	ino.Major = d.Major
	ino.Minor = d.Minor
	ino.Nlink = d.Nlink
	ino.Size = d.Size
	ino.Addrs = d.Addrs
}

// Addr resolves the logical block index i to a physical block number,
// optionally allocating it on demand (spec §4.3 "addr"). Caller must hold
// ino.mu for writing if alloc is true. Ported from the original xv6fs'
// xv6_inode_addr: direct indices are served straight out of Addrs; indices
// beyond NDIRECT are served through the single indirect block, whose own
// slot is flushed before Addr returns so a crash never leaves an allocated
// data block unreachable through a stale indirect entry.
//
// Every allocating path goes through ino.fs.AllocateBlock(), not cap
// directly, so concurrent Addr calls against different inodes still
// serialize on the filesystem-wide bitmap mutex (spec §5, lock order 1)
// instead of racing the allocator underneath per-inode locks. cap is used
// for Read only; alloc is never true for an Inode built without an owning
// FSInfo (the offline checker never mutates).
func (ino *Inode) Addr(cap blockio.Capability, i uint32, alloc bool) (uint32, error) {
	if i >= layout.MAXFILE {
		return 0, xv6fs.NewDriverError(xv6fs.ErrFileTooBig)
	}

	if i < layout.NDIRECT {
		if ino.Addrs[i] != 0 {
			return ino.Addrs[i], nil
		}
		if !alloc {
			return 0, nil
		}
		b, err := ino.fs.AllocateBlock()
		if err != nil {
			return 0, err
		}
		ino.Addrs[i] = b
		ino.dirty = true
		return b, nil
	}

	j := i - layout.NDIRECT
	if ino.Addrs[layout.NDIRECT] == 0 {
		if !alloc {
			return 0, nil
		}
		b, err := ino.fs.AllocateBlock()
		if err != nil {
			return 0, err
		}
		ino.Addrs[layout.NDIRECT] = b
		ino.dirty = true
	}

	handle, err := cap.Read(blockio.LBA(ino.Addrs[layout.NDIRECT]))
	if err != nil {
		return 0, err
	}
	defer handle.Release()

	datano := layout.GetIndirectEntry(handle.Data(), int(j))
	if datano == 0 {
		if !alloc {
			return 0, nil
		}
		b, err := ino.fs.AllocateBlock()
		if err != nil {
			return 0, err
		}
		layout.PutIndirectEntry(handle.Data(), int(j), b)
		handle.MarkDirty()
		if err := handle.Flush(); err != nil {
			return 0, err
		}
		datano = b
	}
	return datano, nil
}
