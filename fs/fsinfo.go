// Package fs implements the xv6fs engine: the inode indirection layer
// (spec §4.3), the directory iteration/mutation protocol (§4.4), the inode
// table (§4.5), file operations (§4.6), and directory operations (§4.7),
// built over the block I/O capability in package blockio.
package fs

import (
	"fmt"
	"io"
	"sync"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/layout"
)

// FSInfo is the mounted-filesystem handle returned by Mount (spec §3
// "Filesystem info", §6 "fill_super"). It owns the block capability, the
// free-block allocator, and the inode table, and serializes access to both
// per the lock-order discipline in spec §5.
type FSInfo struct {
	Superblock layout.Superblock
	Options    xv6fs.MountOptions
	Log        xv6fs.Logger

	cap       blockio.Capability
	allocator *blockio.Allocator
	readOnly  bool

	// metaMu is the filesystem-wide bitmap/inode-table mutex (spec §5, lock
	// order 1): it serializes both the block allocator and the inode table.
	metaMu sync.Mutex

	Table *Table
}

// Mount reads the superblock from stream, validates the on-disk layout
// against the fields it declares, and returns a handle to the mounted file
// system (spec §6 fill_super). Set MountReadOnly in mountFlags to reject all
// mutating operations at the source (spec §5 "Read-only mode").
func Mount(stream io.ReadWriteSeeker, mountFlags xv6fs.MountFlags, opts xv6fs.MountOptions, log xv6fs.Logger) (*FSInfo, error) {
	if log == nil {
		log = xv6fs.NewStderrLogger()
	}

	probe := blockio.NewDevice(stream, 1, layout.BSIZE)
	block0, err := probe.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	sb := layout.DecodeSuperblock(block0)
	if sb.Magic != layout.FSMagic {
		return nil, xv6fs.NewDriverErrorWithMessage(
			xv6fs.ErrInvalid,
			fmt.Sprintf("bad superblock magic: got %#x, want %#x", sb.Magic, layout.FSMagic),
		)
	}

	want := layout.ComputeLayout(sb.Size, sb.NInodes, sb.NLog)
	if sb.InodeStart != want.InodeStart || sb.BmapStart != want.BmapStart {
		return nil, xv6fs.NewDriverErrorWithMessage(
			xv6fs.ErrInvalid,
			"superblock layout fields do not match the computed geometry",
		)
	}

	device := blockio.NewDevice(stream, blockio.LBA(sb.Size), layout.BSIZE)
	cache := blockio.NewCache(device)

	dataStart := sb.DataStart()
	nBmapBlocks := sb.NBmapBlocks()
	bitmapLBAs := make([]blockio.LBA, nBmapBlocks)
	for i := range bitmapLBAs {
		bitmapLBAs[i] = blockio.LBA(sb.BmapStart) + blockio.LBA(i)
	}

	readOnly := mountFlags.ReadOnly()
	allocator := blockio.NewAllocator(cache, bitmapLBAs, layout.BPB, blockio.LBA(dataStart), blockio.LBA(sb.Size), readOnly, log)
	capability := blockio.NewCapability(cache, allocator, readOnly)

	fsi := &FSInfo{
		Superblock: sb,
		Options:    opts,
		Log:        log,
		cap:        capability,
		allocator:  allocator,
		readOnly:   readOnly,
	}
	fsi.Table = newTable(fsi)
	return fsi, nil
}

// ReadOnly reports whether this mount rejects mutation.
func (fsi *FSInfo) ReadOnly() bool {
	return fsi.readOnly
}

// Cap exposes the underlying block I/O capability to callers that need raw
// block access, e.g. for reading the inode table directly.
func (fsi *FSInfo) Cap() blockio.Capability {
	return fsi.cap
}

// AllocateBlock allocates one free data block under the filesystem-wide
// mutex (spec §5 lock order 1, shared with the inode table).
func (fsi *FSInfo) AllocateBlock() (uint32, error) {
	fsi.metaMu.Lock()
	defer fsi.metaMu.Unlock()
	b, err := fsi.cap.AllocateBlock()
	return uint32(b), err
}

// FreeBlock frees a data block under the filesystem-wide mutex.
func (fsi *FSInfo) FreeBlock(b uint32) error {
	fsi.metaMu.Lock()
	defer fsi.metaMu.Unlock()
	return fsi.cap.FreeBlock(blockio.LBA(b))
}

// Stat summarizes occupancy for FSStat-style reporting.
func (fsi *FSInfo) Stat() (xv6fs.FSStat, error) {
	fsi.metaMu.Lock()
	defer fsi.metaMu.Unlock()

	free, err := fsi.allocator.FreeBlocks()
	if err != nil {
		return xv6fs.FSStat{}, err
	}
	freeInodes, err := fsi.Table.freeInodeCountLocked()
	if err != nil {
		return xv6fs.FSStat{}, err
	}
	return xv6fs.FSStat{
		BlockSize:       layout.BSIZE,
		TotalBlocks:     uint64(fsi.Superblock.Size),
		BlocksFree:      free,
		BlocksAvailable: free,
		Files:           uint64(fsi.Superblock.NInodes),
		FilesFree:       freeInodes,
		MaxNameLength:   layout.DIRSIZ,
	}, nil
}
