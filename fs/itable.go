package fs

import (
	"sync"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/layout"
)

// Table is the in-memory inode table (spec §4.5): a reference-counted cache
// of *Inode keyed by inode number, backed by the on-disk inode blocks.
// mapMu is the inner, map-only lock (spec §5, lock order 2); allocation and
// freeing additionally take FSInfo.metaMu (lock order 1) because they mutate
// the shared on-disk inode free list, the same resource the bitmap
// allocator protects.
type Table struct {
	fs     *FSInfo
	mapMu  sync.Mutex
	inodes map[uint32]*Inode
}

func newTable(fs *FSInfo) *Table {
	return &Table{fs: fs, inodes: make(map[uint32]*Inode)}
}

func (t *Table) inodeBlock(inum uint32) blockio.LBA {
	return blockio.LBA(t.fs.Superblock.InodeStart + inum/layout.IPB)
}

func (t *Table) readDinode(inum uint32) (layout.Dinode, error) {
	handle, err := t.fs.cap.Read(t.inodeBlock(inum))
	if err != nil {
		return layout.Dinode{}, err
	}
	defer handle.Release()
	off := layout.DinodeOffsetInBlock(inum)
	return layout.DecodeDinode(handle.Data()[off : off+layout.DinodeSize]), nil
}

func (t *Table) writeDinode(inum uint32, d layout.Dinode) error {
	handle, err := t.fs.cap.Read(t.inodeBlock(inum))
	if err != nil {
		return err
	}
	defer handle.Release()
	off := layout.DinodeOffsetInBlock(inum)
	layout.EncodeDinode(handle.Data()[off:off+layout.DinodeSize], d)
	handle.MarkDirty()
	return handle.Flush()
}

// Get returns the cached in-memory inode for inum, loading it from disk on
// first reference, and bumps its reference count (spec §4.5 "get").
func (t *Table) Get(inum uint32) (*Inode, error) {
	if inum == 0 || inum >= t.fs.Superblock.NInodes {
		return nil, xv6fs.NewDriverErrorWithMessage(xv6fs.ErrInvalid, "inode number out of range")
	}

	t.mapMu.Lock()
	defer t.mapMu.Unlock()

	if ino, ok := t.inodes[inum]; ok {
		ino.refcount++
		return ino, nil
	}

	d, err := t.readDinode(inum)
	if err != nil {
		return nil, err
	}
	ino := &Inode{fs: t.fs, Inum: inum, refcount: 1}
	ino.loadDinode(d)
	t.inodes[inum] = ino
	return ino, nil
}

// Put drops one reference to ino (spec §4.5 "put"). On the last reference,
// an inode whose link count has dropped to zero is truncated and its table
// slot freed; otherwise its attributes are flushed to disk.
func (t *Table) Put(ino *Inode) error {
	t.mapMu.Lock()
	ino.refcount--
	last := ino.refcount <= 0
	if last {
		delete(t.inodes, ino.Inum)
	}
	t.mapMu.Unlock()

	if !last {
		return nil
	}

	ino.Lock()
	nlink := ino.Nlink
	ino.Unlock()

	if nlink == 0 {
		if err := Truncate(ino); err != nil {
			return err
		}
		return t.Free(ino.Inum)
	}
	return t.Sync(ino)
}

// Sync writes ino's in-memory attributes back to its on-disk dinode record
// (spec §4.5 "sync").
func (t *Table) Sync(ino *Inode) error {
	ino.RLock()
	defer ino.RUnlock()
	return t.syncLocked(ino)
}

// syncLocked is Sync for a caller that already holds ino's lock (read or
// write); file and directory operations use this to flush attributes
// without recursively locking the inode.
func (t *Table) syncLocked(ino *Inode) error {
	return t.writeDinode(ino.Inum, ino.toDinode())
}

// Allocate finds a free inode table slot, writes image into it, and returns
// a cached, reference-counted handle to the new inode (spec §4.5
// "allocate"). Inode 0 (null) and inode 1 (root) are reserved and never
// handed out; the scan starts at inode 2.
func (t *Table) Allocate(image layout.Dinode) (*Inode, error) {
	t.fs.metaMu.Lock()
	defer t.fs.metaMu.Unlock()

	for inum := uint32(2); inum < t.fs.Superblock.NInodes; inum++ {
		d, err := t.readDinode(inum)
		if err != nil {
			return nil, err
		}
		if !d.IsFree() {
			continue
		}
		if err := t.writeDinode(inum, image); err != nil {
			return nil, err
		}

		ino := &Inode{fs: t.fs, Inum: inum, refcount: 1}
		ino.loadDinode(image)

		t.mapMu.Lock()
		t.inodes[inum] = ino
		t.mapMu.Unlock()
		return ino, nil
	}
	return nil, xv6fs.NewDriverError(xv6fs.ErrNoSpace)
}

// Free zeroes inum's on-disk dinode record, returning the slot to the free
// list (spec §4.5 "free").
func (t *Table) Free(inum uint32) error {
	t.fs.metaMu.Lock()
	defer t.fs.metaMu.Unlock()
	return t.writeDinode(inum, layout.Dinode{})
}

// dropCache removes inum from the in-memory cache without touching its
// on-disk record. Used to unwind a just-allocated inode when a directory
// mutation that was going to reference it fails.
func (t *Table) dropCache(inum uint32) {
	t.mapMu.Lock()
	delete(t.inodes, inum)
	t.mapMu.Unlock()
}

// freeInodeCountLocked counts unused inode table slots. Callers must already
// hold fs.metaMu (FSInfo.Stat does).
func (t *Table) freeInodeCountLocked() (uint64, error) {
	var n uint64
	for inum := uint32(1); inum < t.fs.Superblock.NInodes; inum++ {
		d, err := t.readDinode(inum)
		if err != nil {
			return 0, err
		}
		if d.IsFree() {
			n++
		}
	}
	return n, nil
}
