package fs

import (
	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/layout"
)

// DirAction is the per-entry decision a Visitor hands back to DirIterate
// (spec §4.4): whether to keep scanning, whether the entry it just looked at
// was modified in place, and whether the directory should grow by one entry
// once the existing entries run out.
type DirAction struct {
	Cont     bool // keep iterating (or, on the last existing entry, consider extension)
	DeDirty  bool // this Dirent was modified and must be written back
	DirExt   bool // if iteration runs out of existing entries, append one more
	DirDirty bool // with DirExt (or on the appended entry itself): the appended entry counts toward the directory's size
}

// Visitor inspects or mutates the directory entry at logical index idx.
// Indices within the directory's current size that fall inside an
// unallocated ("hole") block are delivered as a zero Dirent; mutating one is
// logged and ignored, since holes carry no storage to write back to.
type Visitor func(idx uint32, de *layout.Dirent) DirAction

// DirIterate walks dir's entries starting at logical index off, calling
// visit for each one, then optionally extends the directory by a single
// entry once existing entries are exhausted (spec §4.4 "dir_iterate"). cap
// and log are passed explicitly rather than read off dir so that callers
// without a full mounted FSInfo (the offline checker) can reuse it directly
// over C and D alone. Ported from the original xv6fs's xv6_dir_iterate:
// existing entries are decoded a block at a time, handed to visit, and
// written back together if any of them came back dirty; the extension phase
// is a second, one-entry pass appended after the scan. Callers must hold
// dir's lock for the duration — a write lock if rw is true, since extension
// and hole-skipping both allocate blocks.
func DirIterate(cap blockio.Capability, log xv6fs.Logger, dir *Inode, off uint32, rw bool, visit Visitor) error {
	if !dir.IsDir() {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	if dir.Size%layout.DirentSize != 0 {
		log.Fatalf("directory inode %d has size %d, not a multiple of the dirent size", dir.Inum, dir.Size)
	}

	const nents = uint32(layout.EntriesPerBlock)
	sizeEntries := dir.Size / layout.DirentSize
	if off > sizeEntries {
		return nil
	}

	remaining := sizeEntries - off
	blockIdx := off / nents
	slotOff := off % nents

	act := DirAction{Cont: true}
	stopped := false

	for remaining > 0 && !stopped {
		lim := nents - slotOff
		if lim > remaining {
			lim = remaining
		}

		blockno, err := dir.Addr(cap, blockIdx, rw)
		if err != nil {
			return err
		}

		if blockno == 0 {
			var hole layout.Dirent
			for k := uint32(0); k < lim; k++ {
				idx := blockIdx*nents + slotOff + k
				act = visit(idx, &hole)
				if act.DeDirty {
					log.Warnf("directory %d: visitor modified hole entry %d, ignoring", dir.Inum, idx)
				}
				if !act.Cont {
					stopped = true
					break
				}
			}
		} else {
			handle, err := cap.Read(blockio.LBA(blockno))
			if err != nil {
				return err
			}
			data := handle.Data()
			entries := make([]layout.Dirent, nents)
			for k := uint32(0); k < nents; k++ {
				entries[k] = layout.DecodeDirent(data[k*layout.DirentSize : (k+1)*layout.DirentSize])
			}

			anyDirty := false
			for k := uint32(0); k < lim; k++ {
				idx := blockIdx*nents + slotOff + k
				act = visit(idx, &entries[slotOff+k])
				if act.DeDirty {
					anyDirty = true
				}
				if !act.Cont {
					stopped = true
					break
				}
			}

			if anyDirty {
				for k := uint32(0); k < nents; k++ {
					layout.EncodeDirent(data[k*layout.DirentSize:(k+1)*layout.DirentSize], entries[k])
				}
				handle.MarkDirty()
				if ferr := handle.Flush(); ferr != nil {
					handle.Release()
					return ferr
				}
			}
			handle.Release()
		}

		remaining -= lim
		blockIdx++
		slotOff = 0
	}

	if !act.Cont || !act.DirExt {
		return nil
	}
	if !rw {
		return xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}

	idx := sizeEntries
	blockIdx = idx / nents
	slot := idx % nents
	blockno, err := dir.Addr(cap, blockIdx, true)
	if err != nil {
		return err
	}
	handle, err := cap.Read(blockio.LBA(blockno))
	if err != nil {
		return err
	}
	entOff := slot * layout.DirentSize
	de := layout.DecodeDirent(handle.Data()[entOff : entOff+layout.DirentSize])
	extAct := visit(idx, &de)
	if extAct.DeDirty {
		layout.EncodeDirent(handle.Data()[entOff:entOff+layout.DirentSize], de)
		handle.MarkDirty()
		if ferr := handle.Flush(); ferr != nil {
			handle.Release()
			return ferr
		}
	}
	handle.Release()

	if act.DirDirty || extAct.DirDirty {
		dir.Size += layout.DirentSize
		dir.dirty = true
	}
	return nil
}
