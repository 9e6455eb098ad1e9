package fs

import (
	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/layout"
)

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Read copies up to len(buf) bytes starting at offset into buf, clamped to
// the inode's current size, and returns the number of bytes copied (spec
// §4.6 "read"). Holes (unallocated direct/indirect slots) read back as
// zeroes, matching the teacher's sparse-file convention.
func Read(ino *Inode, offset int64, buf []byte) (int, error) {
	ino.RLock()
	defer ino.RUnlock()

	if offset < 0 {
		return 0, xv6fs.NewDriverError(xv6fs.ErrInvalid)
	}
	if uint64(offset) >= uint64(ino.Size) {
		return 0, nil
	}

	want := len(buf)
	if remaining := int64(ino.Size) - offset; int64(want) > remaining {
		want = int(remaining)
	}

	read := 0
	for read < want {
		pos := offset + int64(read)
		i := uint32(pos / layout.BSIZE)
		boff := int(pos % layout.BSIZE)
		chunk := minInt(want-read, layout.BSIZE-boff)

		blockno, err := ino.Addr(ino.fs.cap, i, false)
		if err != nil {
			return read, err
		}
		if blockno == 0 {
			for k := 0; k < chunk; k++ {
				buf[read+k] = 0
			}
		} else {
			handle, err := ino.fs.cap.Read(blockio.LBA(blockno))
			if err != nil {
				return read, err
			}
			copy(buf[read:read+chunk], handle.Data()[boff:boff+chunk])
			handle.Release()
		}
		read += chunk
	}
	return read, nil
}

// Write copies data into ino starting at offset, allocating blocks as
// needed, and extends ino.Size if the write runs past the current end (spec
// §4.6 "write"). Each block is flushed as it's written; on a failure partway
// through, Write returns the count of bytes it managed to commit and the
// error that stopped it, per spec's "flush what was written, stop". When
// appendMode is true (the file was opened with append semantics, a flag the
// host communicates per call), offset is snapped to ino.Size before any of
// that happens, so the caller's requested offset is ignored in favor of the
// current end of file.
func Write(ino *Inode, offset int64, data []byte, appendMode bool) (int, error) {
	if ino.fs.ReadOnly() {
		return 0, xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}
	ino.Lock()
	defer ino.Unlock()

	if appendMode {
		offset = int64(ino.Size)
	}

	if offset < 0 {
		return 0, xv6fs.NewDriverError(xv6fs.ErrInvalid)
	}
	if offset+int64(len(data)) > int64(layout.MAXFILE)*layout.BSIZE {
		return 0, xv6fs.NewDriverError(xv6fs.ErrFileTooBig)
	}

	var opErr error
	written := 0
	for written < len(data) {
		pos := offset + int64(written)
		i := uint32(pos / layout.BSIZE)
		boff := int(pos % layout.BSIZE)
		chunk := minInt(len(data)-written, layout.BSIZE-boff)

		blockno, err := ino.Addr(ino.fs.cap, i, true)
		if err != nil {
			opErr = err
			break
		}
		handle, err := ino.fs.cap.Read(blockio.LBA(blockno))
		if err != nil {
			opErr = err
			break
		}
		copy(handle.Data()[boff:boff+chunk], data[written:written+chunk])
		handle.MarkDirty()
		flushErr := handle.Flush()
		handle.Release()
		if flushErr != nil {
			opErr = flushErr
			break
		}
		written += chunk
	}

	if written > 0 {
		newSize := uint32(offset) + uint32(written)
		if newSize > ino.Size {
			ino.Size = newSize
		}
		ino.dirty = true
		if syncErr := ino.fs.Table.syncLocked(ino); syncErr != nil && opErr == nil {
			opErr = syncErr
		}
	}
	return written, opErr
}

// Truncate frees every block ino addresses, direct and indirect, and resets
// its size to zero (spec §4.6 "truncate"). Called both as an explicit
// operation and by the inode table when an unlinked inode's last reference
// is dropped.
func Truncate(ino *Inode) error {
	if ino.fs.ReadOnly() {
		return xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}
	ino.Lock()
	defer ino.Unlock()

	for i := 0; i < layout.NDIRECT; i++ {
		if ino.Addrs[i] != 0 {
			if err := ino.fs.FreeBlock(ino.Addrs[i]); err != nil {
				return err
			}
			ino.Addrs[i] = 0
		}
	}

	if indirect := ino.Addrs[layout.NDIRECT]; indirect != 0 {
		handle, err := ino.fs.cap.Read(blockio.LBA(indirect))
		if err != nil {
			return err
		}
		entries := layout.DecodeIndirect(handle.Data())
		handle.Release()

		for _, b := range entries {
			if b == 0 {
				continue
			}
			if err := ino.fs.FreeBlock(b); err != nil {
				return err
			}
		}
		if err := ino.fs.FreeBlock(indirect); err != nil {
			return err
		}
		ino.Addrs[layout.NDIRECT] = 0
	}

	ino.Size = 0
	ino.dirty = true
	return ino.fs.Table.syncLocked(ino)
}
