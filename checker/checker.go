// Package checker implements the offline image validator (spec §4.8): a
// read-only pass over a file system image that never mounts it and never
// trusts its contents, built on top of blockio (A) and the inode
// address/directory iteration logic in package fs (C, D). Ported from the
// original xv6fs's check.cpp.
package checker

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/fs"
	"github.com/Fudanyrd/xv6fs/layout"
)

// Exit codes mirror the original checker's return values, preserved for the
// CLI: 0 clean, 1 the image is structurally invalid, 2 the image could not
// even be read.
const (
	StatusOK         = 0
	StatusInvalid    = 1
	StatusUnreadable = 2
)

// Report collects every finding from a single Check run. Errors are the
// conditions that make the image unusable; Warnings call out things worth a
// human's attention that don't by themselves invalidate the image.
type Report struct {
	Warnings []string
	errs     *multierror.Error
}

// Errors returns every error finding as plain strings, in the order found.
func (r *Report) Errors() []string {
	if r.errs == nil {
		return nil
	}
	out := make([]string, len(r.errs.Errors))
	for i, e := range r.errs.Errors {
		out[i] = e.Error()
	}
	return out
}

// Err returns the aggregated error findings as a single error, or nil if
// the image passed every check.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

func (r *Report) addErrorf(format string, args ...any) {
	r.errs = multierror.Append(r.errs, fmt.Errorf(format, args...))
}

func (r *Report) addWarningf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// nullLogger discards Warnf/Errorf and turns Fatalf into a panic the checker
// recovers from, since nothing this package does may ever crash the process
// on a malformed image.
type nullLogger struct{}

func (nullLogger) Warnf(string, ...any)  {}
func (nullLogger) Errorf(string, ...any) {}
func (nullLogger) Fatalf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

// Check validates a file system image without mounting it (spec §4.8
// "check"). It never returns an error from I/O-adjacent failures that stop
// the check early; those are reported through the returned status code and
// Report instead, so a caller can always print something useful.
func Check(stream io.ReadWriteSeeker) (report *Report, status int) {
	report = &Report{}
	defer func() {
		if rec := recover(); rec != nil {
			report.addErrorf("internal invariant violated while checking image: %v", rec)
			status = StatusInvalid
		}
	}()

	probe := blockio.NewDevice(stream, 1, layout.BSIZE)
	block0, err := probe.ReadBlock(0)
	if err != nil {
		report.addErrorf("cannot read superblock: %v", err)
		return report, StatusUnreadable
	}
	sb := layout.DecodeSuperblock(block0)
	if sb.Magic != layout.FSMagic {
		report.addErrorf("incorrect magic number %#x, want %#x", sb.Magic, layout.FSMagic)
		return report, StatusInvalid
	}

	if ok := checkSuperblock(&sb, report); !ok {
		report.addErrorf("possibly corrupted superblock, aborting")
		return report, StatusInvalid
	}

	device := blockio.NewDevice(stream, blockio.LBA(sb.Size), layout.BSIZE)
	cache := blockio.NewCache(device)
	log := nullLogger{}
	allocator := blockio.NewAllocator(cache, nil, layout.BPB, blockio.LBA(sb.DataStart()), blockio.LBA(sb.Size), true, log)
	capability := blockio.NewCapability(cache, allocator, true)

	handle, err := capability.Read(blockio.LBA(sb.InodeStart))
	if err != nil {
		report.addErrorf("cannot read inode table block 0: %v", err)
		return report, StatusUnreadable
	}
	nullOff := layout.DinodeOffsetInBlock(0)
	nullInode := layout.DecodeDinode(handle.Data()[nullOff : nullOff+layout.DinodeSize])
	rootOff := layout.DinodeOffsetInBlock(layout.RootIno)
	rootDinode := layout.DecodeDinode(handle.Data()[rootOff : rootOff+layout.DinodeSize])
	handle.Release()

	if !nullInode.IsFree() {
		report.addErrorf("null inode (0) should be zeroed, found type %d", nullInode.Type)
		return report, StatusInvalid
	}
	if xv6fs.InodeType(rootDinode.Type) != xv6fs.T_DIR {
		report.addErrorf("root directory has incorrect type %d", rootDinode.Type)
		return report, StatusInvalid
	}
	if rootDinode.Size%layout.DirentSize != 0 {
		report.addErrorf("root directory size %d is not a multiple of the directory entry size", rootDinode.Size)
		return report, StatusInvalid
	}

	root := &fs.Inode{Inum: layout.RootIno, Type: xv6fs.T_DIR, Nlink: rootDinode.Nlink, Size: rootDinode.Size, Addrs: rootDinode.Addrs}
	iterErr := fs.DirIterate(capability, log, root, 2, false, func(idx uint32, de *layout.Dirent) fs.DirAction {
		if !de.IsEmpty() {
			report.addWarningf("root directory entry %d: %s (inode %d)", idx, de.NameString(), de.Inum)
		}
		return fs.DirAction{Cont: true}
	})
	if iterErr != nil {
		report.addErrorf("iterating root directory failed: %v", iterErr)
		return report, StatusInvalid
	}

	if report.errs.ErrorOrNil() != nil {
		return report, StatusInvalid
	}
	return report, StatusOK
}

// checkSuperblock validates the fixed layout fields against each other (spec
// §3 layout invariants), collecting every mismatch it finds rather than
// stopping at the first one, then reports whether the image's declared size
// is self-consistent. Ported from the original check.cpp's xv6_check_sb.
func checkSuperblock(sb *layout.Superblock, report *Report) bool {
	ok := true

	size := uint32(1)
	if sb.LogStart != size {
		report.addErrorf("expected logstart = %d, got %d", size, sb.LogStart)
		ok = false
	}
	size += sb.NLog

	ninodeBlocks := sb.NInodeBlocks()
	if sb.InodeStart != size {
		report.addErrorf("expected inodestart = %d, got %d", size, sb.InodeStart)
		ok = false
	}
	size += ninodeBlocks

	if sb.BmapStart != size {
		report.addErrorf("expected bmapstart = %d, got %d", size, sb.BmapStart)
		ok = false
	}
	size += sb.NBmapBlocks()

	size += sb.NBlocks
	if sb.Size < size {
		report.addErrorf("disk too small (%d blocks), should be at least %d", sb.Size, size)
		ok = false
	} else if sb.Size > size {
		report.addWarningf("disk too large (%d blocks), expected %d", sb.Size, size)
	}

	return ok
}
