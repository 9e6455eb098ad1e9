// Package mkfs builds a fresh file system image from an image-size preset
// (spec §4.8 "supplemented: format"). Grounded on the teacher's
// file_systems/unixv1/format.go: a single sequential pass over the image
// buffer written through a bytewriter.Writer, laying out the superblock,
// the reserved log region, the inode table, the free-block bitmap, and the
// data region (whose first block holds the root directory's "." and "..").
package mkfs

import (
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/noxer/bytewriter"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/geometry"
	"github.com/Fudanyrd/xv6fs/layout"
)

// Format writes a freshly-initialized image for preset to stream, starting
// from the beginning. stream must already be sized, or at least willing to
// grow on Write, to hold preset.TotalBlocks blocks.
func Format(stream io.WriteSeeker, preset geometry.Preset) error {
	sb := preset.Superblock()
	buf := make([]byte, uint64(sb.Size)*layout.BSIZE)
	writer := bytewriter.New(buf)

	zeroBlock := make([]byte, layout.BSIZE)

	sbBlock := make([]byte, layout.BSIZE)
	layout.EncodeSuperblock(sbBlock, sb)
	if _, err := writer.Write(sbBlock); err != nil {
		return err
	}

	for i := uint32(0); i < sb.NLog; i++ {
		if _, err := writer.Write(zeroBlock); err != nil {
			return err
		}
	}

	dataStart := sb.DataStart()
	rootDinode := layout.Dinode{
		Type:  uint16(xv6fs.T_DIR),
		Nlink: 1,
		Size:  2 * layout.DirentSize,
	}
	rootDinode.Addrs[0] = dataStart

	ninodeBlocks := sb.NInodeBlocks()
	for b := uint32(0); b < ninodeBlocks; b++ {
		block := make([]byte, layout.BSIZE)
		if b == 0 {
			off := layout.DinodeOffsetInBlock(layout.RootIno)
			layout.EncodeDinode(block[off:off+layout.DinodeSize], rootDinode)
		}
		if _, err := writer.Write(block); err != nil {
			return err
		}
	}

	nbmapBlocks := sb.NBmapBlocks()
	bm := bitmap.NewSlice(int(nbmapBlocks) * layout.BPB)
	for i := uint32(0); i < dataStart; i++ {
		bm.Set(int(i), true)
	}
	bm.Set(int(dataStart), true) // root directory's one data block
	bmBytes := []byte(bm)
	for b := uint32(0); b < nbmapBlocks; b++ {
		start := int(b) * layout.BSIZE
		end := start + layout.BSIZE
		chunk := make([]byte, layout.BSIZE)
		copy(chunk, bmBytes[start:end])
		if _, err := writer.Write(chunk); err != nil {
			return err
		}
	}

	rootDirBlock := make([]byte, layout.BSIZE)
	var dot, dotdot layout.Dirent
	dot.Inum = layout.RootIno
	dot.SetName(".")
	dotdot.Inum = layout.RootIno
	dotdot.SetName("..")
	layout.EncodeDirent(rootDirBlock[0:layout.DirentSize], dot)
	layout.EncodeDirent(rootDirBlock[layout.DirentSize:2*layout.DirentSize], dotdot)
	if _, err := writer.Write(rootDirBlock); err != nil {
		return err
	}

	for i := uint32(1); i < sb.NBlocks; i++ {
		if _, err := writer.Write(zeroBlock); err != nil {
			return err
		}
	}

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := stream.Write(buf)
	return err
}
