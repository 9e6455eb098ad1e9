package mkfs_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/Fudanyrd/xv6fs/geometry"
	"github.com/Fudanyrd/xv6fs/layout"
	"github.com/Fudanyrd/xv6fs/mkfs"
)

func TestFormatWritesValidSuperblock(t *testing.T) {
	preset, err := geometry.Get("tiny")
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*layout.BSIZE)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))

	block := make([]byte, layout.BSIZE)
	_, err = stream.Seek(0, 0)
	require.NoError(t, err)
	_, err = stream.Read(block)
	require.NoError(t, err)

	sb := layout.DecodeSuperblock(block)
	require.EqualValues(t, layout.FSMagic, sb.Magic)
	require.EqualValues(t, preset.NInodes, sb.NInodes)
	require.EqualValues(t, preset.NLog, sb.NLog)
}

func TestFormatRootDirectoryHasDotEntries(t *testing.T) {
	preset, err := geometry.Get("tiny")
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*layout.BSIZE)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))

	block := make([]byte, layout.BSIZE)
	_, err = stream.Seek(0, 0)
	require.NoError(t, err)
	sbBlock := make([]byte, layout.BSIZE)
	_, err = stream.Read(sbBlock)
	require.NoError(t, err)
	sb := layout.DecodeSuperblock(sbBlock)

	inodeBlockLBA := int64(sb.InodeStart) * int64(layout.BSIZE)
	_, err = stream.Seek(inodeBlockLBA, 0)
	require.NoError(t, err)
	_, err = stream.Read(block)
	require.NoError(t, err)

	root := layout.DecodeDinode(block[layout.DinodeOffsetInBlock(layout.RootIno):])
	require.Equal(t, layout.RootIno != 0, true)
	require.EqualValues(t, 1, root.Nlink)

	dataBlock := make([]byte, layout.BSIZE)
	_, err = stream.Seek(int64(root.Addrs[0])*int64(layout.BSIZE), 0)
	require.NoError(t, err)
	_, err = stream.Read(dataBlock)
	require.NoError(t, err)

	dot := layout.DecodeDirent(dataBlock[:layout.DirentSize])
	require.Equal(t, ".", dot.NameString())
	require.EqualValues(t, layout.RootIno, dot.Inum)

	dotdot := layout.DecodeDirent(dataBlock[layout.DirentSize : 2*layout.DirentSize])
	require.Equal(t, "..", dotdot.NameString())
	require.EqualValues(t, layout.RootIno, dotdot.Inum)
}
