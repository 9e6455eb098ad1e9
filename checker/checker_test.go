package checker_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/checker"
	"github.com/Fudanyrd/xv6fs/fs"
	"github.com/Fudanyrd/xv6fs/geometry"
	"github.com/Fudanyrd/xv6fs/layout"
	"github.com/Fudanyrd/xv6fs/mkfs"
)

func freshImage(t *testing.T, slug string) []byte {
	t.Helper()
	preset, err := geometry.Get(slug)
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*layout.BSIZE)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))
	return buf
}

func TestCheckAcceptsFreshlyFormattedImage(t *testing.T) {
	buf := freshImage(t, "tiny")
	stream := bytesextra.NewReadWriteSeeker(buf)

	report, status := checker.Check(stream)
	require.Equal(t, checker.StatusOK, status)
	require.Empty(t, report.Errors())
}

func TestCheckRejectsBadMagic(t *testing.T) {
	buf := freshImage(t, "tiny")
	// Corrupt the magic number at the start of the superblock.
	buf[0] = 0xFF
	buf[1] = 0xFF
	buf[2] = 0xFF
	buf[3] = 0xFF
	stream := bytesextra.NewReadWriteSeeker(buf)

	report, status := checker.Check(stream)
	require.Equal(t, checker.StatusInvalid, status)
	require.NotEmpty(t, report.Errors())
}

func TestCheckRejectsTruncatedImage(t *testing.T) {
	buf := freshImage(t, "tiny")
	stream := bytesextra.NewReadWriteSeeker(buf[:layout.BSIZE/2])

	_, status := checker.Check(stream)
	require.NotEqual(t, checker.StatusOK, status)
}

func TestCheckWarnsAboutRootEntries(t *testing.T) {
	preset, err := geometry.Get("default")
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*layout.BSIZE)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))

	fsi, err := fs.Mount(stream, 0, xv6fs.MountOptions{}, nil)
	require.NoError(t, err)
	root, err := fsi.Table.Get(layout.RootIno)
	require.NoError(t, err)
	file, err := fs.CreateFile(root, "notes.txt")
	require.NoError(t, err)
	require.NoError(t, fsi.Table.Put(file))
	require.NoError(t, fsi.Table.Put(root))

	report, status := checker.Check(stream)
	require.Equal(t, checker.StatusOK, status)
	require.Len(t, report.Warnings, 1)
	require.Contains(t, report.Warnings[0], "notes.txt")
}
