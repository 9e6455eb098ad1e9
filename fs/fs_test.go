package fs_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/fs"
	"github.com/Fudanyrd/xv6fs/geometry"
	"github.com/Fudanyrd/xv6fs/mkfs"
)

type testLogger struct{}

func (testLogger) Warnf(string, ...any)  {}
func (testLogger) Errorf(string, ...any) {}
func (testLogger) Fatalf(format string, args ...any) {
	panic(format)
}

func newMountedImage(t *testing.T, slug string) *fs.FSInfo {
	t.Helper()
	preset, err := geometry.Get(slug)
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*1024)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))

	fsi, err := fs.Mount(stream, 0, xv6fs.MountOptions{}, testLogger{})
	require.NoError(t, err)
	return fsi
}

func TestMountFreshImage(t *testing.T) {
	fsi := newMountedImage(t, "tiny")
	require.False(t, fsi.ReadOnly())

	stat, err := fsi.Stat()
	require.NoError(t, err)
	require.Greater(t, stat.TotalBlocks, uint64(0))
	require.Greater(t, stat.FilesFree, uint64(0))
}

func TestRootDirectoryLookupDotAndDotDot(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	self, err := fs.Lookup(root, ".")
	require.NoError(t, err)
	require.EqualValues(t, 1, self.Inum)
	fsi.Table.Put(self)

	parent, err := fs.Lookup(root, "..")
	require.NoError(t, err)
	require.EqualValues(t, 1, parent.Inum)
	fsi.Table.Put(parent)
}

func TestCreateWriteReadFile(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	file, err := fs.CreateFile(root, "hello.txt")
	require.NoError(t, err)
	defer fsi.Table.Put(file)

	payload := []byte("hello, xv6fs")
	n, err := fs.Write(file, 0, payload, false)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = fs.Read(file, 0, buf)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)

	found, err := fs.Lookup(root, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, file.Inum, found.Inum)
	fsi.Table.Put(found)
}

func TestWriteSpanningIndirectBlocks(t *testing.T) {
	fsi := newMountedImage(t, "default")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	file, err := fs.CreateFile(root, "big.bin")
	require.NoError(t, err)
	defer fsi.Table.Put(file)

	// Past NDIRECT*BSIZE forces the single indirect block to be used.
	offset := int64(13 * 1024)
	payload := []byte("past the direct blocks")
	_, err = fs.Write(file, offset, payload, false)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	n, err := fs.Read(file, offset, buf)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)

	// A hole before the written region reads back as zero.
	hole := make([]byte, 10)
	n, err = fs.Read(file, 1024, hole)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	for _, b := range hole {
		require.EqualValues(t, 0, b)
	}
}

func TestWriteAppendModeIgnoresRequestedOffset(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	file, err := fs.CreateFile(root, "log.txt")
	require.NoError(t, err)
	defer fsi.Table.Put(file)

	_, err = fs.Write(file, 0, []byte("first "), false)
	require.NoError(t, err)

	// offset is ignored in append mode; the write lands at the current size.
	_, err = fs.Write(file, 0, []byte("second"), true)
	require.NoError(t, err)

	buf := make([]byte, 12)
	n, err := fs.Read(file, 0, buf)
	require.NoError(t, err)
	require.Equal(t, "first second", string(buf[:n]))
}

func TestMkdirAndRmdir(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	sub, err := fs.Mkdir(root, "subdir")
	require.NoError(t, err)

	entries, err := fs.Readdir(root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Contains(t, names, "subdir")

	subEntries, err := fs.Readdir(sub)
	require.NoError(t, err)
	require.Len(t, subEntries, 2) // "." and ".."
	fsi.Table.Put(sub)

	require.NoError(t, fs.Rmdir(root, "subdir"))
	_, err = fs.Lookup(root, "subdir")
	require.ErrorIs(t, err, xv6fs.ErrNotExist)
}

func TestRmdirRejectsNonEmptyDirectory(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	sub, err := fs.Mkdir(root, "subdir")
	require.NoError(t, err)
	defer fsi.Table.Put(sub)

	child, err := fs.CreateFile(sub, "file.txt")
	require.NoError(t, err)
	fsi.Table.Put(child)

	err = fs.Rmdir(root, "subdir")
	require.ErrorIs(t, err, xv6fs.ErrNotEmpty)
}

func TestLinkAndUnlink(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	file, err := fs.CreateFile(root, "original.txt")
	require.NoError(t, err)
	defer fsi.Table.Put(file)

	require.NoError(t, fs.Link(root, "alias.txt", file))
	require.EqualValues(t, 2, file.Nlink)

	require.NoError(t, fs.Unlink(root, "original.txt"))
	_, err = fs.Lookup(root, "original.txt")
	require.ErrorIs(t, err, xv6fs.ErrNotExist)

	alias, err := fs.Lookup(root, "alias.txt")
	require.NoError(t, err)
	require.Equal(t, file.Inum, alias.Inum)
	fsi.Table.Put(alias)
}

func TestStatReportsMountWideOwner(t *testing.T) {
	preset, err := geometry.Get("tiny")
	require.NoError(t, err)

	buf := make([]byte, uint64(preset.TotalBlocks)*1024)
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, mkfs.Format(stream, preset))

	opts := xv6fs.MountOptions{UID: 501, GID: 20}
	fsi, err := fs.Mount(stream, 0, opts, testLogger{})
	require.NoError(t, err)

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	file, err := fs.CreateFile(root, "owned.txt")
	require.NoError(t, err)
	defer fsi.Table.Put(file)

	rootStat, err := fs.Stat(root)
	require.NoError(t, err)
	require.EqualValues(t, 501, rootStat.Uid)
	require.EqualValues(t, 20, rootStat.Gid)

	fileStat, err := fs.Stat(file)
	require.NoError(t, err)
	require.EqualValues(t, 501, fileStat.Uid)
	require.EqualValues(t, 20, fileStat.Gid)
	require.EqualValues(t, file.Inum, fileStat.InodeNumber)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	fsi := newMountedImage(t, "tiny")

	root, err := fsi.Table.Get(1)
	require.NoError(t, err)
	defer fsi.Table.Put(root)

	first, err := fs.CreateFile(root, "dup.txt")
	require.NoError(t, err)
	fsi.Table.Put(first)

	_, err = fs.CreateFile(root, "dup.txt")
	require.ErrorIs(t, err, xv6fs.ErrExist)
}
