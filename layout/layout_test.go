package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLayout(t *testing.T) {
	sb := ComputeLayout(2000, 200, 30)
	require.EqualValues(t, FSMagic, sb.Magic)
	require.EqualValues(t, 1, sb.LogStart)
	require.EqualValues(t, 1+30, sb.InodeStart)
	require.EqualValues(t, sb.InodeStart+sb.NInodeBlocks(), sb.BmapStart)
	require.EqualValues(t, sb.BmapStart+sb.NBmapBlocks(), sb.DataStart())
	require.EqualValues(t, 2000-sb.DataStart(), sb.NBlocks)
}

func TestSuperblockCodecRoundTrip(t *testing.T) {
	sb := ComputeLayout(2000, 200, 30)
	block := make([]byte, BSIZE)
	EncodeSuperblock(block, sb)
	got := DecodeSuperblock(block)
	require.Equal(t, sb, got)
}

func TestDinodeCodecRoundTrip(t *testing.T) {
	d := Dinode{Type: 2, Major: 0, Minor: 0, Nlink: 1, Size: 4096}
	d.Addrs[0] = 100
	d.Addrs[NDIRECT] = 200

	raw := make([]byte, DinodeSize)
	EncodeDinode(raw, d)
	got := DecodeDinode(raw)
	require.Equal(t, d, got)
}

func TestDirentCodecRoundTrip(t *testing.T) {
	var de Dirent
	de.Inum = 7
	de.SetName("hello.txt")

	raw := make([]byte, DirentSize)
	EncodeDirent(raw, de)
	got := DecodeDirent(raw)
	require.Equal(t, de, got)
	require.Equal(t, "hello.txt", got.NameString())
}

func TestDirentSetNameTruncates(t *testing.T) {
	var de Dirent
	de.SetName("this-name-is-definitely-too-long")
	require.LessOrEqual(t, len(de.NameString()), DIRSIZ)
}

func TestIndirectEntries(t *testing.T) {
	block := make([]byte, BSIZE)
	PutIndirectEntry(block, 5, 42)
	require.EqualValues(t, 42, GetIndirectEntry(block, 5))

	entries := DecodeIndirect(block)
	require.EqualValues(t, 42, entries[5])
}
