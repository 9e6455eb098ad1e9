// Package layout defines the on-disk data structures of the xv6-style file
// system image (spec §3): the superblock, the packed inode and directory
// entry records, and the constants that tie them together. Everything here
// is bit-exact and little-endian; encoding/decoding lives in codec.go.
package layout

const (
	// BSIZE is the size in bytes of every block on the device, including
	// the superblock, inode table blocks, bitmap blocks, and data blocks.
	BSIZE = 1024

	// DinodeSize is sizeof(dinode) on disk: type(2) + major(2) + minor(2) +
	// nlink(2) + size(4) + addrs[NDIRECT+1](4 each).
	DinodeSize = 2 + 2 + 2 + 2 + 4 + (NDIRECT+1)*4

	// IPB is the number of packed dinodes per block.
	IPB = BSIZE / DinodeSize

	// BPB is the number of bits one bitmap block can represent.
	BPB = BSIZE * 8

	// NDIRECT is the number of direct block pointers in a dinode.
	NDIRECT = 12

	// NINDIRECT is the number of block pointers held in one indirect block.
	NINDIRECT = BSIZE / 4

	// MAXFILE is the file size limit in blocks; valid logical block indices
	// are 0 through MAXFILE-1.
	MAXFILE = NDIRECT + NINDIRECT

	// DIRSIZ is the maximum length of a directory entry name.
	DIRSIZ = 14

	// DirentSize is sizeof(dirent) on disk: inum(2) + name(14).
	DirentSize = 2 + DIRSIZ

	// EntriesPerBlock is the number of dirents packed into one directory
	// block.
	EntriesPerBlock = BSIZE / DirentSize

	// FSMagic is the sentinel value every valid superblock's Magic field
	// must carry.
	FSMagic = 0x10203040

	// RootIno is the inode number of the root directory. Inode 0 is the
	// reserved null inode.
	RootIno = 1
)

func init() {
	if BSIZE%DinodeSize != 0 {
		panic("layout: sizeof(dinode) must divide BSIZE")
	}
	if BSIZE%DirentSize != 0 {
		panic("layout: sizeof(dirent) must divide BSIZE")
	}
}

// Superblock mirrors the packed, little-endian on-disk superblock stored in
// block 0 (spec §3).
type Superblock struct {
	Magic      uint32
	Size       uint32 // total blocks on the device
	NBlocks    uint32 // data blocks
	NInodes    uint32
	NLog       uint32 // reserved log region size, in blocks
	LogStart   uint32
	InodeStart uint32
	BmapStart  uint32
}

// NInodeBlocks returns the number of blocks occupied by the inode table.
func (sb *Superblock) NInodeBlocks() uint32 {
	return ceilDiv(sb.NInodes, IPB)
}

// NBmapBlocks returns the number of blocks occupied by the free-block bitmap.
func (sb *Superblock) NBmapBlocks() uint32 {
	return ceilDiv(sb.Size, BPB)
}

// DataStart returns the first data-block LBA, the layout invariant from
// spec §3: [0]=superblock, [1..1+nlog)=log, [inodestart..)=inode table,
// [bmapstart..)=bitmap, then data to size-1.
func (sb *Superblock) DataStart() uint32 {
	return sb.BmapStart + sb.NBmapBlocks()
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

// ComputeLayout derives the canonical block layout for an image of the given
// size, inode count, and log size, following the original mkfs/checker's
// fixed placement: logstart=1, inodestart=logstart+nlog,
// bmapstart=inodestart+ceil(ninodes/IPB).
func ComputeLayout(size, ninodes, nlog uint32) Superblock {
	sb := Superblock{
		Magic:   FSMagic,
		Size:    size,
		NInodes: ninodes,
		NLog:    nlog,
	}
	sb.LogStart = 1
	sb.InodeStart = sb.LogStart + nlog
	sb.BmapStart = sb.InodeStart + sb.NInodeBlocks()
	sb.NBlocks = size - sb.DataStart()
	return sb
}

// Dinode is the decoded, CPU-endian form of an on-disk inode record
// (spec §3 "On-disk inode"). Addrs[NDIRECT] is the single-indirect slot.
type Dinode struct {
	Type  uint16
	Major uint16
	Minor uint16
	Nlink uint16
	Size  uint32
	Addrs [NDIRECT + 1]uint32
}

// IsFree reports whether this inode table slot is unused.
func (d *Dinode) IsFree() bool {
	return d.Type == 0
}

// Dirent is the decoded form of a single directory entry (spec §3
// "Directory entry"): a 16-bit inode number plus a 14-byte, NUL-padded name
// that is not NUL-terminated when full.
type Dirent struct {
	Inum uint16
	Name [DIRSIZ]byte
}

// NameString returns the entry's name as a Go string, trimmed at the first
// NUL byte (or DIRSIZ if the name fills the whole field).
func (de *Dirent) NameString() string {
	n := 0
	for n < DIRSIZ && de.Name[n] != 0 {
		n++
	}
	return string(de.Name[:n])
}

// SetName copies name into the entry, NUL-padding or truncating it to
// DIRSIZ bytes. Callers are responsible for rejecting names longer than
// DIRSIZ up front (spec: NAMETOOLONG); this never fails.
func (de *Dirent) SetName(name string) {
	de.Name = [DIRSIZ]byte{}
	copy(de.Name[:], name)
}

// IsEmpty reports whether this slot is unused (inum == 0).
func (de *Dirent) IsEmpty() bool {
	return de.Inum == 0
}
