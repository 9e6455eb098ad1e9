package layout

import "encoding/binary"

// DecodeSuperblock reads a Superblock out of block 0's raw bytes.
func DecodeSuperblock(block []byte) Superblock {
	le := binary.LittleEndian
	return Superblock{
		Magic:      le.Uint32(block[0:4]),
		Size:       le.Uint32(block[4:8]),
		NBlocks:    le.Uint32(block[8:12]),
		NInodes:    le.Uint32(block[12:16]),
		NLog:       le.Uint32(block[16:20]),
		LogStart:   le.Uint32(block[20:24]),
		InodeStart: le.Uint32(block[24:28]),
		BmapStart:  le.Uint32(block[28:32]),
	}
}

// EncodeSuperblock serializes sb into block's first 32 bytes. The rest of
// the block (padding out to BSIZE) is left untouched.
func EncodeSuperblock(block []byte, sb Superblock) {
	le := binary.LittleEndian
	le.PutUint32(block[0:4], sb.Magic)
	le.PutUint32(block[4:8], sb.Size)
	le.PutUint32(block[8:12], sb.NBlocks)
	le.PutUint32(block[12:16], sb.NInodes)
	le.PutUint32(block[16:20], sb.NLog)
	le.PutUint32(block[20:24], sb.LogStart)
	le.PutUint32(block[24:28], sb.InodeStart)
	le.PutUint32(block[28:32], sb.BmapStart)
}

// DecodeDinode reads one dinode record out of raw, which must be exactly
// DinodeSize bytes long.
func DecodeDinode(raw []byte) Dinode {
	le := binary.LittleEndian
	var d Dinode
	d.Type = le.Uint16(raw[0:2])
	d.Major = le.Uint16(raw[2:4])
	d.Minor = le.Uint16(raw[4:6])
	d.Nlink = le.Uint16(raw[6:8])
	d.Size = le.Uint32(raw[8:12])
	off := 12
	for i := range d.Addrs {
		d.Addrs[i] = le.Uint32(raw[off : off+4])
		off += 4
	}
	return d
}

// EncodeDinode serializes d into raw, which must be exactly DinodeSize bytes
// long.
func EncodeDinode(raw []byte, d Dinode) {
	le := binary.LittleEndian
	le.PutUint16(raw[0:2], d.Type)
	le.PutUint16(raw[2:4], d.Major)
	le.PutUint16(raw[4:6], d.Minor)
	le.PutUint16(raw[6:8], d.Nlink)
	le.PutUint32(raw[8:12], d.Size)
	off := 12
	for _, a := range d.Addrs {
		le.PutUint32(raw[off:off+4], a)
		off += 4
	}
}

// DinodeOffsetInBlock returns the byte offset of inode inum's record within
// its containing inode-table block.
func DinodeOffsetInBlock(inum uint32) int {
	return int(inum%IPB) * DinodeSize
}

// DecodeIndirect reads a single-indirect block's NINDIRECT little-endian
// uint32 block numbers.
func DecodeIndirect(block []byte) [NINDIRECT]uint32 {
	le := binary.LittleEndian
	var out [NINDIRECT]uint32
	for i := range out {
		out[i] = le.Uint32(block[i*4 : i*4+4])
	}
	return out
}

// PutIndirectEntry writes a single slot of an indirect block in place.
func PutIndirectEntry(block []byte, slot int, value uint32) {
	binary.LittleEndian.PutUint32(block[slot*4:slot*4+4], value)
}

// GetIndirectEntry reads a single slot of an indirect block.
func GetIndirectEntry(block []byte, slot int) uint32 {
	return binary.LittleEndian.Uint32(block[slot*4 : slot*4+4])
}

// DecodeDirent reads one dirent record out of raw, which must be exactly
// DirentSize bytes long.
func DecodeDirent(raw []byte) Dirent {
	var de Dirent
	de.Inum = binary.LittleEndian.Uint16(raw[0:2])
	copy(de.Name[:], raw[2:2+DIRSIZ])
	return de
}

// EncodeDirent serializes de into raw, which must be exactly DirentSize
// bytes long.
func EncodeDirent(raw []byte, de Dirent) {
	binary.LittleEndian.PutUint16(raw[0:2], de.Inum)
	copy(raw[2:2+DIRSIZ], de.Name[:])
}
