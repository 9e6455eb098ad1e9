// Package blockio provides the block I/O capability consumed by the xv6fs
// engine (spec §4.1): a scoped handle over one fixed-size block, backed by a
// write-behind cache, plus the bitmap-backed block allocator (spec §4.2).
package blockio

import (
	"fmt"
	"io"
)

// LBA is a logical block address: an unsigned offset in [0, TotalBlocks).
type LBA uint32

// Device is a thin abstraction over a seekable stream that makes it look
// like a sequence of fixed-size blocks, the same role
// drivers/common.BlockStream plays in the teacher driver.
type Device struct {
	BytesPerBlock uint
	TotalBlocks   LBA
	stream        io.ReadWriteSeeker
}

// NewDevice wraps stream as a block device of totalBlocks blocks, each
// bytesPerBlock bytes long.
func NewDevice(stream io.ReadWriteSeeker, totalBlocks LBA, bytesPerBlock uint) *Device {
	return &Device{
		BytesPerBlock: bytesPerBlock,
		TotalBlocks:   totalBlocks,
		stream:        stream,
	}
}

func (d *Device) checkBounds(lba LBA) error {
	if lba >= d.TotalBlocks {
		return fmt.Errorf("block %d not in range [0, %d)", lba, d.TotalBlocks)
	}
	return nil
}

func (d *Device) offset(lba LBA) int64 {
	return int64(lba) * int64(d.BytesPerBlock)
}

// ReadBlock reads exactly one block into a freshly allocated buffer.
func (d *Device) ReadBlock(lba LBA) ([]byte, error) {
	if err := d.checkBounds(lba); err != nil {
		return nil, err
	}
	if _, err := d.stream.Seek(d.offset(lba), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, d.BytesPerBlock)
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlock writes exactly one block of data, which must be BytesPerBlock
// bytes long.
func (d *Device) WriteBlock(lba LBA, data []byte) error {
	if err := d.checkBounds(lba); err != nil {
		return err
	}
	if uint(len(data)) != d.BytesPerBlock {
		return fmt.Errorf("block write must be exactly %d bytes, got %d", d.BytesPerBlock, len(data))
	}
	if _, err := d.stream.Seek(d.offset(lba), io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Write(data)
	return err
}
