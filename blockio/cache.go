package blockio

import (
	"github.com/boljen/go-bitmap"
)

// Cache is a write-behind cache sitting in front of a Device: once a block
// is loaded it stays resident until evicted, and a dirty block reaches the
// device only when it is explicitly flushed, mirroring the role
// drivers/common/blockcache.BlockCache plays for the teacher's FAT and
// UNIXv1 drivers. The engine (spec §4.1) treats "mark dirty then flush" as
// its synchronous-commit barrier and otherwise assumes this cache exists
// behind the capability it's handed.
type Cache struct {
	device *Device
	loaded bitmap.Bitmap
	dirty  bitmap.Bitmap
	data   []byte
}

// NewCache creates a cache over device. Nothing is loaded eagerly.
func NewCache(device *Device) *Cache {
	return &Cache{
		device: device,
		loaded: bitmap.NewSlice(int(device.TotalBlocks)),
		dirty:  bitmap.NewSlice(int(device.TotalBlocks)),
		data:   make([]byte, uint(device.TotalBlocks)*device.BytesPerBlock),
	}
}

func (c *Cache) slice(lba LBA) []byte {
	start := uint(lba) * c.device.BytesPerBlock
	return c.data[start : start+c.device.BytesPerBlock]
}

// Load ensures lba's block is resident, reading it from the device if it
// isn't already loaded or dirty.
func (c *Cache) Load(lba LBA) ([]byte, error) {
	if err := c.device.checkBounds(lba); err != nil {
		return nil, err
	}
	if !c.loaded.Get(int(lba)) {
		buf, err := c.device.ReadBlock(lba)
		if err != nil {
			return nil, err
		}
		copy(c.slice(lba), buf)
		c.loaded.Set(int(lba), true)
	}
	return c.slice(lba), nil
}

// MarkDirty flags lba's resident block to be written out on the next Flush.
func (c *Cache) MarkDirty(lba LBA) {
	c.dirty.Set(int(lba), true)
}

// Flush writes lba's block to the device if it's dirty, then clears the
// dirty flag.
func (c *Cache) Flush(lba LBA) error {
	if !c.dirty.Get(int(lba)) {
		return nil
	}
	if err := c.device.WriteBlock(lba, c.slice(lba)); err != nil {
		return err
	}
	c.dirty.Set(int(lba), false)
	return nil
}

// Evict drops lba from the cache without flushing it; used after Release on
// handles the engine never dirtied, to bound memory use across a long scan.
// It is a no-op if the block is dirty, since dropping a dirty block would
// silently discard a pending write.
func (c *Cache) Evict(lba LBA) {
	if c.dirty.Get(int(lba)) {
		return
	}
	c.loaded.Set(int(lba), false)
}
