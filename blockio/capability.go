package blockio

// Handle is a scoped reference to one block's resident data, released on
// every exit path by the caller (spec §4.1, §9 "Lock acquisition mixed with
// RAII-style buffer release"). Callers are expected to `defer handle.Release()`
// immediately after a successful Read.
type Handle struct {
	cache    *Cache
	lba      LBA
	data     []byte
	dirty    bool
	released bool
}

// Data returns the handle's backing buffer, exactly BytesPerBlock long.
// Mutations are visible to other holders of the same LBA until Release.
func (h *Handle) Data() []byte {
	return h.data
}

// LBA returns the block address this handle refers to.
func (h *Handle) LBA() LBA {
	return h.lba
}

// MarkDirty schedules this block to be written out on Flush.
func (h *Handle) MarkDirty() {
	h.dirty = true
	h.cache.MarkDirty(h.lba)
}

// Flush is the synchronous-commit barrier: it forces the block to disk right
// now if it was marked dirty, rather than waiting for some later point.
func (h *Handle) Flush() error {
	return h.cache.Flush(h.lba)
}

// Release gives up this handle. It is always safe to call more than once.
// A clean handle may have its block evicted from the cache; releasing a
// handle that was marked dirty leaves its block resident.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	if !h.dirty {
		h.cache.Evict(h.lba)
	}
}

// Capability is the block I/O capability the engine consumes (spec §4.1):
// read/data/mark_dirty/flush/release plus allocate_block, which delegates to
// the block allocator (spec §4.2).
type Capability interface {
	// Read loads lba and returns a scoped handle to it. The caller must
	// Release the handle on every exit path.
	Read(lba LBA) (*Handle, error)
	// AllocateBlock finds a free data block, zeroes it, and marks it
	// allocated, returning ErrNoSpace-flavored errors on exhaustion.
	AllocateBlock() (LBA, error)
	// FreeBlock releases an allocated data block back to the free pool.
	FreeBlock(lba LBA) error
	// ReadOnly reports whether this capability rejects mutation.
	ReadOnly() bool
}

// cachedCapability is the concrete Capability backing a mounted image: a
// Cache for loaded block data plus an Allocator for the free-block bitmap.
type cachedCapability struct {
	cache     *Cache
	allocator *Allocator
	readOnly  bool
}

// NewCapability builds the block I/O capability for a mounted image. The
// lowest block it may hand out is the dataStart the allocator was built with.
func NewCapability(cache *Cache, allocator *Allocator, readOnly bool) Capability {
	return &cachedCapability{cache: cache, allocator: allocator, readOnly: readOnly}
}

func (c *cachedCapability) Read(lba LBA) (*Handle, error) {
	data, err := c.cache.Load(lba)
	if err != nil {
		return nil, err
	}
	return &Handle{cache: c.cache, lba: lba, data: data}, nil
}

func (c *cachedCapability) ReadOnly() bool {
	return c.readOnly
}

func (c *cachedCapability) AllocateBlock() (LBA, error) {
	return c.allocator.Allocate(c)
}

func (c *cachedCapability) FreeBlock(lba LBA) error {
	return c.allocator.Free(lba)
}
