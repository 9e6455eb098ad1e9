package blockio

import (
	"fmt"
	"io"
	"os"

	"github.com/xaionaro-go/bytesextra"
	"golang.org/x/sys/unix"
)

// MmapReadOnly memory-maps f read-only via mmap(2) and wraps the mapping as
// an io.ReadWriteSeeker whose reads are pointer dereferences into the
// mapped pages rather than read(2) syscalls on every block fetch (spec
// §4.8: "given a memory-mapped image, install a block capability that
// returns a pointer into the map; allocation and flush are no-ops or
// errors"). The mapping is never writable, so any attempted WriteBlock
// through the returned stream faults instead of silently succeeding — the
// checker never calls it, since its Capability is always constructed
// read-only.
//
// The returned closer unmaps the region; callers must call it exactly once
// when done with stream.
func MmapReadOnly(f *os.File) (stream io.ReadWriteSeeker, closer func() error, err error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil, fmt.Errorf("blockio: cannot mmap an empty image")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("blockio: mmap failed: %w", err)
	}

	unmapped := false
	return bytesextra.NewReadWriteSeeker(data), func() error {
		if unmapped {
			return nil
		}
		unmapped = true
		return unix.Munmap(data)
	}, nil
}
