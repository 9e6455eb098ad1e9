package fs

import (
	"github.com/Fudanyrd/xv6fs"
	"github.com/Fudanyrd/xv6fs/layout"
)

// DirEntry is one resolved (name, inode number) pair handed back by Readdir.
type DirEntry struct {
	Name string
	Inum uint32
}

// dirFind scans dir, starting from the beginning, for an entry named name.
// Caller must hold dir's lock (read is enough).
func dirFind(dir *Inode, name string) (uint16, bool, error) {
	var found uint16
	ok := false
	err := DirIterate(dir.fs.cap, dir.fs.Log, dir, 0, false, func(idx uint32, de *layout.Dirent) DirAction {
		if !de.IsEmpty() && de.NameString() == name {
			found = de.Inum
			ok = true
			return DirAction{Cont: false}
		}
		return DirAction{Cont: true}
	})
	return found, ok, err
}

// insertEntry adds (name, inum) to dir, reusing the first empty slot or
// extending the directory by one entry if none is free (spec §4.4/§4.7
// "insert"). Caller must hold dir's write lock. Grounded on the original
// xv6fs's dirlink, which likewise checks for a duplicate name first and only
// then scans for a free slot.
func insertEntry(dir *Inode, name string, inum uint16) error {
	if _, ok, err := dirFind(dir, name); err != nil {
		return err
	} else if ok {
		return xv6fs.NewDriverError(xv6fs.ErrExist)
	}

	return DirIterate(dir.fs.cap, dir.fs.Log, dir, 0, true, func(idx uint32, de *layout.Dirent) DirAction {
		if de.IsEmpty() {
			de.Inum = inum
			de.SetName(name)
			return DirAction{DeDirty: true}
		}
		return DirAction{Cont: true, DirExt: true, DirDirty: true}
	})
}

// eraseEntry clears the entry named name, returning the inode number it
// referenced (spec §4.7 "erase"). Caller must hold dir's write lock.
func eraseEntry(dir *Inode, name string) (uint16, error) {
	var removed uint16
	found := false
	err := DirIterate(dir.fs.cap, dir.fs.Log, dir, 0, true, func(idx uint32, de *layout.Dirent) DirAction {
		if !de.IsEmpty() && de.NameString() == name {
			removed = de.Inum
			found = true
			de.Inum = 0
			de.Name = [layout.DIRSIZ]byte{}
			return DirAction{DeDirty: true}
		}
		return DirAction{Cont: true}
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, xv6fs.NewDriverError(xv6fs.ErrNotExist)
	}
	return removed, nil
}

// dirEmpty reports whether dir has no entries beyond "." and "..". Caller
// must hold dir's lock.
func dirEmpty(dir *Inode) (bool, error) {
	empty := true
	err := DirIterate(dir.fs.cap, dir.fs.Log, dir, 2, false, func(idx uint32, de *layout.Dirent) DirAction {
		if !de.IsEmpty() {
			empty = false
			return DirAction{Cont: false}
		}
		return DirAction{Cont: true}
	})
	return empty, err
}

// Lookup resolves name within dir and returns a referenced *Inode for it
// (spec §4.7 "lookup"). The caller is responsible for eventually calling
// Table.Put on the returned inode.
func Lookup(dir *Inode, name string) (*Inode, error) {
	dir.RLock()
	if !dir.IsDir() {
		dir.RUnlock()
		return nil, xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	inum, ok, err := dirFind(dir, name)
	dir.RUnlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xv6fs.NewDriverError(xv6fs.ErrNotExist)
	}
	return dir.fs.Table.Get(uint32(inum))
}

// Readdir lists every non-empty entry in dir (spec §4.7 "list").
func Readdir(dir *Inode) ([]DirEntry, error) {
	dir.RLock()
	defer dir.RUnlock()
	if !dir.IsDir() {
		return nil, xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}

	var out []DirEntry
	err := DirIterate(dir.fs.cap, dir.fs.Log, dir, 0, false, func(idx uint32, de *layout.Dirent) DirAction {
		if !de.IsEmpty() {
			out = append(out, DirEntry{Name: de.NameString(), Inum: uint32(de.Inum)})
		}
		return DirAction{Cont: true}
	})
	return out, err
}

func validName(name string) error {
	if len(name) == 0 || len(name) > layout.DIRSIZ {
		return xv6fs.NewDriverError(xv6fs.ErrNameTooLong)
	}
	if name == "." || name == ".." {
		return xv6fs.NewDriverError(xv6fs.ErrExist)
	}
	return nil
}

// create is shared by CreateFile and Mkdir: it allocates a new inode of the
// given type and links it into parent under name (spec §4.7 "create").
func create(parent *Inode, name string, typ xv6fs.InodeType) (*Inode, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	fsi := parent.fs
	if fsi.ReadOnly() {
		return nil, xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}

	parent.Lock()
	defer parent.Unlock()
	if !parent.IsDir() {
		return nil, xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}

	image := layout.Dinode{Type: uint16(typ), Nlink: 1}
	ino, err := fsi.Table.Allocate(image)
	if err != nil {
		return nil, err
	}
	abort := func(cause error) (*Inode, error) {
		fsi.Table.Free(ino.Inum)
		fsi.Table.dropCache(ino.Inum)
		return nil, cause
	}

	if typ == xv6fs.T_DIR {
		buf := make([]byte, 2*layout.DirentSize)
		var dot, dotdot layout.Dirent
		dot.Inum = uint16(ino.Inum)
		dot.SetName(".")
		dotdot.Inum = uint16(parent.Inum)
		dotdot.SetName("..")
		layout.EncodeDirent(buf[0:layout.DirentSize], dot)
		layout.EncodeDirent(buf[layout.DirentSize:2*layout.DirentSize], dotdot)

		if _, werr := Write(ino, 0, buf, false); werr != nil {
			return abort(werr)
		}

		parent.Nlink++
		parent.dirty = true
		if serr := fsi.Table.syncLocked(parent); serr != nil {
			return abort(serr)
		}
	}

	if ierr := insertEntry(parent, name, uint16(ino.Inum)); ierr != nil {
		return abort(ierr)
	}
	return ino, nil
}

// CreateFile allocates a new regular file named name inside parent (spec
// §4.7 "create").
func CreateFile(parent *Inode, name string) (*Inode, error) {
	return create(parent, name, xv6fs.T_FILE)
}

// Mkdir allocates a new subdirectory named name inside parent (spec §4.7
// "create" specialized for T_DIR, wiring up "." and "..").
func Mkdir(parent *Inode, name string) (*Inode, error) {
	return create(parent, name, xv6fs.T_DIR)
}

// Link adds a second name for an existing, non-directory inode (spec §4.7
// "link"). Hard-linking directories is rejected, matching the classic Unix
// restriction this layout inherits.
func Link(parent *Inode, name string, target *Inode) error {
	fsi := parent.fs
	if fsi.ReadOnly() {
		return xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}
	if err := validName(name); err != nil {
		return err
	}

	parent.Lock()
	defer parent.Unlock()
	if !parent.IsDir() {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}

	target.Lock()
	if target.IsDir() {
		target.Unlock()
		return xv6fs.NewDriverError(xv6fs.ErrInvalid)
	}
	if target.Nlink == ^uint16(0) {
		target.Unlock()
		return xv6fs.NewDriverError(xv6fs.ErrTooManyRefs)
	}
	target.Unlock()

	if err := insertEntry(parent, name, uint16(target.Inum)); err != nil {
		return err
	}

	target.Lock()
	target.Nlink++
	target.dirty = true
	err := fsi.Table.syncLocked(target)
	target.Unlock()
	return err
}

func lockPair(a, b *Inode) {
	if a.Inum < b.Inum {
		a.Lock()
		b.Lock()
	} else {
		b.Lock()
		a.Lock()
	}
}

func unlockPair(a, b *Inode) {
	if a.Inum < b.Inum {
		b.Unlock()
		a.Unlock()
	} else {
		a.Unlock()
		b.Unlock()
	}
}

// Unlink removes name from parent and drops the referenced inode's link
// count, freeing it once the count and reference count both reach zero
// (spec §4.7 "unlink"). Directories must go through Rmdir.
func Unlink(parent *Inode, name string) error {
	fsi := parent.fs
	if fsi.ReadOnly() {
		return xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}
	if name == "." || name == ".." {
		return xv6fs.NewDriverError(xv6fs.ErrBusy)
	}

	parent.RLock()
	isDir := parent.IsDir()
	var inum uint16
	var ok bool
	var ferr error
	if isDir {
		inum, ok, ferr = dirFind(parent, name)
	}
	parent.RUnlock()
	if !isDir {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	if ferr != nil {
		return ferr
	}
	if !ok {
		return xv6fs.NewDriverError(xv6fs.ErrNotExist)
	}

	child, err := fsi.Table.Get(uint32(inum))
	if err != nil {
		return err
	}
	defer fsi.Table.Put(child)

	lockPair(parent, child)
	defer unlockPair(parent, child)

	if child.IsDir() {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	if _, eerr := eraseEntry(parent, name); eerr != nil {
		return eerr
	}

	child.Nlink--
	child.dirty = true
	return fsi.Table.syncLocked(child)
}

// Rmdir removes the empty subdirectory named name from parent (spec §4.7
// "rmdir"). Fails with ErrNotEmpty if the subdirectory holds anything beyond
// "." and "..", and with ErrBusy for "." or "..".
func Rmdir(parent *Inode, name string) error {
	fsi := parent.fs
	if fsi.ReadOnly() {
		return xv6fs.NewDriverError(xv6fs.ErrReadOnly)
	}
	if name == "." || name == ".." {
		return xv6fs.NewDriverError(xv6fs.ErrBusy)
	}

	parent.RLock()
	isDir := parent.IsDir()
	var inum uint16
	var ok bool
	var ferr error
	if isDir {
		inum, ok, ferr = dirFind(parent, name)
	}
	parent.RUnlock()
	if !isDir {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	if ferr != nil {
		return ferr
	}
	if !ok {
		return xv6fs.NewDriverError(xv6fs.ErrNotExist)
	}

	child, err := fsi.Table.Get(uint32(inum))
	if err != nil {
		return err
	}
	defer fsi.Table.Put(child)

	lockPair(parent, child)
	defer unlockPair(parent, child)

	if !child.IsDir() {
		return xv6fs.NewDriverError(xv6fs.ErrNotDir)
	}
	empty, eerr := dirEmpty(child)
	if eerr != nil {
		return eerr
	}
	if !empty {
		return xv6fs.NewDriverError(xv6fs.ErrNotEmpty)
	}

	if _, eerr := eraseEntry(parent, name); eerr != nil {
		return eerr
	}

	parent.Nlink--
	parent.dirty = true
	if serr := fsi.Table.syncLocked(parent); serr != nil {
		return serr
	}

	child.Nlink = 0
	child.dirty = true
	return fsi.Table.syncLocked(child)
}
