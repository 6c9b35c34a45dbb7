package store

// Helpers shared by Storage implementations.

// ValidateNewInode checks the arguments of CreateInode.
func ValidateNewInode(fileType FileType, target string) error {
	if !fileType.Valid() {
		return NewError(ErrInvalidArgument, "unknown file type %d", fileType)
	}
	if fileType != FileTypeSymlink && target != "" {
		return NewError(ErrInvalidArgument, "only symlinks carry a target")
	}
	return nil
}

// EffectiveMode masks mode with PermMask, substituting the type default for 0.
func EffectiveMode(fileType FileType, mode uint32) uint32 {
	mode &= PermMask
	if mode != 0 {
		return mode
	}
	switch fileType {
	case FileTypeDirectory:
		return DefaultDirMode
	case FileTypeSymlink:
		return DefaultSymlinkMode
	default:
		return DefaultFileMode
	}
}

// ApplySetAttrs copies the non-nil fields of attrs into ino.
func ApplySetAttrs(ino *Inode, attrs *SetAttrs) {
	if attrs == nil {
		return
	}
	if attrs.Mode != nil {
		ino.Mode = *attrs.Mode & PermMask
	}
	if attrs.Atime != nil {
		ino.Atime = *attrs.Atime
	}
	if attrs.Mtime != nil {
		ino.Mtime = *attrs.Mtime
	}
}

// ClampRead computes how many bytes a read of bufLen at offset can return
// from content of the given size, and whether the read hits end of file.
func ClampRead(size uint64, bufLen int, offset int64) (int, bool) {
	if offset < 0 || uint64(offset) >= size {
		return 0, bufLen > 0
	}
	avail := size - uint64(offset)
	if uint64(bufLen) <= avail {
		return bufLen, false
	}
	return int(avail), true
}
