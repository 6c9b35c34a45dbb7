package semantics

import (
	"strings"
	"unicode/utf8"

	"github.com/marmos91/inodefs/pkg/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Portable is a policy whose names are valid on Windows, macOS and Linux alike.
//
// Both '/' and '\' separate path components. Names are compared after NFC
// normalization and Unicode case folding, so "Readme.TXT" and "readme.txt" are
// the same entry; entries are stored under the folded key. Windows reserved
// device names, forbidden characters, control characters and trailing dots or
// spaces are rejected.
type Portable struct {
	opts Options
}

// NewPortable returns a Portable policy with the given options.
func NewPortable(opts Options) Portable {
	return Portable{opts: opts}
}

const forbiddenChars = `<>:"|?*`

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

func isPortableSep(r rune) bool { return r == '/' || r == '\\' }

func (p Portable) Split(path string) ([]string, error) {
	return splitPath(path, isPortableSep, p.opts.DotSegments, p.opts.MaxPathDepth)
}

func (p Portable) IsAbsolute(path string) bool {
	return len(path) > 0 && isPortableSep(rune(path[0]))
}

// NormalizeName returns the NFC, case-folded form of name.
func (p Portable) NormalizeName(name string) string {
	// A Caser is stateful; one per call keeps Portable safe to share.
	return cases.Fold().String(norm.NFC.String(name))
}

func (p Portable) ValidateName(name string) error {
	if err := validateCommon(name, isPortableSep); err != nil {
		return err
	}
	if !utf8.ValidString(name) {
		return store.NewError(store.ErrInvalidName, "name %q is not valid UTF-8", name)
	}
	if n := utf8.RuneCountInString(name); n > p.opts.maxNameLen() {
		return store.NewError(store.ErrInvalidName, "name is %d characters (max %d)", n, p.opts.maxNameLen())
	}

	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(forbiddenChars, r) {
			return store.NewError(store.ErrInvalidName, "name %q contains forbidden character %q", name, r)
		}
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return store.NewError(store.ErrInvalidName, "name %q ends with a dot or space", name)
	}

	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if reservedNames[strings.ToUpper(strings.TrimRight(base, " "))] {
		return store.NewError(store.ErrInvalidName, "name %q is a reserved device name", name)
	}
	return nil
}

func (p Portable) SupportsSymlinks() bool  { return !p.opts.DisableSymlinks }
func (p Portable) SupportsHardLinks() bool { return !p.opts.DisableHardLinks }
func (p Portable) MaxSymlinkDepth() int    { return p.opts.maxSymlinkDepth() }
func (p Portable) DotSegments() DotMode    { return p.opts.DotSegments }
func (p Portable) MaxPathDepth() int       { return p.opts.MaxPathDepth }

func (p Portable) CheckPermission(Op, string, *store.Inode) error {
	return nil
}

func (p Portable) CheckRenameOverwrite(src, dst store.FileType, dstEmpty bool) error {
	return checkRenameOverwrite(src, dst, dstEmpty)
}
