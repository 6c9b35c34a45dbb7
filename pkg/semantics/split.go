package semantics

import (
	"strings"

	"github.com/marmos91/inodefs/pkg/store"
)

// splitPath breaks an absolute path on any separator accepted by isSep.
func splitPath(path string, isSep func(rune) bool, mode DotMode, maxDepth int) ([]string, error) {
	if path == "" {
		return nil, store.NewError(store.ErrInvalidPath, "empty path")
	}
	if !isSep(rune(path[0])) {
		return nil, store.NewError(store.ErrInvalidPath, "path %q is not absolute", path)
	}

	segments := strings.FieldsFunc(path, isSep)
	components := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch {
		case seg == ".":
			continue
		case seg == ".." && mode == DotLexical:
			// "/.." is "/"
			if len(components) > 0 {
				components = components[:len(components)-1]
			}
		default:
			components = append(components, seg)
		}
	}

	if maxDepth > 0 && len(components) > maxDepth {
		return nil, store.NewError(store.ErrInvalidPath, "path %q has %d components (max %d)", path, len(components), maxDepth)
	}
	return components, nil
}

// validateCommon applies the rules every policy shares.
func validateCommon(name string, isSep func(rune) bool) error {
	switch name {
	case "":
		return store.NewError(store.ErrInvalidName, "empty name")
	case ".", "..":
		return store.NewError(store.ErrInvalidName, "name %q is reserved", name)
	}
	for _, r := range name {
		if r == 0 {
			return store.NewError(store.ErrInvalidName, "name %q contains NUL", name)
		}
		if isSep(r) {
			return store.NewError(store.ErrInvalidName, "name %q contains a path separator", name)
		}
	}
	return nil
}
