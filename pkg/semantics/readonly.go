package semantics

import (
	"github.com/marmos91/inodefs/pkg/store"
)

// ReadOnly wraps a policy and denies every mutating operation.
//
// All other decisions are delegated to the wrapped policy.
type ReadOnly struct {
	Semantics
}

// NewReadOnly wraps base.
func NewReadOnly(base Semantics) ReadOnly {
	return ReadOnly{Semantics: base}
}

// CheckPermission denies mutating operations with ErrPermissionDenied.
func (r ReadOnly) CheckPermission(op Op, path string, ino *store.Inode) error {
	if op.Mutating() {
		return store.NewError(store.ErrPermissionDenied, "%s %s: read-only", op, path)
	}
	return r.Semantics.CheckPermission(op, path, ino)
}
