// Package vfs implements the path engine: it combines one store.Storage with
// one semantics.Semantics and turns path-based operations into inode
// operations.
//
// The engine is stateless beyond its two references and does not lock. Every
// call validates first and mutates last, so a rejected call leaves the tree
// untouched.
package vfs

import (
	"errors"

	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
)

// Engine resolves paths against a Storage under a Semantics policy.
//
// It is generic over both so that any storage composes with any policy at
// construction time without an extra level of interface dispatch.
type Engine[S store.Storage, P semantics.Semantics] struct {
	storage S
	sem     P
}

// New creates an engine over storage with policy sem.
func New[S store.Storage, P semantics.Semantics](storage S, sem P) *Engine[S, P] {
	return &Engine[S, P]{storage: storage, sem: sem}
}

// Storage returns the underlying storage.
func (e *Engine[S, P]) Storage() S {
	return e.storage
}

// Semantics returns the policy.
func (e *Engine[S, P]) Semantics() P {
	return e.sem
}

// Sync flushes the storage.
func (e *Engine[S, P]) Sync() error {
	return e.wrap("sync", "/", e.storage.Sync())
}

// wrap attaches operation and path context to err.
func (e *Engine[S, P]) wrap(op, path string, err error) error {
	return e.wrap2(op, path, "", err)
}

func (e *Engine[S, P]) wrap2(op, path, newPath string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	logger.Debug("vfs: %s %s: %v", op, path, err)
	return &PathError{Op: op, Path: path, NewPath: newPath, Err: err}
}

// check consults the permission hook.
func (e *Engine[S, P]) check(op semantics.Op, path string, ino *store.Inode) error {
	return e.sem.CheckPermission(op, path, ino)
}

// release deletes an inode once its last entry is gone.
func (e *Engine[S, P]) release(id store.InodeID) error {
	ino, err := e.storage.GetInode(id)
	if err != nil {
		return err
	}
	if ino.Nlink > 0 {
		return nil
	}
	return e.storage.DeleteInode(id)
}
