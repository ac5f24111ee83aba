package blobfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/marmos91/blobfs/internal/logger"
	"github.com/marmos91/blobfs/pkg/store"
)

// renameState tracks how far a rename got, which decides what rollback has
// to undo.
type renameState int

const (
	renameStart renameState = iota
	renameCopyIssued
	renameCopySucceeded
	renameCopyFailed
	renameCopyAborted
	renameSourceDeleted
	renameRolledBack
)

func (s renameState) String() string {
	switch s {
	case renameStart:
		return "start"
	case renameCopyIssued:
		return "copy-issued"
	case renameCopySucceeded:
		return "copy-succeeded"
	case renameCopyFailed:
		return "copy-failed"
	case renameCopyAborted:
		return "copy-aborted"
	case renameSourceDeleted:
		return "source-deleted"
	case renameRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// errCopyPending keeps the poll loop going.
var errCopyPending = errors.New("copy pending")

// renameOp is one in-flight rename.
type renameOp struct {
	fsys     *FS
	src, dst string

	state   renameState
	issued  bool
	copyID  string
	pending bool
}

// Rename moves file oldPath to newPath.
//
// The store has no rename, so the file is copied server-side, the copy is
// polled until it settles, and the source is deleted. Snapshots of the
// source are replayed onto the destination first, oldest to newest, so the
// history survives the move.
//
// Rename fails with AlreadyExists if newPath exists (the root always does)
// and NotFound if oldPath does not. Once a copy has been issued, any failure
// (a failed or aborted copy, a cancelled context, a failed delete of the
// source) removes the
// destination again and leaves the source intact.
func (fsys *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	src, dst := Normalize(oldPath), Normalize(newPath)

	return fsys.run(ctx, "rename", src, func(ctx context.Context) error {
		// The root is the container itself, never an object key.
		switch {
		case src == "":
			return newError(NotFound, "rename", src)
		case dst == "":
			return newError(AlreadyExists, "rename", dst)
		}

		if fsys.renameTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, fsys.renameTimeout)
			defer cancel()
		}

		op := &renameOp{fsys: fsys, src: src, dst: dst}
		return op.run(ctx)
	})
}

func (r *renameOp) run(ctx context.Context) error {
	s := r.fsys.store

	_, err := s.GetProperties(ctx, r.dst, store.GetOptions{})
	if err == nil {
		return newError(AlreadyExists, "rename", r.dst)
	}
	if !isNotFound(err) {
		return err
	}

	history, err := r.fsys.versions(ctx, r.src, true)
	if err != nil {
		return err
	}

	for _, version := range history {
		if version.Snapshot == "" {
			continue
		}
		if err := r.copy(ctx, store.ObjectRef{Key: r.src, Snapshot: version.Snapshot}); err != nil {
			return r.rollback(ctx, err)
		}
		if _, err := s.CreateSnapshot(ctx, r.dst, version.Metadata); err != nil {
			return r.rollback(ctx, err)
		}
	}

	if err := r.copy(ctx, store.ObjectRef{Key: r.src}); err != nil {
		return r.rollback(ctx, err)
	}

	if err := s.Delete(ctx, r.src, store.DeleteOptions{Snapshots: store.DeleteSnapshotsInclude}); err != nil {
		return r.rollback(ctx, err)
	}

	r.state = renameSourceDeleted
	return nil
}

// copy issues one server-side copy into the destination and waits for it
// to settle.
func (r *renameOp) copy(ctx context.Context, src store.ObjectRef) error {
	info, err := r.fsys.store.StartCopy(ctx, src, r.dst)
	if err != nil {
		return err
	}

	r.issued = true
	r.state = renameCopyIssued
	r.copyID = info.ID
	r.pending = info.Status == store.CopyPending

	status, err := r.poll(ctx, info.Status)
	if err != nil {
		return err
	}
	r.pending = false

	switch status {
	case store.CopySuccess:
		r.state = renameCopySucceeded
		return nil
	case store.CopyAborted:
		r.state = renameCopyAborted
		return newError(Aborted, "rename", r.src)
	default:
		r.state = renameCopyFailed
		return &Error{Code: Unknown, Op: "rename", Path: r.src, Err: fmt.Errorf("copy to %s finished with status %q", r.dst, status)}
	}
}

// poll waits for a pending copy to reach a terminal status, re-reading the
// destination once per check interval.
func (r *renameOp) poll(ctx context.Context, status store.CopyStatus) (store.CopyStatus, error) {
	if status.Terminal() {
		return status, nil
	}

	first := true
	operation := func() error {
		// The status returned by StartCopy is already known to be pending.
		if first {
			first = false
			return errCopyPending
		}

		props, err := r.fsys.store.GetProperties(ctx, r.dst, store.GetOptions{})
		if err != nil {
			return backoff.Permanent(err)
		}
		r.fsys.metrics.RecordCopyPoll()

		status = props.CopyStatus
		if status == store.CopyPending {
			return errCopyPending
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("rename(%q): copy to %q pending, checking again in %s", r.src, r.dst, wait)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(r.fsys.checkInterval), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, ctxErr
		}
		return status, err
	}
	return status, nil
}

// rollback removes whatever the rename wrote to the destination. It runs on a
// context that outlives the caller's cancellation, never fails and returns
// cause unchanged.
func (r *renameOp) rollback(ctx context.Context, cause error) error {
	if !r.issued {
		return cause
	}

	ctx = context.WithoutCancel(ctx)
	s := r.fsys.store

	if r.pending && r.copyID != "" {
		if err := s.AbortCopy(ctx, r.dst, r.copyID); err != nil {
			logger.Warn("rename(%q): abort copy %s into %q: %v", r.src, r.copyID, r.dst, err)
		}
	}

	err := s.Delete(ctx, r.dst, store.DeleteOptions{Snapshots: store.DeleteSnapshotsInclude})
	if err != nil && !isNotFound(err) {
		logger.Warn("rename(%q): remove partial destination %q after %s: %v", r.src, r.dst, r.state, err)
	}

	r.state = renameRolledBack
	return cause
}
