package store

import "errors"

// ============================================================================
// Standard Object Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all object store implementations. The filesystem layer checks for
// them with errors.Is and maps them to its own error taxonomy.
//
// Implementations should wrap these errors with additional context:
//
//	if !found {
//	    return fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
//	}

var (
	// ErrObjectNotFound indicates the requested object (or snapshot of an
	// object) does not exist.
	//
	// This error is returned when:
	//   - GetProperties/GetMetadata/Open called with a missing key
	//   - StartCopy called with a missing source
	//   - Delete called with a missing key
	//
	// Protocol Mapping:
	//   - Azure: 404 BlobNotFound
	//   - S3: NoSuchKey / NotFound
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists indicates a conditional create found an existing object.
	//
	// This error is only returned by Put when PutOptions.IfNotExists is set.
	// Plain writes overwrite.
	//
	// Protocol Mapping:
	//   - Azure: 409 BlobAlreadyExists / 412 ConditionNotMet
	//   - S3: 412 PreconditionFailed
	ErrObjectExists = errors.New("object already exists")

	// ErrNotSupported indicates the backend cannot perform the requested
	// operation (for example, writing metadata on an immutable snapshot).
	ErrNotSupported = errors.New("operation not supported")

	// ErrSnapshotsPresent indicates a delete that keeps snapshots was issued
	// against an object that still has snapshots.
	ErrSnapshotsPresent = errors.New("object has snapshots")

	// ErrInvalidKey indicates an empty or otherwise unusable object key.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
