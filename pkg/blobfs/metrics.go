package blobfs

import "time"

// Metrics provides observability for filesystem operations.
//
// This interface is optional. If not provided to New, a no-op
// implementation is used.
type Metrics interface {
	// ObserveOperation records a completed operation. code is empty on
	// success and the errno name of the failure otherwise.
	ObserveOperation(op string, duration time.Duration, code string)

	// RecordCopyPoll records one copy status poll issued by Rename.
	RecordCopyPoll()

	// RecordBytes records bytes moved by "read" or "write".
	RecordBytes(direction string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(op string, duration time.Duration, code string) {}
func (noopMetrics) RecordCopyPoll()                                                 {}
func (noopMetrics) RecordBytes(direction string, bytes int64)                       {}
