// Package queue is the local durable queue for work captured while the
// upstream link is down: pending disaster reports and pending binary
// attachments. The queue is the single source of truth for "what remains to
// be sent": the synchronization coordinator drains it and the HTTP layer
// (on behalf of the PWA backend) fills it.
package queue

import (
	"context"
	"errors"
	"time"
)

// Pending report lifecycle. Transitions only pending_upload → uploaded;
// uploaded reports are kept for audit rather than deleted.
const (
	StatusPendingUpload = "pending_upload"
	StatusUploaded      = "uploaded"
)

// ErrStorageUnavailable indicates the local storage engine could not be
// written or read. Enqueue callers must surface it to the user: a report
// that cannot be queued is lost otherwise.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// PendingReport is a disaster report captured while offline. Payload holds
// the report document JSON exactly as it will be submitted; local id,
// capture time, and status are queue bookkeeping and never leave the device.
type PendingReport struct {
	LocalID       int64
	Payload       []byte
	AttachmentIDs []int64
	Status        string
	CapturedAt    time.Time
}

// PendingAttachment is a binary file captured while offline. Presence means
// pending: attachments are physically deleted once uploaded.
type PendingAttachment struct {
	LocalID    int64
	UserID     string
	FileName   string
	Payload    []byte
	CapturedAt time.Time
}

// Store is the durable queue contract. Implementations must make each
// operation an atomic read-modify-write; no cross-record transactions are
// required. All failures are reported as errors wrapping
// ErrStorageUnavailable.
type Store interface {
	// EnqueueReport appends a report in pending_upload status and returns its
	// local id.
	EnqueueReport(ctx context.Context, payload []byte, attachmentIDs []int64) (int64, error)

	// EnqueueAttachment appends an attachment and returns its local id.
	EnqueueAttachment(ctx context.Context, payload []byte, fileName, userID string) (int64, error)

	// ListPendingReports returns reports still in pending_upload status, in
	// insertion order.
	ListPendingReports(ctx context.Context) ([]PendingReport, error)

	// ListPendingAttachments returns all stored attachments in insertion order.
	ListPendingAttachments(ctx context.Context) ([]PendingAttachment, error)

	// MarkReportUploaded flips a report to uploaded. Idempotent: marking an
	// already-uploaded or unknown id is a no-op.
	MarkReportUploaded(ctx context.Context, id int64) error

	// DeleteAttachment removes an attachment. Idempotent: deleting an unknown
	// id is a no-op, which keeps drain retries safe.
	DeleteAttachment(ctx context.Context, id int64) error
}
