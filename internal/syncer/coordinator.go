// Package syncer drains the local durable queue against the remote
// submission gateway: attachments first, then reports rewritten to reference
// the uploaded attachments. Delivery is at-least-once with per-item failure
// isolation; the queue itself is the single source of truth for what remains
// to be sent, which is what makes re-running a drain safe.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/queue"
)

// Gateway is the remote submission surface: object storage for attachment
// binaries and a document store for report records.
type Gateway interface {
	// PutAttachment stores a binary under the given path and returns its
	// remote locator.
	PutAttachment(ctx context.Context, path string, data []byte) (string, error)

	// LocatorURL resolves a locator to a downloadable URL.
	LocatorURL(ctx context.Context, locator string) (string, error)

	// CreateDocument adds a new document to a collection and returns its
	// remote id.
	CreateDocument(ctx context.Context, collection string, payload map[string]any) (string, error)

	// UpdateDocument merges a partial payload into an existing document.
	UpdateDocument(ctx context.Context, collection, id string, partial map[string]any) error
}

// ConnectivitySource reports the current online state.
type ConnectivitySource interface {
	Online() bool
}

// Result is the outcome of one Synchronize call, shaped for direct display
// in the PWA's sync banner.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Progress tracks one drain. Counters reset at drain start and only grow
// during the drain; Completed+Errors never exceeds Total.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Errors    int `json:"errors"`
}

// Bookkeeping fields stripped from queued payloads before submission, in
// case a producer serialized them into the report JSON.
var bookkeepingFields = []string{"localId", "capturedAt", "queuedAt"}

// Coordinator orchestrates queue drains. At most one drain runs at a time;
// overlapping Synchronize calls are rejected so two drains can never both
// read, upload, and delete the same pending attachment.
type Coordinator struct {
	store       queue.Store
	gateway     Gateway
	conn        ConnectivitySource
	logger      *slog.Logger
	metrics     *observability.Metrics
	itemTimeout time.Duration

	busy atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// New creates a Coordinator. itemTimeout bounds every per-item gateway call
// so a single slow upload cannot stall the whole batch.
func New(store queue.Store, gateway Gateway, conn ConnectivitySource, itemTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		store:       store,
		gateway:     gateway,
		conn:        conn,
		logger:      logger,
		metrics:     metrics,
		itemTimeout: itemTimeout,
	}
}

// Busy reports whether a drain is currently in progress.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Progress returns a snapshot of the current (or most recent) drain counters.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Synchronize drains the queue once. It fails fast while offline, guarantees
// mutual exclusion against overlapping calls, processes every attachment
// before any report, isolates per-item failures into the error counter, and
// reports partial failure as a completed run rather than an error. Retrying
// is just calling Synchronize again.
func (c *Coordinator) Synchronize(ctx context.Context) Result {
	if !c.conn.Online() {
		return Result{Success: false, Message: "Cannot sync while offline"}
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Result{Success: false, Message: "Synchronization already in progress"}
	}
	defer c.busy.Store(false)

	attachments, err := c.store.ListPendingAttachments(ctx)
	if err != nil {
		c.logger.Error("list pending attachments failed", "error", err)
		return Result{Success: false, Message: err.Error()}
	}
	reports, err := c.store.ListPendingReports(ctx)
	if err != nil {
		c.logger.Error("list pending reports failed", "error", err)
		return Result{Success: false, Message: err.Error()}
	}

	if len(attachments) == 0 && len(reports) == 0 {
		return Result{Success: true, Message: "No pending items to synchronize"}
	}

	start := time.Now()
	c.metrics.SyncRunning.Set(1)
	defer c.metrics.SyncRunning.Set(0)
	c.metrics.SyncDrains.Inc()
	c.setProgress(Progress{Total: len(attachments) + len(reports)})
	c.logger.Info("drain started", "attachments", len(attachments), "reports", len(reports))

	// Attachments strictly before reports: report payloads reference the
	// locators produced here.
	locators := c.drainAttachments(ctx, attachments)
	c.drainReports(ctx, reports, locators)

	p := c.Progress()
	c.metrics.SyncDrainDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("drain finished", "completed", p.Completed, "errors", p.Errors)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Synchronized %d items with %d errors", p.Completed, p.Errors),
	}
}

// drainAttachments uploads every pending attachment, deleting each from the
// queue only after its upload succeeded. Returns remote locators keyed by
// local attachment id for the report phase.
func (c *Coordinator) drainAttachments(ctx context.Context, attachments []queue.PendingAttachment) map[int64]string {
	locators := make(map[int64]string, len(attachments))
	for _, a := range attachments {
		itemCtx, cancel := context.WithTimeout(ctx, c.itemTimeout)
		locator, err := c.gateway.PutAttachment(itemCtx, attachmentPath(a), a.Payload)
		if err != nil {
			cancel()
			c.itemFailed("attachment upload failed", "local_id", a.LocalID, err)
			continue
		}
		if err := c.store.DeleteAttachment(itemCtx, a.LocalID); err != nil {
			cancel()
			// The binary is uploaded but still queued; the next drain will
			// re-upload under a fresh name, which is safe, just wasteful.
			c.itemFailed("attachment delete failed after upload", "local_id", a.LocalID, err)
			continue
		}
		cancel()
		locators[a.LocalID] = locator
		c.itemCompleted()
	}
	return locators
}

// drainReports submits every pending report. Reports whose attachments
// uploaded in this drain get those locators appended to their images list;
// reports that fail stay pending_upload and are picked up by the next drain.
func (c *Coordinator) drainReports(ctx context.Context, reports []queue.PendingReport, locators map[int64]string) {
	for _, r := range reports {
		itemCtx, cancel := context.WithTimeout(ctx, c.itemTimeout)
		payload, err := c.submissionPayload(itemCtx, r, locators)
		if err != nil {
			cancel()
			c.itemFailed("report payload rejected", "local_id", r.LocalID, err)
			continue
		}
		remoteID, err := c.gateway.CreateDocument(itemCtx, domain.ReportsCollection, payload)
		if err != nil {
			cancel()
			c.itemFailed("report submission failed", "local_id", r.LocalID, err)
			continue
		}
		if err := c.store.MarkReportUploaded(itemCtx, r.LocalID); err != nil {
			cancel()
			// Submitted but still marked pending: the next drain resubmits,
			// producing a duplicate document rather than losing the report.
			c.itemFailed("mark uploaded failed after submit", "local_id", r.LocalID, err)
			continue
		}
		cancel()
		c.logger.Debug("report submitted", "local_id", r.LocalID, "remote_id", remoteID)
		c.itemCompleted()
	}
}

// submissionPayload builds the remote document from a queued report:
// bookkeeping stripped, uploaded attachment URLs appended to images, local
// attachment references dropped.
func (c *Coordinator) submissionPayload(ctx context.Context, r queue.PendingReport, locators map[int64]string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode queued report: %w", err)
	}
	for _, field := range bookkeepingFields {
		delete(payload, field)
	}
	if _, ok := payload["status"]; !ok {
		payload["status"] = domain.StatusPending
	}

	var images []any
	if existing, ok := payload["images"].([]any); ok {
		images = existing
	}
	for _, attachmentID := range r.AttachmentIDs {
		locator, ok := locators[attachmentID]
		if !ok {
			// Attachment failed or was already consumed by an earlier drain;
			// the report still goes out with whatever media it has.
			continue
		}
		url, err := c.gateway.LocatorURL(ctx, locator)
		if err != nil {
			c.logger.Warn("locator resolution failed, storing raw locator",
				"locator", locator, "error", err)
			url = locator
		}
		images = append(images, url)
	}
	if len(images) > 0 {
		payload["images"] = images
	}
	return payload, nil
}

// attachmentPath namespaces uploads by user and adds capture time plus a
// random component so repeated uploads of the same file never collide.
func attachmentPath(a queue.PendingAttachment) string {
	return fmt.Sprintf("uploads/%s/%d-%s-%s", a.UserID, a.CapturedAt.UnixMilli(), uuid.NewString()[:8], a.FileName)
}

func (c *Coordinator) setProgress(p Progress) {
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
}

func (c *Coordinator) itemCompleted() {
	c.mu.Lock()
	c.progress.Completed++
	c.mu.Unlock()
	c.metrics.SyncItemsComplete.Inc()
}

func (c *Coordinator) itemFailed(msg, idKey string, id int64, err error) {
	c.logger.Warn(msg, idKey, id, "error", err)
	c.mu.Lock()
	c.progress.Errors++
	c.mu.Unlock()
	c.metrics.SyncItemsErrored.Inc()
}
