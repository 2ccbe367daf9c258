package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
	"github.com/smartdev1/tours-bulk-editor/internal/checkpoint"
)

// Default orchestrator tuning. Overridable via Config.
const (
	DefaultChunkSize         = 50
	DefaultMaxItems          = 5000
	DefaultTimeBudget        = 25 * time.Second
	DefaultSafetyMargin      = 2 * time.Second
	DefaultRetention         = 24 * time.Hour
	DefaultProgressTTL       = 10 * time.Minute
	DefaultPreviewWindowDays = 90
	DefaultPreviewSample     = 5
)

// Config tunes the orchestrator. Zero fields take the defaults above.
type Config struct {
	// ChunkSize is the number of items processed per checkpoint.
	ChunkSize int

	// MaxItems caps the item set accepted by Start.
	MaxItems int

	// TimeBudget is the wall-clock budget for one invocation. The
	// orchestrator stops before the next chunk once
	// TimeBudget - SafetyMargin has elapsed.
	TimeBudget   time.Duration
	SafetyMargin time.Duration

	// Retention is how long an incomplete operation stays resumable.
	// Checkpoints older than this are rejected with CANNOT_RESUME even if
	// the backing store has not expired them yet.
	Retention time.Duration

	// ProgressTTL bounds the lifetime of the polling snapshot key.
	ProgressTTL time.Duration

	// PreviewWindowDays is the size of the date window expanded by Preview.
	PreviewWindowDays int

	// PreviewSample is the default number of items previewed.
	PreviewSample int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	if c.SafetyMargin <= 0 {
		c.SafetyMargin = DefaultSafetyMargin
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.ProgressTTL <= 0 {
		c.ProgressTTL = DefaultProgressTTL
	}
	if c.PreviewWindowDays <= 0 {
		c.PreviewWindowDays = DefaultPreviewWindowDays
	}
	if c.PreviewSample <= 0 {
		c.PreviewSample = DefaultPreviewSample
	}
	return c
}

// ChunkEvent describes one completed chunk, emitted for observability after
// the chunk's checkpoint has been persisted.
type ChunkEvent struct {
	OperationID     string
	InvocationToken string
	ChunkIndex      int // cumulative across invocations, 1-based after increment
	ChunkSize       int
	Succeeded       int
	Failed          int
	TotalProcessed  int
	TotalFailed     int
	Remaining       int
	Elapsed         time.Duration // since this invocation started
}

// EventSink receives chunk-completion events. Implementations must not
// block; the orchestrator calls them synchronously between chunks.
type EventSink interface {
	ChunkCompleted(event ChunkEvent)
}

// Result is the outcome of one orchestrator invocation.
type Result struct {
	OperationID    string        `json:"operation_id"`
	State          State         `json:"state"`
	TotalItems     int           `json:"total_items"`
	SuccessCount   int           `json:"success_count"`
	UnchangedCount int           `json:"unchanged_count"`
	FailedCount    int           `json:"failed_count"`
	Errors         []ItemFailure `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	IsComplete     bool          `json:"is_complete"`
	IsResume       bool          `json:"is_resume"`
	ProcessingTime float64       `json:"processing_time_seconds"`
	ChunkCount     int           `json:"chunk_count"`
}

// StartRequest is the input to Start.
type StartRequest struct {
	ItemIDs []string
	Change  availability.ChangeSet

	// OperationID is optional; when empty it is derived deterministically
	// from the request so identical resubmissions are idempotent-detectable.
	OperationID string

	// User is the submitting operator, part of the derived identity.
	User string
}

// Orchestrator owns the resumable batch state machine. It is constructed
// with explicit collaborators - no global state - so tests can substitute
// doubles for the item store, checkpoint store and clock.
//
// Execution is single-threaded and synchronous within one invocation; the
// invocation owns the operation state exclusively for its duration.
// Concurrency arises across invocations and is absorbed by last-write-wins
// checkpoints plus item-level idempotency.
type Orchestrator struct {
	items       ItemStore
	checkpoints checkpoint.Store
	executor    *Executor
	clock       Clock
	tokens      TokenGenerator
	cfg         Config
	logger      *slog.Logger
	events      EventSink
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default tuning.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithClock substitutes the wall clock (tests).
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithTokenGenerator substitutes the invocation token generator (tests).
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(o *Orchestrator) { o.tokens = gen }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithEventSink registers a chunk-completion event sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.events = sink }
}

// New creates an orchestrator over the given item and checkpoint stores.
func New(items ItemStore, checkpoints checkpoint.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		items:       items,
		checkpoints: checkpoints,
		clock:       SystemClock{},
		tokens:      UUIDv7Generator{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg = o.cfg.withDefaults()
	o.executor = NewExecutor(items, o.logger)
	return o
}

// Start begins or resumes a batch operation.
//
// Pre-flight validation rejects empty or oversized item lists and trivial
// or invalid change sets before any item is touched. If a non-expired
// checkpoint already exists for the operation ID, Start resumes it instead
// of starting fresh.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*Result, error) {
	if len(req.ItemIDs) == 0 {
		return nil, newError(ErrCodeEmptyItemList, "no item ids supplied")
	}
	itemIDs := dedupeStrings(req.ItemIDs)
	if len(itemIDs) > o.cfg.MaxItems {
		return nil, newError(ErrCodeTooManyItems,
			fmt.Sprintf("%d items exceeds the maximum of %d", len(itemIDs), o.cfg.MaxItems))
	}

	change := req.Change.Normalize()
	if change.IsEmpty() {
		return nil, newError(ErrCodeEmptyChangeSet, "every change field is absent and reset is false")
	}
	if err := change.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeValidationFailed, Message: err.Error(), Err: err}
	}

	now := o.clock.Now()
	operationID := req.OperationID
	if operationID == "" {
		derived, err := availability.OperationID(itemIDs, change, req.User, now)
		if err != nil {
			return nil, &Error{Code: ErrCodeValidationFailed, Message: "derive operation id", Err: err}
		}
		operationID = derived
	}

	op, found, err := o.loadState(ctx, operationID)
	if err != nil {
		return nil, wrapStorageError(operationID, 0, err)
	}
	if found && op != nil && !op.Expired(now, o.cfg.Retention) {
		return o.run(ctx, op, true)
	}
	if found {
		// Expired or malformed checkpoint under this ID: start fresh.
		o.logger.Warn("discarding stale checkpoint", "operation_id", operationID)
		if err := o.checkpoints.Delete(ctx, checkpoint.StateKey(operationID)); err != nil {
			return nil, wrapStorageError(operationID, 0, err)
		}
	}

	op = &Operation{
		OperationID: operationID,
		User:        req.User,
		AllItemIDs:  itemIDs,
		Change:      change,
		StartedAt:   now,
	}
	return o.run(ctx, op, false)
}

// Resume continues an interrupted operation from its checkpoint.
//
// A missing checkpoint yields CANNOT_RESUME, unless the progress snapshot
// shows the operation already completed, which yields ALREADY_COMPLETED.
// Malformed or aged-out checkpoints are CANNOT_RESUME as well.
func (o *Orchestrator) Resume(ctx context.Context, operationID string) (*Result, error) {
	op, found, err := o.loadState(ctx, operationID)
	if err != nil {
		return nil, wrapStorageError(operationID, 0, err)
	}
	if !found {
		if progress, ok, perr := o.loadProgress(ctx, operationID); perr == nil && ok && progress.Status == StateCompleted {
			return nil, &Error{
				Code:        ErrCodeAlreadyCompleted,
				Message:     "operation already ran to completion",
				OperationID: operationID,
			}
		}
		return nil, &Error{
			Code:        ErrCodeCannotResume,
			Message:     "no resumable checkpoint for this operation",
			OperationID: operationID,
		}
	}
	if op == nil {
		return nil, &Error{
			Code:        ErrCodeCannotResume,
			Message:     "checkpoint is missing required fields",
			OperationID: operationID,
		}
	}
	if op.Expired(o.clock.Now(), o.cfg.Retention) {
		if err := o.checkpoints.Delete(ctx, checkpoint.StateKey(operationID)); err != nil {
			return nil, wrapStorageError(operationID, len(op.ProcessedIDs), err)
		}
		return nil, &Error{
			Code:        ErrCodeCannotResume,
			Message:     fmt.Sprintf("checkpoint is older than the %s retention window", o.cfg.Retention),
			OperationID: operationID,
		}
	}
	return o.run(ctx, op, true)
}

// Cancel removes the operation's resume state unconditionally. Returns
// whether a checkpoint existed.
//
// Already-applied item mutations are NOT rolled back - cancellation stops
// future chunks, it does not undo past ones. Callers must surface that
// consequence to the operator.
func (o *Orchestrator) Cancel(ctx context.Context, operationID string) (bool, error) {
	op, found, err := o.loadState(ctx, operationID)
	if err != nil {
		return false, wrapStorageError(operationID, 0, err)
	}
	if err := o.checkpoints.Delete(ctx, checkpoint.StateKey(operationID)); err != nil {
		return false, wrapStorageError(operationID, 0, err)
	}
	if found && op != nil {
		snapshot := snapshotProgress(op, StateCancelled, o.clock.Now())
		if data, err := encodeProgress(snapshot); err == nil {
			if err := o.checkpoints.Put(ctx, checkpoint.ProgressKey(operationID), data, o.cfg.ProgressTTL); err != nil {
				o.logger.Warn("cancel: progress marker write failed", "operation_id", operationID, "error", err)
			}
		}
	}
	o.logger.Info("operation cancelled", "operation_id", operationID, "had_checkpoint", found)
	return found, nil
}

// GetProgress returns the latest known progress for an operation without
// running any chunk, or nil when nothing is known about the ID.
func (o *Orchestrator) GetProgress(ctx context.Context, operationID string) (*Progress, error) {
	progress, found, err := o.loadProgress(ctx, operationID)
	if err != nil {
		return nil, wrapStorageError(operationID, 0, err)
	}
	if found {
		return progress, nil
	}
	// The short-TTL snapshot may have expired while the resume state is
	// still live; fall back to recomputing from it.
	op, found, err := o.loadState(ctx, operationID)
	if err != nil {
		return nil, wrapStorageError(operationID, 0, err)
	}
	if !found || op == nil {
		return nil, nil
	}
	p := snapshotProgress(op, StateInterrupted, o.clock.Now())
	return &p, nil
}

// run drives the chunk loop for one invocation.
func (o *Orchestrator) run(ctx context.Context, op *Operation, isResume bool) (*Result, error) {
	invocationStart := o.clock.Now()
	token := o.tokens.Generate()
	logger := o.logger.With("operation_id", op.OperationID, "invocation", token)
	deadline := invocationStart.Add(o.cfg.TimeBudget - o.cfg.SafetyMargin)

	logger.Info("batch invocation started",
		"total", len(op.AllItemIDs),
		"remaining", len(op.Remaining()),
		"chunk_size", o.cfg.ChunkSize,
		"resume", isResume)

	warnings := newWarningSet()
	interrupted := false

	for {
		remaining := op.Remaining()
		if len(remaining) == 0 {
			break
		}
		if ctx.Err() != nil || !o.clock.Now().Before(deadline) {
			interrupted = true
			break
		}

		chunk := remaining
		if len(chunk) > o.cfg.ChunkSize {
			chunk = chunk[:o.cfg.ChunkSize]
		}

		succeeded, failed := 0, 0
		for _, itemID := range chunk {
			applied, conflicts, err := o.executor.Apply(ctx, itemID, op.Change)
			if err != nil {
				// Per-item failures never stop the batch; they are
				// recorded and the loop moves on.
				op.RecordFailure(itemID, err.Error())
				failed++
				logger.Debug("item failed", "item_id", itemID, "error", err)
				continue
			}
			op.RecordSuccess(itemID)
			succeeded++
			if !applied {
				op.UnchangedCount++
			}
			for _, c := range conflicts {
				warnings.add(c.Message)
			}
		}

		op.CurrentChunkIndex++
		op.LastCheckpointAt = o.clock.Now()
		if err := o.persistCheckpoint(ctx, op); err != nil {
			// Chunk-level failure: abort the remaining chunks of this
			// invocation. Progress up to the previous checkpoint survives,
			// so the operation is still resumable.
			logger.Error("checkpoint persist failed, aborting invocation", "error", err)
			return nil, wrapStorageError(op.OperationID, len(op.ProcessedIDs), err)
		}

		event := ChunkEvent{
			OperationID:     op.OperationID,
			InvocationToken: token,
			ChunkIndex:      op.CurrentChunkIndex,
			ChunkSize:       len(chunk),
			Succeeded:       succeeded,
			Failed:          failed,
			TotalProcessed:  len(op.ProcessedIDs),
			TotalFailed:     len(op.Failures),
			Remaining:       len(op.Remaining()),
			Elapsed:         o.clock.Now().Sub(invocationStart),
		}
		if o.events != nil {
			o.events.ChunkCompleted(event)
		}
		logger.Info("chunk completed",
			"chunk", event.ChunkIndex,
			"succeeded", event.Succeeded,
			"failed", event.Failed,
			"remaining", event.Remaining)
	}

	elapsed := o.clock.Now().Sub(invocationStart)
	result := &Result{
		OperationID:    op.OperationID,
		TotalItems:     len(op.AllItemIDs),
		SuccessCount:   len(op.ProcessedIDs),
		UnchangedCount: op.UnchangedCount,
		FailedCount:    len(op.Failures),
		Errors:         append([]ItemFailure(nil), op.Failures...),
		IsResume:       isResume,
		ProcessingTime: elapsed.Seconds(),
		ChunkCount:     op.CurrentChunkIndex,
	}

	if interrupted {
		// Time budget exhausted (or context cancelled) with work left:
		// expected control flow, not an error. Refresh the checkpoint so
		// a pure-deadline exit (zero chunks this invocation) still leaves
		// resumable state behind.
		op.LastCheckpointAt = o.clock.Now()
		if err := o.persistCheckpoint(ctx, op); err != nil {
			return nil, wrapStorageError(op.OperationID, len(op.ProcessedIDs), err)
		}
		result.State = StateInterrupted
		result.IsComplete = false
		warnings.add(fmt.Sprintf("time budget exhausted with %d items remaining; resume with operation id %s",
			len(op.Remaining()), op.OperationID))
		result.Warnings = warnings.list()
		logger.Info("batch invocation interrupted",
			"processed", result.SuccessCount, "failed", result.FailedCount,
			"remaining", len(op.Remaining()), "elapsed", elapsed)
		return result, nil
	}

	// Full completion: drop the resume state, leave a completed marker in
	// the progress key so late polls and duplicate resumes can tell
	// "completed" from "unknown".
	if err := o.checkpoints.Delete(ctx, checkpoint.StateKey(op.OperationID)); err != nil {
		return nil, wrapStorageError(op.OperationID, len(op.ProcessedIDs), err)
	}
	finished := snapshotProgress(op, StateCompleted, o.clock.Now())
	if data, err := encodeProgress(finished); err == nil {
		if err := o.checkpoints.Put(ctx, checkpoint.ProgressKey(op.OperationID), data, o.cfg.ProgressTTL); err != nil {
			logger.Warn("completed marker write failed", "error", err)
		}
	}

	result.State = StateCompleted
	result.IsComplete = true
	result.Warnings = warnings.list()
	logger.Info("batch operation completed",
		"processed", result.SuccessCount,
		"unchanged", result.UnchangedCount,
		"failed", result.FailedCount,
		"chunks", result.ChunkCount,
		"elapsed", elapsed)
	return result, nil
}

// persistCheckpoint writes the resume state and the polling snapshot,
// keeping the two keys consistent. Losing the snapshot is tolerable;
// failing to write the resume state is not.
func (o *Orchestrator) persistCheckpoint(ctx context.Context, op *Operation) error {
	data, err := op.Encode()
	if err != nil {
		return err
	}
	if err := o.checkpoints.Put(ctx, checkpoint.StateKey(op.OperationID), data, o.cfg.Retention); err != nil {
		return fmt.Errorf("persist resume state: %w", err)
	}

	snapshot := snapshotProgress(op, StateRunning, op.LastCheckpointAt)
	progressData, err := encodeProgress(snapshot)
	if err != nil {
		return err
	}
	if err := o.checkpoints.Put(ctx, checkpoint.ProgressKey(op.OperationID), progressData, o.cfg.ProgressTTL); err != nil {
		return fmt.Errorf("persist progress snapshot: %w", err)
	}
	return nil
}

func (o *Orchestrator) loadState(ctx context.Context, operationID string) (*Operation, bool, error) {
	data, found, err := o.checkpoints.Get(ctx, checkpoint.StateKey(operationID))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	op, err := DecodeOperation(data)
	if err != nil {
		// Present but unusable: the caller decides between "cannot
		// resume" (explicit resume) and "start fresh" (start).
		o.logger.Warn("malformed checkpoint", "operation_id", operationID, "error", err)
		return nil, true, nil
	}
	return op, true, nil
}

func (o *Orchestrator) loadProgress(ctx context.Context, operationID string) (*Progress, bool, error) {
	data, found, err := o.checkpoints.Get(ctx, checkpoint.ProgressKey(operationID))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	progress, err := decodeProgress(data)
	if err != nil {
		o.logger.Warn("malformed progress snapshot", "operation_id", operationID, "error", err)
		return nil, false, nil
	}
	return progress, true, nil
}

// dedupeStrings removes duplicates preserving first-seen order.
func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// warningSet accumulates distinct warning messages preserving insertion
// order. Identical conflicts repeat for every item in a batch; operators
// need each message once.
type warningSet struct {
	seen    map[string]bool
	ordered []string
}

func newWarningSet() *warningSet {
	return &warningSet{seen: make(map[string]bool)}
}

func (w *warningSet) add(msg string) {
	if !w.seen[msg] {
		w.seen[msg] = true
		w.ordered = append(w.ordered, msg)
	}
}

func (w *warningSet) list() []string { return w.ordered }
