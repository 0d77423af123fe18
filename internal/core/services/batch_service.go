package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const batchQueueSize = 64

// batchService implements the BatchSvcFacade interface
type batchService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	batchRepo   portsrepo.BatchRepositoryFacade
	poster      portssvc.LedgerPosterSvc
	concurrency int
	workers     int
	synchronous bool

	locks  *keyedMutex
	queue  chan string
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// BatchServiceOption is a functional option for configuring the batch service
type BatchServiceOption func(*batchService)

// WithBatchConcurrency bounds how many entries of one batch post in parallel
func WithBatchConcurrency(n int) BatchServiceOption {
	return func(s *batchService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBatchWorkers sets the number of background workers draining submitted batches
func WithBatchWorkers(n int) BatchServiceOption {
	return func(s *batchService) {
		s.workers = n
	}
}

// WithSynchronousBatches processes every batch inline in SubmitBatch
func WithSynchronousBatches() BatchServiceOption {
	return func(s *batchService) {
		s.synchronous = true
	}
}

// WithBatchAuditor adds the audit recorder dependency
func WithBatchAuditor(auditor portssvc.AuditSvcFacade) BatchServiceOption {
	return func(s *batchService) {
		s.Auditor = auditor
	}
}

// WithBatchClock overrides the clock
func WithBatchClock(clock func() time.Time) BatchServiceOption {
	return func(s *batchService) {
		s.Clock = clock
	}
}

// NewBatchService creates the batch poster and starts its workers.
// Without workers every batch is processed synchronously.
func NewBatchService(txManager portsrepo.TransactionManager, batchRepo portsrepo.BatchRepositoryFacade, poster portssvc.LedgerPosterSvc, options ...BatchServiceOption) portssvc.BatchSvcFacade {
	svc := &batchService{
		txManager:   txManager,
		batchRepo:   batchRepo,
		poster:      poster,
		concurrency: 4,
		workers:     2,
		locks:       newKeyedMutex(),
	}
	for _, option := range options {
		option(svc)
	}
	if svc.workers <= 0 {
		svc.synchronous = true
	}
	if !svc.synchronous {
		svc.queue = make(chan string, batchQueueSize)
		for i := 0; i < svc.workers; i++ {
			svc.wg.Add(1)
			go svc.work()
		}
	}
	return svc
}

var _ portssvc.BatchSvcFacade = (*batchService)(nil)

func batchNotFound(batchID string) error {
	return fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
}

func (s *batchService) work() {
	defer s.wg.Done()
	for batchID := range s.queue {
		ctx := context.Background()
		if _, err := s.ProcessBatch(ctx, batchID); err != nil {
			s.LogError(ctx, err, "Background batch processing failed", slog.String("batch_id", batchID))
		}
	}
}

// dispatch hands the batch to a worker. A full queue leaves the batch PENDING for ResumeUnfinished.
func (s *batchService) dispatch(ctx context.Context, batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.LogInfo(ctx, "Batch poster is shutting down, batch left pending", slog.String("batch_id", batchID))
		return
	}
	select {
	case s.queue <- batchID:
	default:
		s.LogInfo(ctx, "Batch queue full, batch left pending", slog.String("batch_id", batchID))
	}
}

func (s *batchService) SubmitBatch(ctx context.Context, companyID, userID string, entryIDs []string) (*domain.Batch, error) {
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("a batch needs at least one entry: %w", apperrors.ErrValidation)
	}
	seen := make(map[string]struct{}, len(entryIDs))
	entries := make([]domain.BatchEntry, len(entryIDs))
	for i, id := range entryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("entry id at position %d is empty: %w", i, apperrors.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("entry %s appears more than once: %w", id, apperrors.ErrValidation)
		}
		seen[id] = struct{}{}
		entries[i] = domain.BatchEntry{EntryID: id, Position: i, Outcome: domain.OutcomePending}
	}

	batch := domain.Batch{
		BatchID:    uuid.NewString(),
		CompanyID:  companyID,
		UserID:     userID,
		Status:     domain.BatchPending,
		TotalCount: len(entries),
		Entries:    entries,
		Errors:     []domain.BatchEntryError{},
		CreatedAt:  s.Now(),
		Version:    1,
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.batchRepo.SaveBatch(ctx, batch); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionBatchSubmitted, domain.EntityBatch, batch.BatchID,
			map[string]any{"entries": batch.TotalCount})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to submit batch", slog.String("company_id", companyID))
		return nil, err
	}
	s.LogInfo(ctx, "Batch submitted",
		slog.String("batch_id", batch.BatchID),
		slog.Int("entries", batch.TotalCount))

	if s.synchronous {
		return s.ProcessBatch(ctx, batch.BatchID)
	}
	s.dispatch(ctx, batch.BatchID)
	return &batch, nil
}

func (s *batchService) ProcessBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	unlock := s.locks.Lock(batchID)
	defer unlock()

	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status.IsTerminal() {
		return batch, nil
	}
	if batch.Status == domain.BatchPending {
		if batch, err = s.start(ctx, batch); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, entry := range batch.PendingEntries() {
		g.Go(func() error {
			return s.processEntry(gctx, batch, entry)
		})
	}
	if err := g.Wait(); err != nil {
		s.LogError(ctx, err, "Batch interrupted, pending entries will be retried", slog.String("batch_id", batchID))
		return nil, err
	}

	if batch, err = s.load(ctx, batchID); err != nil {
		return nil, err
	}
	if !batch.IsSettled() || batch.Status.IsTerminal() {
		return batch, nil
	}
	return s.finish(ctx, batch)
}

func (s *batchService) load(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, batchNotFound(batchID)
		}
		return nil, err
	}
	return batch, nil
}

// start moves a PENDING batch to PROCESSING. Losing the race to another starter is fine.
func (s *batchService) start(ctx context.Context, batch *domain.Batch) (*domain.Batch, error) {
	now := s.Now()
	expected := batch.Version
	started := *batch
	if err := started.Transition(domain.BatchProcessing); err != nil {
		return nil, err
	}
	started.StartedAt = &now
	started.Version++
	err := s.batchRepo.UpdateBatchStatus(ctx, started, expected)
	switch {
	case err == nil:
		return &started, nil
	case errors.Is(err, apperrors.ConcurrentModification):
		return s.load(ctx, batch.BatchID)
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, batchNotFound(batch.BatchID)
	default:
		return nil, err
	}
}

// processEntry posts one entry and records its outcome. Ledger failures become FAILED
// outcomes; only storage failures are returned.
func (s *batchService) processEntry(ctx context.Context, batch *domain.Batch, entry domain.BatchEntry) error {
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.poster.PostDraft(ctx, batch.CompanyID, batch.UserID, entry.EntryID); err != nil {
			return err
		}
		_, err := s.batchRepo.RecordOutcome(ctx, batch.BatchID, entry.Position, domain.OutcomePosted, nil)
		return err
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.StorageUnavailable) || ctx.Err() != nil {
		return err
	}

	entryErr := toBatchEntryError(entry, err)
	s.LogDebug(ctx, "Batch entry failed",
		slog.String("batch_id", batch.BatchID),
		slog.String("entry_id", entry.EntryID),
		slog.String("kind", entryErr.Kind))
	_, recErr := s.batchRepo.RecordOutcome(ctx, batch.BatchID, entry.Position, domain.OutcomeFailed, entryErr)
	return recErr
}

func toBatchEntryError(entry domain.BatchEntry, err error) *domain.BatchEntryError {
	out := &domain.BatchEntryError{
		EntryID:  entry.EntryID,
		Position: entry.Position,
		Message:  err.Error(),
	}
	if le, ok := apperrors.AsLedgerError(err); ok {
		out.Kind = string(le.Kind)
		if details := le.Details(); len(details) > 0 {
			out.Details = details
		}
		return out
	}
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		out.Kind = "VALIDATION_ERROR"
	case errors.Is(err, apperrors.ErrNotFound):
		out.Kind = "NOT_FOUND"
	case errors.Is(err, apperrors.ErrDuplicate):
		out.Kind = "DUPLICATE"
	case errors.Is(err, apperrors.ErrConflict):
		out.Kind = "CONFLICT"
	default:
		out.Kind = "INTERNAL_ERROR"
	}
	return out
}

func (s *batchService) finish(ctx context.Context, batch *domain.Batch) (*domain.Batch, error) {
	status := batch.FinalStatus()
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.batchRepo.MarkCompleted(ctx, batch.BatchID, status, s.Now()); err != nil {
			return err
		}
		return s.RecordAudit(ctx, batch.CompanyID, batch.UserID, domain.ActionBatchFinished, domain.EntityBatch, batch.BatchID,
			map[string]any{
				"status": status,
				"posted": batch.PostedCount,
				"failed": batch.FailedCount,
			})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to settle batch", slog.String("batch_id", batch.BatchID))
		return nil, err
	}
	s.LogInfo(ctx, "Batch finished",
		slog.String("batch_id", batch.BatchID),
		slog.String("status", string(status)),
		slog.Int("posted", batch.PostedCount),
		slog.Int("failed", batch.FailedCount))
	return s.load(ctx, batch.BatchID)
}

func (s *batchService) GetBatchStatus(ctx context.Context, companyID, batchID string) (*domain.Batch, error) {
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.CompanyID != companyID {
		return nil, batchNotFound(batchID)
	}
	return batch, nil
}

func (s *batchService) DiscardBatch(ctx context.Context, companyID, userID, batchID string) error {
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		batch, err := s.load(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.CompanyID != companyID {
			return batchNotFound(batchID)
		}
		if batch.Status != domain.BatchPending {
			return apperrors.NewLedgerError(apperrors.InvalidTransition,
				"batch %s is %s and can no longer be discarded", batchID, batch.Status)
		}
		if err := s.batchRepo.DeleteBatch(ctx, batchID); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionBatchDiscarded, domain.EntityBatch, batchID,
			map[string]any{"entries": batch.TotalCount})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to discard batch", slog.String("batch_id", batchID))
		return err
	}
	s.LogInfo(ctx, "Batch discarded", slog.String("batch_id", batchID))
	return nil
}

func (s *batchService) ResumeUnfinished(ctx context.Context) (int, error) {
	ids, err := s.batchRepo.ListUnfinishedBatchIDs(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list unfinished batches")
		return 0, err
	}
	for _, id := range ids {
		if s.synchronous {
			if _, err := s.ProcessBatch(ctx, id); err != nil {
				return 0, err
			}
			continue
		}
		s.dispatch(ctx, id)
	}
	if len(ids) > 0 {
		s.LogInfo(ctx, "Resumed unfinished batches", slog.Int("count", len(ids)))
	}
	return len(ids), nil
}

func (s *batchService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		if s.queue != nil {
			close(s.queue)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
