package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/pkg/idx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

var (
	ErrSubjectNotFound = errors.New("subject_not_found")
	ErrUnknownTarget   = errors.New("unknown_target")
)

// auditAttempts is how many times an audit write is retried before the
// failure is only logged. The move itself is never rolled back: the
// directory is authoritative and a missing audit row is the lesser harm.
// auditRetryDelay spaces the retries so a briefly locked database gets a
// chance to recover.
const (
	auditAttempts   = 3
	auditRetryDelay = 100 * time.Millisecond
)

// TransferService relocates directory entries between organizational
// units. Every attempt, successful or not, produces exactly one audit
// entry.
type TransferService struct {
	Directory   directory.Client
	Resolver    *directory.Resolver
	Store       store.Store
	Catalog     *domain.Catalog
	BaseDN      string
	Concurrency int
}

// BatchResult summarises a batch transfer.
type BatchResult struct {
	Results   []domain.TransferResult
	Succeeded int
	Total     int
}

// Summary renders the human-readable outcome line.
func (b BatchResult) Summary() string {
	return fmt.Sprintf("transferred %d of %d", b.Succeeded, b.Total)
}

// Transfer moves the subject identified by subjectKey into the catalog
// unit targetKey. Each call resolves the subject's current placement
// fresh; nothing cached from earlier operations is trusted.
func (s *TransferService) Transfer(ctx context.Context, subjectKey, targetKey, actor string) domain.TransferResult {
	l := slogx.FromContext(ctx)
	result := domain.TransferResult{SubjectKey: subjectKey}

	// Each attempt gets its own resolution scope so the current path is
	// read live even when the caller batched several operations.
	scope := directory.NewScope()

	// 1. Resolve the subject's current placement.
	subject, err := s.Resolver.Resolve(ctx, scope, subjectKey)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			result.Err = ErrSubjectNotFound
		case errors.Is(err, directory.ErrUnavailable):
			result.Err = ErrDirectoryUnavailable
		default:
			result.Err = err
		}
		s.audit(ctx, result, actor)
		return result
	}
	result.OldPath = subject.OrgUnitPath()

	// 2. Validate the target before touching the directory.
	target, ok := s.Catalog.Lookup(targetKey)
	if !ok {
		result.Err = ErrUnknownTarget
		s.audit(ctx, result, actor)
		return result
	}
	result.NewPath = target.Fragment

	// 3. Execute the move, keeping the entry's RDN.
	newParent := target.Fragment + "," + s.BaseDN
	if err := s.Directory.MoveEntry(ctx, subject.DistinguishedName, subject.RDN(), newParent); err != nil {
		result.Err = err
		s.audit(ctx, result, actor)
		return result
	}

	l.Info("transfer completed",
		slog.String("subject", subjectKey),
		slog.String("old_path", result.OldPath),
		slog.String("new_path", result.NewPath),
		slog.String("actor", actor),
	)
	s.audit(ctx, result, actor)
	return result
}

// TransferBatch moves every subject into the same target unit. Items are
// independent: one failure never stops the others, and each item gets
// its own audit entry.
func (s *TransferService) TransferBatch(ctx context.Context, subjectKeys []string, targetKey, actor string) BatchResult {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]domain.TransferResult, len(subjectKeys))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, key := range subjectKeys {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, key string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.Transfer(ctx, key, targetKey, actor)
		}(i, key)
	}
	wg.Wait()

	batch := BatchResult{Results: results, Total: len(subjectKeys)}
	for _, r := range results {
		if r.Err == nil {
			batch.Succeeded++
		}
	}

	slogx.FromContext(ctx).Info("transfer batch finished",
		slog.String("target", targetKey),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("total", batch.Total),
	)
	return batch
}

// audit writes the single audit entry for one attempt. Failures are
// retried a few times and then logged; the transfer outcome stands
// either way.
func (s *TransferService) audit(ctx context.Context, r domain.TransferResult, actor string) {
	entry := domain.TransferAuditEntry{
		ID:         idx.New().String(),
		SubjectKey: r.SubjectKey,
		OldPath:    r.OldPath,
		NewPath:    r.NewPath,
		Actor:      actor,
		Outcome:    domain.TransferSuccess,
		CreatedAt:  time.Now().UTC(),
	}
	if r.Err != nil {
		entry.Outcome = domain.TransferFailed
		entry.ErrorDetail = r.Err.Error()
	}

	var err error
	for attempt := 0; attempt < auditAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(auditRetryDelay):
			}
		}
		if err = s.Store.TransferAudit().AppendEntry(ctx, entry); err == nil {
			return
		}
	}
	slogx.FromContext(ctx).Error("audit write failed",
		slog.String("subject", r.SubjectKey),
		slog.String("outcome", entry.Outcome),
		slog.String("error", err.Error()),
	)
}
