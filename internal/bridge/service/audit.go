package service

import (
	"context"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
)

// AuditService exposes the transfer audit trail read side.
type AuditService struct {
	Store store.Store
}

// Query returns matching audit entries, newest first.
func (s *AuditService) Query(ctx context.Context, f domain.AuditFilter) ([]domain.TransferAuditEntry, error) {
	return s.Store.TransferAudit().QueryEntries(ctx, f)
}
