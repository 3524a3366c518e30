package domain

import "time"

// Transfer outcomes recorded in the audit trail.
const (
	TransferSuccess = "success"
	TransferFailed  = "failed"
	TransferPending = "pending"
)

// TransferAuditEntry is an immutable record of one organizational-unit
// transfer attempt. Exactly one entry is written per attempt, regardless
// of outcome.
type TransferAuditEntry struct {
	ID          string // ULID
	SubjectKey  string // external key of the moved identity
	OldPath     string // OU path before the move, "" when unresolvable
	NewPath     string // requested OU path
	Actor       string // principal that requested the transfer
	Outcome     string // TransferSuccess, TransferFailed or TransferPending
	ErrorDetail string // verbatim directory error when failed
	CreatedAt   time.Time
}

// AuditFilter narrows an audit query. Zero values mean no constraint.
type AuditFilter struct {
	SubjectKey string
	Outcome    string
	Since      time.Time
	Until      time.Time
	Limit      int
}
