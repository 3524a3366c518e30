package sqlite

import (
	"context"
	"strings"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

type transferAuditRepo struct {
	db dbtx
}

func (r *transferAuditRepo) AppendEntry(ctx context.Context, e domain.TransferAuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transfer_audit (
			id, subject_key, old_path, new_path, actor, outcome, error_detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectKey, e.OldPath, e.NewPath, e.Actor, e.Outcome, e.ErrorDetail, e.CreatedAt,
	)
	return err
}

func (r *transferAuditRepo) QueryEntries(ctx context.Context, f domain.AuditFilter) ([]domain.TransferAuditEntry, error) {
	var conds []string
	var args []any

	if f.SubjectKey != "" {
		conds = append(conds, "subject_key = ?")
		args = append(args, f.SubjectKey)
	}
	if f.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.Until)
	}

	q := `SELECT id, subject_key, old_path, new_path, actor, outcome, error_detail, created_at
		FROM transfer_audit`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransferAuditEntry
	for rows.Next() {
		var e domain.TransferAuditEntry
		if err := rows.Scan(
			&e.ID, &e.SubjectKey, &e.OldPath, &e.NewPath,
			&e.Actor, &e.Outcome, &e.ErrorDetail, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
