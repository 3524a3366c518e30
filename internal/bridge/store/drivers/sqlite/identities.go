package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, external_key, employee_id, national_id,
	first_name_en, last_name_en, first_name_ar, last_name_ar,
	job_title, department, hire_date, active, staff, superuser,
	created_at, updated_at`

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *identitiesRepo) GetIdentityByKey(ctx context.Context, key string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE external_key = ?`, key)
	return scanIdentity(row)
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, id domain.Identity) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (
			id, external_key, employee_id, national_id,
			first_name_en, last_name_en, first_name_ar, last_name_ar,
			job_title, department, hire_date, active, staff, superuser,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.ID, id.ExternalKey, id.EmployeeID, id.NationalID,
		id.FirstNameEN, id.LastNameEN, id.FirstNameAR, id.LastNameAR,
		id.JobTitle, id.Department, mapOptionalTime(id.HireDate),
		id.Active, id.Staff, id.Superuser,
		now, now,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *identitiesRepo) UpdateProfile(ctx context.Context, identityID string, upd domain.ProfileUpdate) error {
	var sets []string
	var args []any

	set := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	set("first_name_en", upd.FirstNameEN)
	set("last_name_en", upd.LastNameEN)
	set("first_name_ar", upd.FirstNameAR)
	set("last_name_ar", upd.LastNameAR)
	set("job_title", upd.JobTitle)
	set("department", upd.Department)
	if upd.HireDate != nil {
		sets = append(sets, "hire_date = ?")
		args = append(args, *upd.HireDate)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), identityID)

	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) UpdateSyncedFields(ctx context.Context, identityID string, f domain.SyncedFields) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities
		SET first_name_en = ?, last_name_en = ?, job_title = ?, department = ?, updated_at = ?
		WHERE id = ?`,
		f.FirstNameEN, f.LastNameEN, f.JobTitle, f.Department, time.Now().UTC(), identityID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) ListIdentities(ctx context.Context) ([]domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE superuser = 0 ORDER BY external_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *identitiesRepo) CountIdentities(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domain.Identity, error) {
	var id domain.Identity
	var hireDate sql.NullTime

	err := row.Scan(
		&id.ID, &id.ExternalKey, &id.EmployeeID, &id.NationalID,
		&id.FirstNameEN, &id.LastNameEN, &id.FirstNameAR, &id.LastNameAR,
		&id.JobTitle, &id.Department, &hireDate,
		&id.Active, &id.Staff, &id.Superuser,
		&id.CreatedAt, &id.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	id.HireDate = mapNullTimePtr(hireDate)
	return id, nil
}
