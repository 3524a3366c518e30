package domain

import "time"

// Identity is the locally owned record for a directory principal. The
// directory remains authoritative for credentials and placement; this row
// holds the editable profile fields and access flags the directory does
// not carry.
type Identity struct {
	ID          string // ULID
	ExternalKey string // directory login handle (sAMAccountName), immutable
	EmployeeID  string // unique internal identifier
	NationalID  string // unique internal identifier
	FirstNameEN string
	LastNameEN  string
	FirstNameAR string
	LastNameAR  string
	JobTitle    string
	Department  string
	HireDate    *time.Time // nullable
	Active      bool
	Staff       bool
	Superuser   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullNameEN joins the English given name and surname.
func (i Identity) FullNameEN() string {
	if i.FirstNameEN == "" {
		return i.LastNameEN
	}
	if i.LastNameEN == "" {
		return i.FirstNameEN
	}
	return i.FirstNameEN + " " + i.LastNameEN
}

// FullNameAR joins the Arabic given name and surname, falling back to the
// English full name when either part is missing.
func (i Identity) FullNameAR() string {
	if i.FirstNameAR != "" && i.LastNameAR != "" {
		return i.FirstNameAR + " " + i.LastNameAR
	}
	return i.FullNameEN()
}

// ProfileUpdate carries the editable subset of Identity fields. Nil
// pointers leave the stored value untouched.
type ProfileUpdate struct {
	FirstNameEN *string
	LastNameEN  *string
	FirstNameAR *string
	LastNameAR  *string
	JobTitle    *string
	Department  *string
	HireDate    *time.Time
}

// SyncedFields is the subset of Identity fields the reconciliation job is
// allowed to overwrite from directory attributes.
type SyncedFields struct {
	FirstNameEN string
	LastNameEN  string
	JobTitle    string
	Department  string
}
