package domain

import "time"

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefreshToken is the stored form of an opaque refresh credential. Only
// the SHA-256 fingerprint of the presented value is persisted.
type RefreshToken struct {
	ID          string // ULID
	IdentityID  string
	Fingerprint string
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// Profile is a local record merged with whatever directory attributes
// could be resolved. Directory holds the live view, nil when the
// directory was unavailable.
type Profile struct {
	Identity  Identity           `json:"identity"`
	Directory *DirectoryIdentity `json:"directory,omitempty"`
}

// SyncSummary reports one synchronization run.
type SyncSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// TransferResult is the outcome of a single transfer attempt within a
// batch. Err is nil on success.
type TransferResult struct {
	SubjectKey string
	OldPath    string
	NewPath    string
	Err        error
}
