// Package directory talks to the upstream LDAP/Active Directory service.
// It owns connection management, live attribute resolution and the entry
// mutations the rest of the application needs.
package directory

import (
	"context"
	"errors"

	"github.com/go-ldap/ldap/v3"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

var (
	// ErrNotFound means the directory answered and the entry does not exist.
	ErrNotFound = errors.New("directory_entry_not_found")

	// ErrUnavailable means the directory could not be reached or did not
	// answer. Callers must not treat it as an absence signal.
	ErrUnavailable = errors.New("directory_unavailable")

	// ErrInvalidCredentials is returned when a user bind is rejected.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// Client is the narrow surface the services use to reach the directory.
// SessionManager is the production implementation; tests use Fake.
type Client interface {
	// AuthenticateUser verifies loginID/secret with a single-use bind.
	// Returns false with ErrInvalidCredentials on rejection, and an
	// ErrUnavailable-wrapped error when the service cannot be reached.
	AuthenticateUser(ctx context.Context, loginID, secret string) (bool, error)

	// FindByKey resolves one identity by its external key (sAMAccountName).
	FindByKey(ctx context.Context, key string) (*domain.DirectoryIdentity, error)

	// SearchScope lists all person entries under the given scope DN.
	SearchScope(ctx context.Context, scopeDN string) ([]*domain.DirectoryIdentity, error)

	// MoveEntry relocates dn under newParent, keeping newRDN as its RDN.
	MoveEntry(ctx context.Context, dn, newRDN, newParent string) error

	// ModifyAttributes replaces the given attributes on dn. Attributes
	// mapped to an empty slice are left untouched.
	ModifyAttributes(ctx context.Context, dn string, attrs map[string][]string) error

	// Ping verifies the service session is usable.
	Ping(ctx context.Context) error
}

// classify wraps a raw LDAP error into one of the package sentinels so
// callers can branch on errors.Is without knowing result codes.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return ErrInvalidCredentials
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return ErrNotFound
	case ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown),
		ldap.IsErrorWithCode(err, ldap.LDAPResultBusy),
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable),
		ldap.IsErrorWithCode(err, ldap.LDAPResultTimeLimitExceeded),
		ldap.IsErrorWithCode(err, ldap.LDAPResultConnectError):
		return errors.Join(ErrUnavailable, err)
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		// Answered with a code we do not map, pass it through.
		return err
	}

	// Network-level failure, the service never answered.
	return errors.Join(ErrUnavailable, err)
}

// retryable reports whether the operation is worth one more attempt on a
// fresh connection.
func retryable(err error) bool {
	switch {
	case ldap.IsErrorWithCode(err, ldap.LDAPResultBusy),
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable),
		ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown):
		return true
	}
	var ldapErr *ldap.Error
	return err != nil && !errors.As(err, &ldapErr)
}
