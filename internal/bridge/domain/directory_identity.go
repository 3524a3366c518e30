package domain

import "strings"

// DirectoryIdentity is the live view of a principal as the directory
// reports it. It is never persisted locally; every operation scope reads
// it fresh so stale placement or contact data cannot leak across
// operations.
type DirectoryIdentity struct {
	Key               string // login handle (sAMAccountName)
	DistinguishedName string
	Mail              string
	Phone             string
	DisplayName       string
	GivenName         string
	Surname           string
	Title             string
	Department        string
}

// OrgUnitPath returns the organizational-unit portion of the distinguished
// name: the comma-joined OU components with the leading naming component
// and the domain components stripped.
func (d DirectoryIdentity) OrgUnitPath() string {
	return OrgUnitPathFromDN(d.DistinguishedName)
}

// RDN returns the leading naming component of the distinguished name,
// e.g. "CN=jsmith" for "CN=jsmith,OU=Sales,DC=x,DC=y".
func (d DirectoryIdentity) RDN() string {
	head, _, _ := strings.Cut(d.DistinguishedName, ",")
	return strings.TrimSpace(head)
}

// OrgUnitPathFromDN extracts the OU components of a distinguished name,
// preserving their order, e.g. "OU=Sales,OU=Base" for
// "CN=jsmith,OU=Sales,OU=Base,DC=x,DC=y". Returns "" when the DN holds no
// OU component.
func OrgUnitPathFromDN(dn string) string {
	var parts []string
	for _, part := range strings.Split(dn, ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 3 && strings.EqualFold(part[:3], "OU=") {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ",")
}
