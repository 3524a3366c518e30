package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrgUnitPathFromDN(t *testing.T) {
	t.Run("collects OU components in order", func(t *testing.T) {
		require.Equal(t, "OU=IT,OU=New",
			OrgUnitPathFromDN("CN=jsmith,OU=IT,OU=New,DC=corp,DC=example,DC=com"))
	})

	t.Run("is case-insensitive on the attribute name", func(t *testing.T) {
		require.Equal(t, "ou=IT,OU=New",
			OrgUnitPathFromDN("CN=jsmith,ou=IT,OU=New,DC=corp,DC=example,DC=com"))
	})

	t.Run("returns empty for DNs without OU", func(t *testing.T) {
		require.Empty(t, OrgUnitPathFromDN("CN=jsmith,DC=corp,DC=example,DC=com"))
		require.Empty(t, OrgUnitPathFromDN(""))
	})
}

func TestRDN(t *testing.T) {
	d := DirectoryIdentity{DistinguishedName: "CN=jsmith,OU=IT,OU=New,DC=corp,DC=example,DC=com"}
	require.Equal(t, "CN=jsmith", d.RDN())
}

func TestFullNames(t *testing.T) {
	id := Identity{FirstNameEN: "John", LastNameEN: "Smith"}
	require.Equal(t, "John Smith", id.FullNameEN())
	require.Equal(t, "John Smith", id.FullNameAR()) // falls back without Arabic parts

	id.FirstNameAR = "جون"
	id.LastNameAR = "سميث"
	require.Equal(t, "جون سميث", id.FullNameAR())
}
