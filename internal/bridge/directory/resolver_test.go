package directory

import (
	"context"
	"testing"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/stretchr/testify/require"
)

func TestResolverCachesWithinScope(t *testing.T) {
	ctx := context.Background()
	fake := NewFake()
	fake.Add(&domain.DirectoryIdentity{
		Key:               "jsmith",
		DistinguishedName: "CN=jsmith,OU=IT,OU=New,DC=corp,DC=example,DC=com",
	}, "")
	r := &Resolver{Client: fake}

	scope := NewScope()
	a, err := r.Resolve(ctx, scope, "jsmith")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, scope, "jsmith")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, fake.FindCalls)

	// A new scope reads live again.
	_, err = r.Resolve(ctx, NewScope(), "jsmith")
	require.NoError(t, err)
	require.Equal(t, 2, fake.FindCalls)
}

func TestResolverCachesDefinitiveMisses(t *testing.T) {
	ctx := context.Background()
	fake := NewFake()
	r := &Resolver{Client: fake}

	scope := NewScope()
	_, err := r.Resolve(ctx, scope, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.Resolve(ctx, scope, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, fake.FindCalls)
}

func TestResolverDoesNotCacheUnavailability(t *testing.T) {
	ctx := context.Background()
	fake := NewFake()
	fake.Add(&domain.DirectoryIdentity{
		Key:               "jsmith",
		DistinguishedName: "CN=jsmith,OU=IT,OU=New,DC=corp,DC=example,DC=com",
	}, "")
	r := &Resolver{Client: fake}

	scope := NewScope()
	fake.Down = true
	_, err := r.Resolve(ctx, scope, "jsmith")
	require.ErrorIs(t, err, ErrUnavailable)

	// The service recovers within the same operation.
	fake.Down = false
	got, err := r.Resolve(ctx, scope, "jsmith")
	require.NoError(t, err)
	require.Equal(t, "jsmith", got.Key)
}

func TestScopeFromContext(t *testing.T) {
	scope := NewScope()
	ctx := WithScope(context.Background(), scope)
	require.Same(t, scope, ScopeFromContext(ctx))

	// Without an attached scope a fresh one is handed out each time.
	a := ScopeFromContext(context.Background())
	b := ScopeFromContext(context.Background())
	require.NotSame(t, a, b)
}
