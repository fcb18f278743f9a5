package users

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*mockRepository
	listCalls int
}

func (c *countingRepo) List(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	c.listCalls++
	return c.mockRepository.List(ctx, search, limit, offset)
}

func newCachedService(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{mockRepository: newMockRepository()}
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache, nil), repo
}

func TestListCachesRepeatedRequests(t *testing.T) {
	svc, repo := newCachedService(t)
	seedUsers(t, svc, 3)

	first, err := svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	callsAfterFirst := repo.listCalls

	second, err := svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, repo.listCalls, "second identical request should be served from cache")
	assert.Equal(t, first.Total, second.Total)
	assert.Len(t, second.Data, len(first.Data))
}

func TestListCacheKeyedBySearchAndPage(t *testing.T) {
	svc, repo := newCachedService(t)
	seedUsers(t, svc, 3)

	_, err := svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	calls := repo.listCalls

	_, err = svc.List(context.Background(), ListUsersRequest{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, calls+1, repo.listCalls, "different page misses cache")

	_, err = svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10, Search: "user"})
	require.NoError(t, err)
	assert.Equal(t, calls+2, repo.listCalls, "different search misses cache")
}

func TestWritesInvalidateListCache(t *testing.T) {
	svc, repo := newCachedService(t)
	seedUsers(t, svc, 2)

	resp, err := svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)

	// Create bumps the version, so the next list reloads.
	callsBefore := repo.listCalls
	_, err = svc.Create(context.Background(), CreateUserRequest{
		FirstName: "New", LastName: "User", Email: "new@example.com",
	})
	require.NoError(t, err)

	resp, err = svc.List(context.Background(), ListUsersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, callsBefore+1, repo.listCalls)
	assert.Equal(t, 3, resp.Total)
}

func TestCacheNilSafe(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	seedUsers(t, svc, 1)

	resp, err := svc.List(context.Background(), ListUsersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
}
