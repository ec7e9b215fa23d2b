//go:build integration

package refdata_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodyprofile/internal/refdata"
	"custodyprofile/pkg/testutil/containers"
)

// countingStore counts hits against the backing store so tests can observe
// cache behaviour.
type countingStore struct {
	mu    sync.Mutex
	inner refdata.Store
	calls int
}

func (s *countingStore) CodesForDomain(ctx context.Context, domain string) ([]refdata.Code, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.inner.CodesForDomain(ctx, domain)
}

func (s *countingStore) FindCode(ctx context.Context, domain, code string) (*refdata.Code, error) {
	return s.inner.FindCode(ctx, domain, code)
}

type CachedStoreSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backing *countingStore
	cache   *refdata.CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backing = &countingStore{inner: refdata.NewSeededStore()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = refdata.NewCachedStore(s.backing, s.redis.Client, time.Minute, logger)
}

func (s *CachedStoreSuite) TestSecondReadServedFromCache() {
	ctx := context.Background()

	first, err := s.cache.CodesForDomain(ctx, "HAIR")
	s.Require().NoError(err)
	s.NotEmpty(first)
	s.Equal(1, s.backing.calls)

	second, err := s.cache.CodesForDomain(ctx, "HAIR")
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(1, s.backing.calls, "cached read must not hit the backing store")
}

func (s *CachedStoreSuite) TestDomainsCachedIndependently() {
	ctx := context.Background()

	_, err := s.cache.CodesForDomain(ctx, "HAIR")
	s.Require().NoError(err)
	_, err = s.cache.CodesForDomain(ctx, "EYE")
	s.Require().NoError(err)
	s.Equal(2, s.backing.calls)
}

func (s *CachedStoreSuite) TestCorruptEntryFallsBack() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "refdata:domain:HAIR", "not json", time.Minute).Err())

	codes, err := s.cache.CodesForDomain(ctx, "HAIR")
	s.Require().NoError(err)
	s.NotEmpty(codes)
	s.Equal(1, s.backing.calls)
}

func (s *CachedStoreSuite) TestFindCodeUsesCachedDomain() {
	ctx := context.Background()

	c, err := s.cache.FindCode(ctx, "HAIR", "BROWN")
	s.Require().NoError(err)
	s.Equal("BROWN", c.Code)

	c, err = s.cache.FindCode(ctx, "HAIR", "BLACK")
	s.Require().NoError(err)
	s.Equal("BLACK", c.Code)
	s.Equal(1, s.backing.calls)
}
