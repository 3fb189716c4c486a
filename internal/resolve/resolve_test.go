package resolve

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"issuer-agent/pkg/sentinel"
)

type ResolverSuite struct {
	suite.Suite
	cache    *MemoryStore
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.cache = NewMemoryStore()
	s.resolver = New(s.cache, time.Minute, slog.New(slog.DiscardHandler))
}

func countingSource(name string, value []byte, found bool, err error, calls *atomic.Int64) Source {
	return Source{
		Name: name,
		Fetch: func(context.Context, string) ([]byte, bool, error) {
			calls.Add(1)
			return value, found, err
		},
	}
}

func (s *ResolverSuite) TestCacheHitShortCircuits() {
	ctx := context.Background()
	s.Require().NoError(s.cache.SetWithTTL(ctx, "profile:addr-1", []byte(`cached`), time.Minute))

	var ledgerCalls, dbCalls atomic.Int64
	value, label, err := s.resolver.Resolve(ctx, "profile:addr-1",
		countingSource("ledger", []byte(`fresh`), true, nil, &ledgerCalls),
		countingSource("db", []byte(`stale`), true, nil, &dbCalls),
	)

	s.Require().NoError(err)
	s.Equal([]byte(`cached`), value)
	s.Equal(SourceCache, label)
	s.EqualValues(0, ledgerCalls.Load(), "upstream tiers must not run on a cache hit")
	s.EqualValues(0, dbCalls.Load())
	s.EqualValues(1, s.cache.Counter("cache_hits"))
	s.EqualValues(0, s.cache.Counter("cache_misses"))
}

func (s *ResolverSuite) TestMissWritesBackWithTTL() {
	ctx := context.Background()
	var calls atomic.Int64

	value, label, err := s.resolver.Resolve(ctx, "profile:addr-2",
		countingSource("ledger", []byte(`fresh`), true, nil, &calls),
	)

	s.Require().NoError(err)
	s.Equal([]byte(`fresh`), value)
	s.Equal("ledger", label)
	s.EqualValues(1, s.cache.Counter("cache_misses"))
	s.EqualValues(0, s.cache.Counter("cache_hits"))

	cached, ok, err := s.cache.Get(ctx, "profile:addr-2")
	s.Require().NoError(err)
	s.True(ok, "hit must be written back into the cache tier")
	s.Equal([]byte(`fresh`), cached)
}

func (s *ResolverSuite) TestFailingTierFallsThrough() {
	ctx := context.Background()
	var dbCalls atomic.Int64

	value, label, err := s.resolver.Resolve(ctx, "profile:addr-3",
		Source{Name: "ledger", Fetch: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, errors.New("node unreachable")
		}},
		countingSource("db", []byte(`from-db`), true, nil, &dbCalls),
	)

	s.Require().NoError(err, "a failing tier must not abort the chain")
	s.Equal([]byte(`from-db`), value)
	s.Equal("db", label)
	s.EqualValues(1, dbCalls.Load())
	s.EqualValues(1, s.cache.Counter("cache_misses"), "exactly one counter moves per resolve")

	cached, ok, _ := s.cache.Get(ctx, "profile:addr-3")
	s.True(ok)
	s.Equal([]byte(`from-db`), cached)
}

func (s *ResolverSuite) TestAllTiersEmptyReturnsNotFound() {
	var a, b atomic.Int64
	_, _, err := s.resolver.Resolve(context.Background(), "profile:missing",
		countingSource("ledger", nil, false, nil, &a),
		countingSource("db", nil, false, nil, &b),
	)

	s.Require().Error(err)
	s.True(IsNotFound(err))
	s.EqualValues(1, a.Load())
	s.EqualValues(1, b.Load())
}

func (s *ResolverSuite) TestAllTiersFailSurfacesLastError() {
	boom := errors.New("db down")
	_, _, err := s.resolver.Resolve(context.Background(), "profile:x",
		Source{Name: "ledger", Fetch: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, errors.New("node down")
		}},
		Source{Name: "db", Fetch: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, boom
		}},
	)

	s.Require().Error(err)
	s.ErrorIs(err, boom, "the last tier's error surfaces")
	s.False(errors.Is(err, sentinel.ErrNotFound))
}

func (s *ResolverSuite) TestExpiredEntryIsMiss() {
	ctx := context.Background()
	s.cache.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	s.Require().NoError(s.cache.SetWithTTL(ctx, "k", []byte(`old`), time.Minute))
	s.cache.now = time.Now

	var calls atomic.Int64
	value, label, err := s.resolver.Resolve(ctx, "k",
		countingSource("db", []byte(`new`), true, nil, &calls),
	)

	s.Require().NoError(err)
	s.Equal("db", label)
	s.Equal([]byte(`new`), value)
}

func TestResolver_DecryptFunctionAsSource(t *testing.T) {
	// The mnemonic decryption cache models a CPU-bound function as the only
	// upstream tier: cache miss runs the decryption, hit skips it entirely.
	cache := NewMemoryStore()
	r := New(cache, time.Minute, slog.New(slog.DiscardHandler))

	var decryptions atomic.Int64
	decryptTier := Source{Name: "decrypt", Fetch: func(context.Context, string) ([]byte, bool, error) {
		decryptions.Add(1)
		return []byte("mnemonic words"), true, nil
	}}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, _, err := r.Resolve(ctx, "mnemonic:acct-1", decryptTier)
		require.NoError(t, err)
		assert.Equal(t, []byte("mnemonic words"), v)
	}

	assert.EqualValues(t, 1, decryptions.Load(), "decryption runs once, then the cache serves")
	assert.EqualValues(t, 2, cache.Counter("cache_hits"))
	assert.EqualValues(t, 1, cache.Counter("cache_misses"))
}
