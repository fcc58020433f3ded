//go:build integration

package cpi_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"marketgate/internal/compliance/cpi"
	"marketgate/pkg/platform/sentinel"
	"marketgate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cpi.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cpi.NewRedisCache(s.redis.Client, time.Hour)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Reset(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	asOf := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.cache.Save(ctx, cpi.Reading{Value: 3.1, Source: cpi.SourceLive, AsOf: asOf}))

	found, err := s.cache.Load(ctx, "2025-09")
	s.Require().NoError(err)
	s.Equal(3.1, found.Value)
	s.Equal(cpi.SourceLive, found.Source)
	s.True(asOf.Equal(found.AsOf))
}

func (s *RedisCacheSuite) TestMissReturnsErrNotFound() {
	_, err := s.cache.Load(context.Background(), "1999-01")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestTTLEviction() {
	ctx := context.Background()
	short := cpi.NewRedisCache(s.redis.Client, 50*time.Millisecond)
	s.Require().NoError(short.Save(ctx, cpi.Reading{Value: 2.0, AsOf: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}))

	time.Sleep(90 * time.Millisecond)

	_, err := short.Load(ctx, "2025-10")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestProviderFallsBackToSharedCache() {
	ctx := context.Background()
	asOf := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.cache.Save(ctx, cpi.Reading{Value: 2.4, Source: cpi.SourceLive, AsOf: asOf}))

	down := cpi.ProviderFunc(func(context.Context, time.Time) (cpi.Reading, error) {
		return cpi.Reading{}, cpi.NewSourceError(cpi.ErrorOutage, "test", "down", nil)
	})
	p, err := cpi.NewFallbackProvider(down, cpi.WithCache(s.cache))
	s.Require().NoError(err)

	r, err := p.CurrentIndex(ctx, asOf)
	s.Require().NoError(err)
	s.Equal(2.4, r.Value)
	s.Equal(cpi.SourceCache, r.Source)
	s.Equal("outage", r.Reason)
}
