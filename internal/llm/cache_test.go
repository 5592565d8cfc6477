package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetGuidance(ctx context.Context, description string) (*GuidanceResult, error) {
	args := m.Called(ctx, description)
	res, _ := args.Get(0).(*GuidanceResult)
	return res, args.Error(1)
}

type memCache struct {
	entries map[string]*guide.Guidance
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*guide.Guidance{}}
}

func (c *memCache) GetGuidanceCache(hash string) (*guide.Guidance, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[hash], nil
}

func (c *memCache) SetGuidanceCache(hash string, g *guide.Guidance) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[hash] = g
	return nil
}

func testGuidance() *guide.Guidance {
	return &guide.Guidance{
		Analysis:     guide.Analysis{Summary: "Recyclable."},
		Instructions: []string{"Bin it"},
	}
}

func TestCachedProvider_HitAfterMiss(t *testing.T) {
	inner := &mockProvider{}
	cache := newMemCache()
	p := NewCachedProvider(inner, cache)

	inner.On("GetGuidance", mock.Anything, "Item: Jar").
		Return(&GuidanceResult{Guidance: testGuidance(), Usage: Usage{TotalTokens: 10}}, nil).
		Once()

	first, err := p.GetGuidance(context.Background(), "Item: Jar")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.GetGuidance(context.Background(), "Item: Jar")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Guidance, second.Guidance)
	assert.Zero(t, second.Usage.TotalTokens)

	inner.AssertNumberOfCalls(t, "GetGuidance", 1)
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	inner := &mockProvider{}
	cache := newMemCache()
	p := NewCachedProvider(inner, cache)

	inner.On("GetGuidance", mock.Anything, "Item: Jar").Return(nil, errors.New("boom"))

	_, err := p.GetGuidance(context.Background(), "Item: Jar")
	assert.Error(t, err)
	assert.Empty(t, cache.entries)
}

func TestCachedProvider_CacheFailuresIgnored(t *testing.T) {
	inner := &mockProvider{}
	cache := newMemCache()
	cache.getErr = errors.New("db locked")
	cache.setErr = errors.New("db locked")
	p := NewCachedProvider(inner, cache)

	inner.On("GetGuidance", mock.Anything, "Item: Jar").
		Return(&GuidanceResult{Guidance: testGuidance()}, nil)

	res, err := p.GetGuidance(context.Background(), "Item: Jar")
	require.NoError(t, err)
	assert.NotNil(t, res.Guidance)
}

func TestCachedProvider_InvalidEntryIsMiss(t *testing.T) {
	inner := &mockProvider{}
	cache := newMemCache()
	cache.entries[HashDescription("Item: Jar")] = &guide.Guidance{}
	p := NewCachedProvider(inner, cache)

	inner.On("GetGuidance", mock.Anything, "Item: Jar").
		Return(&GuidanceResult{Guidance: testGuidance()}, nil).
		Once()

	res, err := p.GetGuidance(context.Background(), "Item: Jar")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	inner.AssertExpectations(t)
}

func TestHashDescription(t *testing.T) {
	assert.Equal(t, HashDescription("Item: Jar"), HashDescription("Item: Jar\n"))
	assert.NotEqual(t, HashDescription("Item: Jar"), HashDescription("Item: Can"))
	assert.Len(t, HashDescription("x"), 64)
}
