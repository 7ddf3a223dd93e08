package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	broken  bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, false, errors.New("cache down")
	}
	b, ok := c.entries[key]
	return b, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errors.New("cache down")
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func TestCachedContent_ServesFromCache(t *testing.T) {
	origin := &fakeContent{chapters: []domain.Chapter{{Number: 1, EnglishName: "Al-Faatiha", NumberOfAyahs: 3}}}
	cache := newMapCache()
	c := NewCachedContent(zerolog.Nop(), origin, cache, 0)

	for i := 0; i < 3; i++ {
		list, err := c.Chapters(context.Background())
		if err != nil || len(list) != 1 {
			t.Fatalf("Chapters: %v %v", list, err)
		}
		ed, err := c.ChapterEdition(context.Background(), 1, domain.DefaultReciter)
		if err != nil || len(ed.Verses) != 3 || ed.Verses[0].Audio == "" {
			t.Fatalf("ChapterEdition: %+v %v", ed, err)
		}
	}
	if got := origin.Calls(); got != 2 {
		t.Fatalf("expected 2 origin calls, got %d", got)
	}
	if ttl := cache.ttls["hidaya:chapters"]; ttl != DefaultContentTTL {
		t.Fatalf("expected default ttl, got %v", ttl)
	}
	if _, ok := cache.entries["hidaya:chapter:1:"+domain.DefaultReciter]; !ok {
		t.Fatalf("chapter edition not cached under its key")
	}
}

func TestCachedContent_CacheFailureFallsThrough(t *testing.T) {
	origin := &fakeContent{chapters: []domain.Chapter{{Number: 1}}}
	cache := newMapCache()
	cache.broken = true
	c := NewCachedContent(zerolog.Nop(), origin, cache, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := c.Chapters(context.Background()); err != nil {
			t.Fatalf("Chapters: %v", err)
		}
	}
	if got := origin.Calls(); got != 2 {
		t.Fatalf("expected origin on each call, got %d", got)
	}
}

func TestCachedContent_CorruptedEntryIsRefetched(t *testing.T) {
	origin := &fakeContent{chapters: []domain.Chapter{{Number: 7}}}
	cache := newMapCache()
	cache.entries["hidaya:chapters"] = []byte("{not json")
	c := NewCachedContent(zerolog.Nop(), origin, cache, time.Hour)

	list, err := c.Chapters(context.Background())
	if err != nil || len(list) != 1 || list[0].Number != 7 {
		t.Fatalf("Chapters: %v %v", list, err)
	}
}

func TestCachedContent_ErrorsAreNotCached(t *testing.T) {
	origin := &fakeContent{err: errors.New("boom")}
	cache := newMapCache()
	c := NewCachedContent(zerolog.Nop(), origin, cache, time.Hour)

	if _, err := c.Chapters(context.Background()); err == nil {
		t.Fatalf("expected origin error")
	}
	if len(cache.entries) != 0 {
		t.Fatalf("error must not be cached")
	}
}
