package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const DefaultContentTTL = 24 * time.Hour

// CachedContent est un ContentProvider "cache d'abord": une entrée présente est servie
// sans appel réseau, sinon on interroge l'origine puis on stocke la réponse.
// Une panne du cache ne fait jamais échouer une lecture.
type CachedContent struct {
	logger zerolog.Logger
	origin ports.ContentProvider
	cache  ports.Cache
	ttl    time.Duration
}

func NewCachedContent(logger zerolog.Logger, origin ports.ContentProvider, cache ports.Cache, ttl time.Duration) *CachedContent {
	if ttl <= 0 {
		ttl = DefaultContentTTL
	}
	return &CachedContent{logger: logger, origin: origin, cache: cache, ttl: ttl}
}

func (c *CachedContent) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	return cached(ctx, c, "hidaya:chapters", func(ctx context.Context) ([]domain.Chapter, error) {
		return c.origin.Chapters(ctx)
	})
}

func (c *CachedContent) ChapterEdition(ctx context.Context, number int, edition string) (domain.ChapterEdition, error) {
	key := "hidaya:chapter:" + strconv.Itoa(number) + ":" + edition
	return cached(ctx, c, key, func(ctx context.Context) (domain.ChapterEdition, error) {
		return c.origin.ChapterEdition(ctx, number, edition)
	})
}

func (c *CachedContent) VerseEditions(ctx context.Context, number int, editions []string) ([]domain.VerseText, error) {
	key := "hidaya:verse:" + strconv.Itoa(number) + ":" + strings.Join(editions, ",")
	return cached(ctx, c, key, func(ctx context.Context) ([]domain.VerseText, error) {
		return c.origin.VerseEditions(ctx, number, editions)
	})
}

func cached[T any](ctx context.Context, c *CachedContent, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c.cache != nil {
		b, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		} else if ok {
			var out T
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
			c.logger.Warn().Str("key", key).Msg("cache entry corrupted, refetching")
		}
	}

	out, err := fetch(ctx)
	if err != nil {
		return out, err
	}

	if c.cache != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return out, nil
}
