package store

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

const (
	urlSetPrefix      = "URLSet:"
	termCounterPrefix = "TermCounter:"
)

// URLSetKey is the Redis SET of URLs containing term.
func URLSetKey(term string) string {
	return urlSetPrefix + term
}

// TermCounterKey is the Redis HASH of term → count for one page.
func TermCounterKey(url string) string {
	return termCounterPrefix + url
}

type redisReader interface {
	SMembers(ctx context.Context, key string) ([]string, error)
	HGetEach(ctx context.Context, keys []string, field string) ([]string, error)
	Close() error
}

// RedisStore reads postings laid out as URLSet:<term> sets and
// TermCounter:<url> hashes.
type RedisStore struct {
	client redisReader
	logger *slog.Logger
}

func NewRedisStore(client redisReader) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.WithComponent("redis-store"),
	}
}

// Lookup fetches the URLs for term and then their counts in one pipeline.
// A count that is missing or not an integer reads as zero.
func (s *RedisStore) Lookup(ctx context.Context, term string) (map[string]int, error) {
	urls, err := s.client.SMembers(ctx, URLSetKey(term))
	if err != nil {
		return nil, unavailable("redis", term, err)
	}
	result := make(map[string]int, len(urls))
	if len(urls) == 0 {
		return result, nil
	}
	keys := make([]string, len(urls))
	for i, url := range urls {
		keys[i] = TermCounterKey(url)
	}
	values, err := s.client.HGetEach(ctx, keys, term)
	if err != nil {
		return nil, unavailable("redis", term, err)
	}
	for i, url := range urls {
		count, err := strconv.Atoi(values[i])
		if err != nil {
			s.logger.Debug("treating unreadable count as zero", "term", term, "url", url, "value", values[i])
			count = 0
		}
		result[url] = count
	}
	return result, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
