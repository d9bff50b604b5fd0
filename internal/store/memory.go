package store

import (
	"context"
	"sync"
)

// MemoryStore keeps postings in process. It backs the demo CLI and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	postings map[string]map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		postings: make(map[string]map[string]int),
	}
}

// Put sets the count of term in url, replacing any previous count.
func (m *MemoryStore) Put(term, url string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.postings[term]
	if !ok {
		docs = make(map[string]int)
		m.postings[term] = docs
	}
	docs[url] = count
}

// Index records every term count of one page.
func (m *MemoryStore) Index(url string, counts map[string]int) {
	for term, count := range counts {
		m.Put(term, url, count)
	}
}

func (m *MemoryStore) Lookup(_ context.Context, term string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.postings[term]
	result := make(map[string]int, len(docs))
	for url, count := range docs {
		result[url] = count
	}
	return result, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
