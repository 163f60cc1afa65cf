package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/genricoloni/volt/internal/domain"
	"go.uber.org/zap"
)

const (
	// StorageKey holds recent queries, most recent first
	StorageKey = "searchHistory"
	// MaxEntries is how many queries are remembered
	MaxEntries = 10
	// DefaultRecent is how many entries views show
	DefaultRecent = 6
)

// History is the durable list of recent search queries
type History struct {
	logger *zap.Logger
	kv     domain.KVStore
	mu     sync.Mutex
}

// New creates a search history backed by kv
func New(logger *zap.Logger, kv domain.KVStore) *History {
	return &History{logger: logger, kv: kv}
}

// Add moves query to the front, dropping duplicates and the oldest entries past MaxEntries
func (h *History) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	items := []string{query}
	for _, existing := range h.load(ctx) {
		if existing != query {
			items = append(items, existing)
		}
	}
	if len(items) > MaxEntries {
		items = items[:MaxEntries]
	}
	return h.save(ctx, items)
}

// Recent returns up to n entries; n <= 0 returns all of them
func (h *History) Recent(ctx context.Context, n int) []string {
	items := h.load(ctx)
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

// Remove deletes one entry
func (h *History) Remove(ctx context.Context, query string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := h.load(ctx)
	kept := items[:0]
	for _, existing := range items {
		if existing != query {
			kept = append(kept, existing)
		}
	}
	return h.save(ctx, kept)
}

// Clear forgets every entry
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	return nil
}

func (h *History) load(ctx context.Context) []string {
	raw, err := h.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			h.logger.Warn("Failed to read search history", zap.Error(err))
		}
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		h.logger.Warn("Discarding unreadable search history", zap.Error(err))
		return []string{}
	}
	return items
}

func (h *History) save(ctx context.Context, items []string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := h.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	return nil
}
