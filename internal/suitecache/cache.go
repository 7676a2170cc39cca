// Package suitecache holds the last fetched suite directory as display text.
package suitecache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/automation"
)

// Placeholder is shown in place of the directory when the catalog fetch fails.
const Placeholder = "(Gagal mengambil daftar suite)"

type Lister interface {
	ListSuites(ctx context.Context) ([]automation.Suite, error)
}

type Cache struct {
	lister Lister
	logger *slog.Logger

	mu        sync.RWMutex
	suites    []automation.Suite
	text      string
	refreshed time.Time
}

func New(lister Lister, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{lister: lister, logger: logger}
}

// Refresh fetches the catalog once. On failure the directory text becomes
// Placeholder and the error is returned for logging only; no retry is scheduled.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.lister == nil {
		c.store(nil, Placeholder)
		return fmt.Errorf("suite lister is not configured")
	}
	suites, err := c.lister.ListSuites(ctx)
	if err != nil {
		c.store(nil, Placeholder)
		c.logger.Warn("suites_fetch_failed", "error", err.Error())
		return err
	}
	c.store(suites, FormatDirectory(suites))
	c.logger.Info("suites_refreshed", "count", len(suites))
	return nil
}

// Text returns the directory display text. Before the first refresh it is empty.
func (c *Cache) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text
}

func (c *Cache) Suites() []automation.Suite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]automation.Suite, len(c.suites))
	copy(out, c.suites)
	return out
}

func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

func (c *Cache) store(suites []automation.Suite, text string) {
	c.mu.Lock()
	c.suites = suites
	c.text = text
	c.refreshed = time.Now()
	c.mu.Unlock()
}

// FormatDirectory renders one numbered line per suite.
func FormatDirectory(suites []automation.Suite) string {
	lines := make([]string, 0, len(suites))
	for i, s := range suites {
		lines = append(lines, fmt.Sprintf("🧪 %d. %s", i+1, s.Path))
	}
	return strings.Join(lines, "\n")
}
