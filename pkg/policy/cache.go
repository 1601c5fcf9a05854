// Package policy provides a short-TTL in-memory cache over the versioned
// policy table. The cache is process-local; ClearCache forces a reload.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voxyz/agentworld/pkg/models"
	"github.com/voxyz/agentworld/pkg/services"
)

// DefaultTTL is how long a cached policy row is served before re-reading
// the datastore.
const DefaultTTL = 60 * time.Second

// SpendingLimit caps what an agent may spend without approval.
type SpendingLimit struct {
	MaxUSDPerAction float64 `json:"max_usd_per_action"`
}

// CostAlert configures the daily cost alert threshold.
type CostAlert struct {
	DailyThresholdUSD float64 `json:"daily_threshold_usd"`
}

// OperatingHours bounds when the dispatcher promotes new work.
type OperatingHours struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// DailySummary configures the summary delivery schedule.
type DailySummary struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Defaults applied when no policy row exists yet.
var (
	DefaultSpendingLimit  = SpendingLimit{MaxUSDPerAction: 5}
	DefaultCostAlert      = CostAlert{DailyThresholdUSD: 10}
	DefaultOperatingHours = OperatingHours{StartHour: 0, EndHour: 24}
	DefaultDailySummary   = DailySummary{Hour: 9, Minute: 30}
)

type cacheEntry struct {
	rules     string
	fetchedAt time.Time
}

// Cache serves policy rules with a TTL.
type Cache struct {
	policies *services.PolicyService
	ttl      time.Duration

	mu      sync.Mutex
	entries map[models.PolicyType]cacheEntry
}

// NewCache creates a policy cache with the given TTL (DefaultTTL when zero).
func NewCache(policies *services.PolicyService, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		policies: policies,
		ttl:      ttl,
		entries:  make(map[models.PolicyType]cacheEntry),
	}
}

// ClearCache drops all cached entries; the next read hits the datastore.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[models.PolicyType]cacheEntry)
}

// rules returns the latest rules JSON for a type, served from cache within
// the TTL. A missing policy row returns ("", nil) so callers apply defaults.
func (c *Cache) rules(ctx context.Context, t models.PolicyType) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[t]
	c.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.rules, nil
	}

	p, err := c.policies.GetLatest(ctx, t)
	if errors.Is(err, services.ErrNotFound) {
		c.store(t, "")
		return "", nil
	}
	if err != nil {
		// Serve stale on datastore trouble rather than failing the tick.
		if ok {
			return entry.rules, nil
		}
		return "", fmt.Errorf("failed to load policy %s: %w", t, err)
	}

	c.store(t, p.Rules)
	return p.Rules, nil
}

func (c *Cache) store(t models.PolicyType, rules string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[t] = cacheEntry{rules: rules, fetchedAt: time.Now()}
}

// SpendingLimit returns the active spending limit policy.
func (c *Cache) SpendingLimit(ctx context.Context) (SpendingLimit, error) {
	out := DefaultSpendingLimit
	err := c.decode(ctx, models.PolicySpendingLimit, &out)
	return out, err
}

// CostAlert returns the active cost alert policy.
func (c *Cache) CostAlert(ctx context.Context) (CostAlert, error) {
	out := DefaultCostAlert
	err := c.decode(ctx, models.PolicyCostAlert, &out)
	return out, err
}

// OperatingHours returns the active operating hours policy.
func (c *Cache) OperatingHours(ctx context.Context) (OperatingHours, error) {
	out := DefaultOperatingHours
	err := c.decode(ctx, models.PolicyOperatingHours, &out)
	return out, err
}

// DailySummary returns the active daily summary schedule.
func (c *Cache) DailySummary(ctx context.Context) (DailySummary, error) {
	out := DefaultDailySummary
	err := c.decode(ctx, models.PolicyDailySummary, &out)
	return out, err
}

func (c *Cache) decode(ctx context.Context, t models.PolicyType, out any) error {
	rules, err := c.rules(ctx, t)
	if err != nil {
		return err
	}
	if rules == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(rules), out); err != nil {
		return fmt.Errorf("failed to decode policy %s: %w", t, err)
	}
	return nil
}
