package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

// Snapshot is the pinned rule set a single evaluation runs against. It is
// built once at job start; concurrent rule edits never affect an in-flight
// evaluation.
type Snapshot struct {
	Category        domain.Category
	Rules           []domain.ComplianceRule
	Fingerprint     string
	ReviewThreshold int
}

const DefaultReviewThreshold = 3

// NewSnapshot orders the rules deterministically and fingerprints the set so
// results can be pinned to the exact rule versions they were evaluated with.
func NewSnapshot(category domain.Category, active []domain.ComplianceRule, reviewThreshold int) Snapshot {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}

	rules := make([]domain.ComplianceRule, len(active))
	copy(rules, active)
	sort.Slice(rules, func(a, b int) bool {
		if rules[a].ID != rules[b].ID {
			return rules[a].ID < rules[b].ID
		}
		return rules[a].Version < rules[b].Version
	})

	identities := make([]string, 0, len(rules))
	for _, rule := range rules {
		identities = append(identities, fmt.Sprintf("%s:%d", rule.ID, rule.Version))
	}
	digest := sha256.Sum256([]byte(string(category) + "|" + strings.Join(identities, ",")))

	return Snapshot{
		Category:        category,
		Rules:           rules,
		Fingerprint:     hex.EncodeToString(digest[:8]),
		ReviewThreshold: reviewThreshold,
	}
}

type cacheEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// SnapshotCache keeps recently built per-category snapshots so workers do
// not reload the rule store for every job. Upserts invalidate the category.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[domain.Category]cacheEntry
	ttl     time.Duration
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{
		entries: make(map[domain.Category]cacheEntry),
		ttl:     ttl,
	}
}

func (c *SnapshotCache) Get(category domain.Category) (Snapshot, bool) {
	c.mu.RLock()
	entry, exists := c.entries[category]
	c.mu.RUnlock()

	if !exists {
		return Snapshot{}, false
	}
	if time.Now().UTC().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, category)
		c.mu.Unlock()
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

func (c *SnapshotCache) Set(snapshot Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snapshot.Category] = cacheEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().UTC().Add(c.ttl),
	}
}

func (c *SnapshotCache) Invalidate(category domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, category)
}
