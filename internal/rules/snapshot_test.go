package rules

import (
	"testing"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

func TestNewSnapshotFingerprintIgnoresInputOrder(t *testing.T) {
	a := domain.ComplianceRule{ID: "r-a", Version: 2, Category: domain.CategoryLeaseAgreement}
	b := domain.ComplianceRule{ID: "r-b", Version: 1, Category: domain.CategoryLeaseAgreement}

	first := NewSnapshot(domain.CategoryLeaseAgreement, []domain.ComplianceRule{a, b}, 3)
	second := NewSnapshot(domain.CategoryLeaseAgreement, []domain.ComplianceRule{b, a}, 3)

	if first.Fingerprint != second.Fingerprint {
		t.Fatalf("fingerprint should not depend on input order: %s != %s", first.Fingerprint, second.Fingerprint)
	}
	if first.Rules[0].ID != "r-a" || second.Rules[0].ID != "r-a" {
		t.Fatal("rules should be sorted by id")
	}
}

func TestNewSnapshotFingerprintChangesWithVersions(t *testing.T) {
	rule := domain.ComplianceRule{ID: "r-a", Version: 1, Category: domain.CategoryLeaseAgreement}
	bumped := rule
	bumped.Version = 2

	first := NewSnapshot(domain.CategoryLeaseAgreement, []domain.ComplianceRule{rule}, 3)
	second := NewSnapshot(domain.CategoryLeaseAgreement, []domain.ComplianceRule{bumped}, 3)

	if first.Fingerprint == second.Fingerprint {
		t.Fatal("fingerprint should change when a rule version changes")
	}
}

func TestNewSnapshotDefaultsReviewThreshold(t *testing.T) {
	snapshot := NewSnapshot(domain.CategoryOther, nil, 0)
	if snapshot.ReviewThreshold != DefaultReviewThreshold {
		t.Fatalf("expected default threshold %d, got %d", DefaultReviewThreshold, snapshot.ReviewThreshold)
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache := NewSnapshotCache(time.Minute)
	snapshot := NewSnapshot(domain.CategoryOther, nil, 3)

	if _, ok := cache.Get(domain.CategoryOther); ok {
		t.Fatal("empty cache should miss")
	}
	cache.Set(snapshot)
	cached, ok := cache.Get(domain.CategoryOther)
	if !ok {
		t.Fatal("expected cache hit after set")
	}
	if cached.Fingerprint != snapshot.Fingerprint {
		t.Fatal("cached snapshot differs from the one stored")
	}

	cache.Invalidate(domain.CategoryOther)
	if _, ok := cache.Get(domain.CategoryOther); ok {
		t.Fatal("invalidated entry should miss")
	}
}

func TestSnapshotCacheExpiry(t *testing.T) {
	cache := NewSnapshotCache(time.Minute)
	snapshot := NewSnapshot(domain.CategoryOther, nil, 3)
	cache.Set(snapshot)

	cache.mu.Lock()
	entry := cache.entries[domain.CategoryOther]
	entry.expiresAt = time.Now().UTC().Add(-time.Second)
	cache.entries[domain.CategoryOther] = entry
	cache.mu.Unlock()

	if _, ok := cache.Get(domain.CategoryOther); ok {
		t.Fatal("expired entry should miss")
	}
}
