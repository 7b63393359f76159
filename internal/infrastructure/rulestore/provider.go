package rulestore

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dermaguide/backend/internal/domain"
)

const defaultRefreshInterval = 5 * time.Minute

// Provider hands out the current immutable rule snapshot and refreshes it
// on a fixed interval via an atomic pointer swap. In-flight requests keep
// whatever snapshot they dereferenced at request start; a refresh never
// mutates a published snapshot.
type Provider struct {
	source   domain.RuleSource
	interval time.Duration
	current  atomic.Pointer[domain.RuleSnapshot]
}

// NewProvider creates a snapshot provider over the given rule source.
func NewProvider(source domain.RuleSource, interval time.Duration) *Provider {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Provider{source: source, interval: interval}
}

// Start performs the initial synchronous load, then refreshes in the
// background until ctx is cancelled. The initial load is fatal if it
// fails: serving without any rule set would silently pass every product.
func (p *Provider) Start(ctx context.Context) error {
	snapshot, err := p.source.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial rule snapshot load: %w", err)
	}
	p.current.Store(snapshot)

	go p.refreshLoop(ctx)
	return nil
}

// Current returns the active snapshot.
func (p *Provider) Current() (*domain.RuleSnapshot, error) {
	snapshot := p.current.Load()
	if snapshot == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	return snapshot, nil
}

// refreshLoop swaps in a fresh snapshot every interval. A failed refresh
// keeps the previous snapshot; stale rules beat no rules.
func (p *Provider) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := p.source.LoadSnapshot(ctx)
			if err != nil {
				log.Printf("[RULESTORE] snapshot refresh failed, keeping previous: %v", err)
				continue
			}
			p.current.Store(snapshot)
		}
	}
}
