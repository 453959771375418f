// Package stats provides simple local usage statistics for the site.
// This is a lightweight alternative to enterprise monitoring solutions.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/nbolat/course-site/plugin/ai"
	"github.com/nbolat/course-site/store"
)

// Stats represents usage statistics.
type Stats struct {
	// Lead stats
	TotalLeads int64 `json:"totalLeads"`

	// Analytics stats
	TotalEvents int64 `json:"totalEvents"`

	// Chat stats
	ActiveChatSessions int64 `json:"activeChatSessions"`
	TotalChatMessages  int64 `json:"totalChatMessages"`

	// Timestamp
	LastUpdated time.Time `json:"lastUpdated"`
}

// Collector collects and manages usage statistics.
type Collector struct {
	store *store.Store
	chat  *ai.Chat

	mu       sync.Mutex
	stats    *Stats
	tickStop chan struct{}
}

// NewCollector creates a new statistics collector.
func NewCollector(st *store.Store, chat *ai.Chat) *Collector {
	return &Collector{
		store:    st,
		chat:     chat,
		stats:    &Stats{LastUpdated: time.Now()},
		tickStop: make(chan struct{}),
	}
}

// Start begins periodic statistics collection. Updates every hour.
func (c *Collector) Start(ctx context.Context) {
	c.collect(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect(ctx)
			case <-ctx.Done():
				return
			case <-c.tickStop:
				return
			}
		}
	}()
}

// Stop stops the statistics collector.
func (c *Collector) Stop() {
	select {
	case <-c.tickStop:
		// Already closed
	default:
		close(c.tickStop)
	}
}

// GetStats returns a copy of current statistics with chat figures refreshed.
func (c *Collector) GetStats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *c.stats
	if c.chat != nil {
		sessionStats := c.chat.SessionStats()
		copied.ActiveChatSessions = int64(sessionStats.ActiveSessions)
		copied.TotalChatMessages = int64(sessionStats.TotalMessages)
	}
	return &copied
}

// Refresh forces an immediate collection.
func (c *Collector) Refresh(ctx context.Context) {
	c.collect(ctx)
}

// collect gathers current statistics from the store.
func (c *Collector) collect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if leads, err := c.store.CountFormSubmissions(ctx); err == nil {
		c.stats.TotalLeads = leads
	}
	if events, err := c.store.CountUserEvents(ctx); err == nil {
		c.stats.TotalEvents = events
	}
	c.stats.LastUpdated = time.Now()
}
