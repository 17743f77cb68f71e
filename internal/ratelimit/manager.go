package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a provider stays limited after it reports throttling.
const DefaultCooldown = time.Hour

// Manager tracks per-provider cooldowns. State is process-local and is lost on
// restart; horizontally scaled deployments keep independent views.
type Manager struct {
	mu       sync.Mutex
	resets   map[string]time.Time
	order    []string
	cooldown time.Duration
	now      func() time.Time
}

type Option func(*Manager)

func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a manager over an ordered provider list. The order drives
// Alternate; duplicates are dropped.
func NewManager(providers []string, opts ...Option) *Manager {
	m := &Manager{
		resets:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		m.order = append(m.order, p)
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// IsLimited is true iff provider has a record whose reset time is still ahead.
func (m *Manager) IsLimited(provider string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.resets[provider]
	return ok && m.now().Before(reset)
}

// MarkLimited installs or refreshes provider's cooldown and returns the reset time.
func (m *Manager) MarkLimited(provider string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset := m.now().Add(m.cooldown)
	m.resets[provider] = reset
	return reset
}

// ResetTime reports the active reset time for provider, if any.
func (m *Manager) ResetTime(provider string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.resets[provider]
	if !ok || !m.now().Before(reset) {
		return time.Time{}, false
	}
	return reset, true
}

// Alternate returns the provider after p in the configured order, wrapping
// around. With two providers this is "the other one". Unknown providers map
// to the first configured provider.
func (m *Manager) Alternate(p string) string {
	if len(m.order) == 0 {
		return p
	}
	for i, name := range m.order {
		if name == p {
			return m.order[(i+1)%len(m.order)]
		}
	}
	return m.order[0]
}

// Providers returns a copy of the configured order.
func (m *Manager) Providers() []string {
	return append([]string(nil), m.order...)
}

// Knows reports whether p is a configured provider.
func (m *Manager) Knows(p string) bool {
	for _, name := range m.order {
		if name == p {
			return true
		}
	}
	return false
}

// Limited returns the currently limited providers with their reset times.
func (m *Manager) Limited() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make(map[string]time.Time)
	for p, reset := range m.resets {
		if now.Before(reset) {
			out[p] = reset
		}
	}
	return out
}
