package monitor

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterStore hands out one limiter per key (a refresh scope, a client
// address). Keys are created lazily with the default rate and burst.
type RateLimiterStore struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewRateLimiterStore(defaultRate rate.Limit, defaultBurst int) *RateLimiterStore {
	return &RateLimiterStore{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *RateLimiterStore) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(s.defaultRate, s.defaultBurst)
		s.limiters[key] = limiter
	}
	return limiter
}

func (s *RateLimiterStore) SetLimiter(key string, keyRate rate.Limit, keyBurst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[key] = rate.NewLimiter(keyRate, keyBurst)
}

// Allow spends one token from key's limiter.
func (s *RateLimiterStore) Allow(key string) bool {
	return s.GetLimiter(key).Allow()
}

// RefreshScopeKey is the limiter key for polls of one department, or of the
// whole fleet when departmentID is empty.
func RefreshScopeKey(departmentID string) string {
	if departmentID == "" {
		return "refresh:all"
	}
	return "refresh:" + departmentID
}
