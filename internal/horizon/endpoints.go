package horizon

import (
	"sync"
	"time"
)

// unhealthyThreshold is the number of consecutive failures after which an
// endpoint is reported unhealthy.
const unhealthyThreshold = 3

// EndpointHealth is a snapshot of one Horizon endpoint's recent behavior.
type EndpointHealth struct {
	URL                 string    `json:"url"`
	Healthy             bool      `json:"healthy"`
	LastSuccess         time.Time `json:"last_success"`
	LastFailure         time.Time `json:"last_failure"`
	LastError           string    `json:"last_error"`
	LastDurationMs      int64     `json:"last_duration_ms"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

type endpointState struct {
	url                 string
	lastSuccess         time.Time
	lastFailure         time.Time
	lastError           string
	lastDuration        time.Duration
	consecutiveFailures int
}

func (s *endpointState) healthy() bool {
	return s.consecutiveFailures < unhealthyThreshold
}

// endpointPool rotates between configured Horizon endpoints. A failure on
// the current endpoint advances the pool so the next attempt lands on the
// next endpoint.
type endpointPool struct {
	mu      sync.RWMutex
	states  []*endpointState
	current int
}

func newEndpointPool(urls []string) *endpointPool {
	states := make([]*endpointState, 0, len(urls))
	for _, u := range urls {
		states = append(states, &endpointState{url: u})
	}
	return &endpointPool{states: states}
}

// Current returns the endpoint new requests should use.
func (p *endpointPool) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.states[p.current].url
}

// RecordSuccess marks the endpoint healthy again.
func (p *endpointPool) RecordSuccess(url string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.find(url)
	if s == nil {
		return
	}
	s.lastSuccess = time.Now()
	s.lastDuration = duration
	s.lastError = ""
	s.consecutiveFailures = 0
}

// RecordFailure records the error and rotates away from the endpoint if it
// is the current one. Returns whether the endpoint is still healthy.
func (p *endpointPool) RecordFailure(url string, err error, duration time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.find(url)
	if s == nil {
		return false
	}
	s.lastFailure = time.Now()
	s.lastDuration = duration
	s.lastError = err.Error()
	s.consecutiveFailures++

	if len(p.states) > 1 && p.states[p.current].url == url {
		p.current = (p.current + 1) % len(p.states)
	}

	return s.healthy()
}

// Snapshot returns the health of every endpoint in the pool.
func (p *endpointPool) Snapshot() []EndpointHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]EndpointHealth, 0, len(p.states))
	for _, s := range p.states {
		out = append(out, EndpointHealth{
			URL:                 s.url,
			Healthy:             s.healthy(),
			LastSuccess:         s.lastSuccess,
			LastFailure:         s.lastFailure,
			LastError:           s.lastError,
			LastDurationMs:      s.lastDuration.Milliseconds(),
			ConsecutiveFailures: s.consecutiveFailures,
		})
	}
	return out
}

// find returns the state for url. Caller must hold the lock.
func (p *endpointPool) find(url string) *endpointState {
	for _, s := range p.states {
		if s.url == url {
			return s
		}
	}
	return nil
}
