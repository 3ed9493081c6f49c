package horizon

// ClientHealth is a snapshot of the client's view of the Horizon API,
// reported by the ops server's upstream introspection endpoint.
type ClientHealth struct {
	Endpoints    []EndpointHealth `json:"endpoints"`
	CircuitState string           `json:"circuit_state"`
	Throttled    bool             `json:"throttled"`
	RequestRate  float64          `json:"request_rate"`
}

// Health returns the current health of every configured endpoint along
// with circuit breaker and rate limiter state.
func (c *Client) Health() ClientHealth {
	return ClientHealth{
		Endpoints:    c.pool.Snapshot(),
		CircuitState: c.cb.State().String(),
		Throttled:    c.limiter.IsThrottled(),
		RequestRate:  c.limiter.CurrentRate(),
	}
}
