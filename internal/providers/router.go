package providers

import (
	"immcad-api/internal/domain"
	"immcad-api/internal/resilience"
	"immcad-api/internal/workerpool"
)

// RoutingResult is the outcome of one Router.Generate call.
type RoutingResult struct {
	Result         Result
	FallbackUsed   bool
	FallbackReason ErrorCode
}

// Router fans a chat request out across an ordered list of providers, each
// behind its own circuit breaker, falling forward to the next provider on
// failure and recording routing telemetry.
type Router struct {
	providers   []Provider
	primaryName string
	breakers    map[string]*resilience.CircuitBreaker
	order       []string
	telemetry   *Telemetry
	pool        *workerpool.Pool
}

// NewRouter builds a Router. providers must be non-empty; failureThreshold
// must be >=1 and OpenWindow (in the CircuitBreakerConfig) must be >0.
// pool may be nil, in which case provider calls run on the calling
// goroutine directly.
func NewRouter(providerList []Provider, primaryName string, breakerConfig resilience.CircuitBreakerConfig, telemetry *Telemetry, pool *workerpool.Pool) (*Router, error) {
	if len(providerList) == 0 {
		return nil, NewError("router", ErrorCodeProviderError, "router requires at least one provider")
	}
	if breakerConfig.FailureThreshold < 1 {
		return nil, NewError("router", ErrorCodeProviderError, "circuit_breaker_failure_threshold must be >= 1")
	}
	if breakerConfig.OpenWindow <= 0 {
		return nil, NewError("router", ErrorCodeProviderError, "circuit_breaker_open_seconds must be > 0")
	}
	if telemetry == nil {
		telemetry = NewTelemetry()
	}

	breakers := make(map[string]*resilience.CircuitBreaker, len(providerList))
	order := make([]string, 0, len(providerList))
	for _, p := range providerList {
		breakers[p.Name()] = resilience.NewCircuitBreaker(breakerConfig)
		order = append(order, p.Name())
	}

	return &Router{
		providers:   providerList,
		primaryName: primaryName,
		breakers:    breakers,
		order:       order,
		telemetry:   telemetry,
		pool:        pool,
	}, nil
}

// TelemetrySnapshot returns the router's accumulated routing telemetry.
func (r *Router) TelemetrySnapshot() map[string]map[string]int64 {
	return r.telemetry.Snapshot()
}

// Generate iterates providers in configured order, skipping any whose
// circuit is open, invoking the rest in turn, and returning the first
// success. If every provider is skipped or fails, the last observed error
// is returned (synthesizing a generic provider_error if none was attempted).
func (r *Router) Generate(message string, citations []domain.Citation, locale domain.Locale) (RoutingResult, error) {
	var lastErr *Error

	for _, p := range r.providers {
		name := p.Name()
		breaker := r.breakers[name]

		if !breaker.Allow() {
			r.telemetry.Increment(name, "circuit_skip")
			if lastErr == nil {
				lastErr = NewError(name, ErrorCodeProviderError, "circuit breaker open for provider '"+name+"'")
			}
			continue
		}

		var result Result
		var err error
		workerpool.Run(r.pool, func() {
			result, err = p.Generate(message, citations, locale)
		})
		if err != nil {
			provErr := asProviderError(name, err)
			breaker.RecordFailure()
			r.telemetry.Increment(name, "failure")
			if breaker.State() == resilience.StateOpen {
				r.telemetry.Increment(name, "circuit_open")
			}
			lastErr = provErr
			continue
		}

		fallbackUsed := name != r.primaryName
		var fallbackReason ErrorCode
		if fallbackUsed && lastErr != nil {
			fallbackReason = lastErr.Code
		}

		breaker.RecordSuccess()
		r.telemetry.Increment(name, "success")
		if fallbackUsed {
			r.telemetry.Increment(name, "fallback_success")
		}

		return RoutingResult{Result: result, FallbackUsed: fallbackUsed, FallbackReason: fallbackReason}, nil
	}

	if lastErr != nil {
		return RoutingResult{}, lastErr
	}
	return RoutingResult{}, NewError("router", ErrorCodeProviderError, "no provider returned a response")
}

func asProviderError(name string, err error) *Error {
	if pe, ok := err.(*Error); ok {
		return pe
	}
	return MapException(name, err.Error())
}
