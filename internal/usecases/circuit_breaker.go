package usecases

import (
	"sync"
	"time"

	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/pkg/metrics"
)

// CircuitBreakerSettings configures every acquirer's breaker.
type CircuitBreakerSettings struct {
	Threshold    int
	Window       time.Duration
	OpenDuration time.Duration
}

// DefaultCircuitBreakerSettings returns threshold 5 in 60s, 30s cooldown.
func DefaultCircuitBreakerSettings() CircuitBreakerSettings {
	return CircuitBreakerSettings{
		Threshold:    5,
		Window:       60 * time.Second,
		OpenDuration: 30 * time.Second,
	}
}

// CircuitTransitionListener receives state changes outside the breaker lock.
type CircuitTransitionListener func(entities.CircuitTransition)

// CircuitTicket is handed out by IsEligible and presented back with the
// call's outcome. Outcomes from an older generation are ignored.
type CircuitTicket struct {
	Acquirer   entities.Acquirer
	generation uint64
	probe      bool
}

type acquirerBreaker struct {
	mu    sync.Mutex
	state entities.AcquirerCircuitState
	// generation changes on every state transition.
	generation uint64
}

// CircuitBreaker tracks one breaker per acquirer. The acquirer map is built
// once from the closed enum and is read-only afterwards. Each breaker has
// its own lock.
//
// CLOSED counts failures in a tumbling window anchored at the first failure.
// Reaching Threshold opens the circuit. After OpenDuration the next eligibility
// check moves to HALF_OPEN and is admitted as the single probe.
type CircuitBreaker struct {
	settings CircuitBreakerSettings
	breakers map[entities.Acquirer]*acquirerBreaker
	metrics  *metrics.Recorder
	now      func() time.Time

	listenerMu sync.RWMutex
	listener   CircuitTransitionListener
}

// NewCircuitBreaker creates a CLOSED breaker for every known acquirer.
func NewCircuitBreaker(settings CircuitBreakerSettings, rec *metrics.Recorder) *CircuitBreaker {
	cb := &CircuitBreaker{
		settings: settings,
		breakers: make(map[entities.Acquirer]*acquirerBreaker, len(entities.AllAcquirers())),
		metrics:  rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, acq := range entities.AllAcquirers() {
		cb.breakers[acq] = &acquirerBreaker{state: entities.AcquirerCircuitState{
			Acquirer: acq,
			State:    entities.CircuitClosed,
		}}
		rec.SetCircuitState(string(acq), entities.CircuitClosed.GaugeValue())
	}
	return cb
}

// SetListener registers the transition listener. Call before serving traffic.
func (cb *CircuitBreaker) SetListener(l CircuitTransitionListener) {
	cb.listenerMu.Lock()
	defer cb.listenerMu.Unlock()
	cb.listener = l
}

// IsEligible reports whether the acquirer may be called now. The returned
// ticket must be passed to ReportOutcome or Abandon.
// Unknown acquirers are never eligible.
func (cb *CircuitBreaker) IsEligible(acquirer entities.Acquirer) (CircuitTicket, bool) {
	b, ok := cb.breakers[acquirer]
	if !ok {
		return CircuitTicket{}, false
	}

	var transition *entities.CircuitTransition
	eligible := false
	probe := false

	b.mu.Lock()
	now := cb.now()
	switch b.state.State {
	case entities.CircuitClosed:
		eligible = true
	case entities.CircuitOpen:
		if now.Sub(b.state.OpenedAt) >= cb.settings.OpenDuration {
			transition = cb.moveLocked(b, entities.CircuitHalfOpen, now)
			b.state.ProbeInFlight = true
			eligible, probe = true, true
		}
	case entities.CircuitHalfOpen:
		if !b.state.ProbeInFlight {
			b.state.ProbeInFlight = true
			eligible, probe = true, true
		}
	}
	ticket := CircuitTicket{Acquirer: acquirer, generation: b.generation, probe: probe}
	b.mu.Unlock()

	cb.emit(transition)
	if !eligible {
		return CircuitTicket{}, false
	}
	return ticket, true
}

// ReportOutcome records the result of an admitted call. Outcomes of calls
// admitted before the last transition are ignored, so only the probe's
// outcome decides a HALF_OPEN circuit.
func (cb *CircuitBreaker) ReportOutcome(ticket CircuitTicket, success bool) {
	b, ok := cb.breakers[ticket.Acquirer]
	if !ok {
		return
	}

	var transition *entities.CircuitTransition

	b.mu.Lock()
	if ticket.generation != b.generation {
		b.mu.Unlock()
		return
	}
	now := cb.now()
	switch b.state.State {
	case entities.CircuitClosed:
		if !success {
			if b.state.WindowStart.IsZero() || now.Sub(b.state.WindowStart) > cb.settings.Window {
				b.state.WindowStart = now
				b.state.FailureCount = 0
			}
			b.state.FailureCount++
			b.state.UpdatedAt = now
			if b.state.FailureCount >= cb.settings.Threshold {
				transition = cb.moveLocked(b, entities.CircuitOpen, now)
				b.state.OpenedAt = now
			}
		}
	case entities.CircuitHalfOpen:
		if !ticket.probe {
			break
		}
		b.state.ProbeInFlight = false
		if success {
			transition = cb.moveLocked(b, entities.CircuitClosed, now)
			b.state.FailureCount = 0
			b.state.WindowStart = time.Time{}
			b.state.OpenedAt = time.Time{}
		} else {
			b.state.FailureCount = cb.settings.Threshold
			transition = cb.moveLocked(b, entities.CircuitOpen, now)
			b.state.OpenedAt = now
		}
	}
	b.mu.Unlock()

	cb.emit(transition)
}

// Abandon releases a HALF_OPEN probe whose call ended without an outcome.
func (cb *CircuitBreaker) Abandon(ticket CircuitTicket) {
	b, ok := cb.breakers[ticket.Acquirer]
	if !ok || !ticket.probe {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.State == entities.CircuitHalfOpen && ticket.generation == b.generation {
		b.state.ProbeInFlight = false
	}
}

// CurrentState returns the stored state without advancing an expired OPEN.
func (cb *CircuitBreaker) CurrentState(acquirer entities.Acquirer) entities.CircuitState {
	s, ok := cb.Snapshot(acquirer)
	if !ok {
		return entities.CircuitClosed
	}
	return s.State
}

// Snapshot returns a copy of one breaker.
func (cb *CircuitBreaker) Snapshot(acquirer entities.Acquirer) (entities.AcquirerCircuitState, bool) {
	b, ok := cb.breakers[acquirer]
	if !ok {
		return entities.AcquirerCircuitState{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, true
}

// Snapshots returns copies of every breaker in enum order.
func (cb *CircuitBreaker) Snapshots() []entities.AcquirerCircuitState {
	out := make([]entities.AcquirerCircuitState, 0, len(cb.breakers))
	for _, acq := range entities.AllAcquirers() {
		if s, ok := cb.Snapshot(acq); ok {
			out = append(out, s)
		}
	}
	return out
}

// Restore loads persisted states. Unknown acquirers and invalid states are
// skipped; probes are never restored as in flight.
func (cb *CircuitBreaker) Restore(states []entities.AcquirerCircuitState) int {
	restored := 0
	for _, s := range states {
		b, ok := cb.breakers[s.Acquirer]
		if !ok || !s.State.IsValid() {
			continue
		}
		b.mu.Lock()
		b.state = s
		b.state.ProbeInFlight = false
		b.generation++
		b.mu.Unlock()
		cb.metrics.SetCircuitState(string(s.Acquirer), s.State.GaugeValue())
		restored++
	}
	return restored
}

func (cb *CircuitBreaker) moveLocked(b *acquirerBreaker, to entities.CircuitState, now time.Time) *entities.CircuitTransition {
	from := b.state.State
	b.state.State = to
	b.generation++
	b.state.UpdatedAt = now
	return &entities.CircuitTransition{
		Acquirer:     b.state.Acquirer,
		From:         from,
		To:           to,
		FailureCount: b.state.FailureCount,
		At:           now,
	}
}

func (cb *CircuitBreaker) emit(t *entities.CircuitTransition) {
	if t == nil {
		return
	}
	cb.metrics.SetCircuitState(string(t.Acquirer), t.To.GaugeValue())

	cb.listenerMu.RLock()
	l := cb.listener
	cb.listenerMu.RUnlock()
	if l != nil {
		l(*t)
	}
}
