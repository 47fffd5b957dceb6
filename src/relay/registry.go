package relay

import (
	"errors"
	"sync"
	"time"

	"alert-relay/src/logger"
	"alert-relay/src/models"
)

// -----------------------------------------------------------------------------

// ErrClientIDTaken is returned when a new session tries to register under a
// client id that is still connected. The newcomer is rejected rather than
// silently hijacking the existing session's subscriptions.
var ErrClientIDTaken = errors.New("client id already connected")

// -----------------------------------------------------------------------------

// Outbound is the delivery handle a session hands to the registry. Enqueue
// must not block: it buffers the frame and returns false if the session can
// no longer accept messages.
type Outbound interface {
	ClientID() string
	Enqueue(msg models.MAlertMessage) bool
}

// -----------------------------------------------------------------------------

// Subscription is one (client, symbol) threshold watch.
type Subscription struct {
	Symbol    string
	Threshold float64
	State     AlertState
}

// -----------------------------------------------------------------------------

type sessionEntry struct {
	out  Outbound
	subs map[string]*Subscription
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry owns the mapping from client id to its live session and
// subscriptions. A single mutex guards both membership and tick fan-out, so
// a session removed concurrently with a fan-out pass is either fully
// visited or fully absent; never partially applied. Delivery under the lock
// is channel enqueue only, no network I/O.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	logger   *logger.Logger

	// Optional sink for emitted alerts (history store, recent buffer).
	// Must not block.
	onAlert func(models.MAlertEvent)
}

// -----------------------------------------------------------------------------

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		logger:   log,
	}
}

// -----------------------------------------------------------------------------

// SetAlertSink installs a callback invoked once per emitted alert.
func (r *Registry) SetAlertSink(fn func(models.MAlertEvent)) {
	r.mu.Lock()
	r.onAlert = fn
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

// AddSession registers a connected session. A colliding client id is
// rejected with ErrClientIDTaken.
func (r *Registry) AddSession(out Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := out.ClientID()
	if _, exists := r.sessions[id]; exists {
		return ErrClientIDTaken
	}

	r.sessions[id] = &sessionEntry{
		out:  out,
		subs: make(map[string]*Subscription),
	}
	r.logger.Info("Session registered: %s (%d connected)", id, len(r.sessions))
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSession drops the session and all its subscriptions atomically with
// respect to fan-out. After it returns, no tick will ever be delivered to
// the session again.
func (r *Registry) RemoveSession(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[clientID]; !exists {
		return
	}
	delete(r.sessions, clientID)
	r.logger.Info("Session removed: %s (%d connected)", clientID, len(r.sessions))
}

// -----------------------------------------------------------------------------
// Subscription mutation
// -----------------------------------------------------------------------------

// Subscribe creates or replaces the (clientID, symbol) subscription.
// Re-subscribing resets the alert state to Neutral so a threshold change
// cannot fire off stale hysteresis. An unknown clientID is a silent no-op:
// a command racing a disconnect is expected, not exceptional.
func (r *Registry) Subscribe(clientID, symbol string, threshold float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.sessions[clientID]
	if !exists {
		return
	}

	entry.subs[symbol] = &Subscription{
		Symbol:    symbol,
		Threshold: threshold,
		State:     Neutral,
	}
}

// -----------------------------------------------------------------------------

// Unsubscribe removes the subscription if present; no-op if absent.
func (r *Registry) Unsubscribe(clientID, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.sessions[clientID]
	if !exists {
		return
	}
	delete(entry.subs, symbol)
}

// -----------------------------------------------------------------------------
// Fan-out
// -----------------------------------------------------------------------------

// ForEachSubscriberOf invokes fn for every current subscriber of symbol.
// The whole pass runs under the registry lock, so it sees a consistent
// snapshot; fn may mutate the subscription's state but must not block.
func (r *Registry) ForEachSubscriberOf(symbol string, fn func(Outbound, *Subscription)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.sessions {
		if sub, ok := entry.subs[symbol]; ok {
			fn(entry.out, sub)
		}
	}
}

// -----------------------------------------------------------------------------

// Dispatch evaluates one upstream tick against every subscriber of its
// symbol and enqueues an alert frame on each crossing. A delivery failure
// to one session never aborts delivery to the rest. Returns the number of
// alerts emitted.
func (r *Registry) Dispatch(tick models.MTick) int {
	emitted := 0

	r.ForEachSubscriberOf(tick.Symbol, func(out Outbound, sub *Subscription) {
		next, direction, fired := Next(sub.State, tick.Price, sub.Threshold)
		sub.State = next
		if !fired {
			return
		}

		event := models.MAlertEvent{
			ClientID:  out.ClientID(),
			Symbol:    tick.Symbol,
			Price:     tick.Price,
			Threshold: sub.Threshold,
			Direction: direction,
			Timestamp: time.Now().Unix(),
		}

		if !out.Enqueue(event.Message()) {
			// Slow or dead peer: the transport tears the session down
			// through the normal disconnect path.
			r.logger.Warning("Dropped alert for %s: client %s not accepting messages", tick.Symbol, out.ClientID())
		}
		emitted++

		if r.onAlert != nil {
			r.onAlert(event)
		}
	})

	return emitted
}

// -----------------------------------------------------------------------------
// Introspection (for /api/status and /api/health)
// -----------------------------------------------------------------------------

// SessionCount returns the number of connected sessions.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// -----------------------------------------------------------------------------

// SubscriberCounts returns the number of subscribers per symbol.
func (r *Registry) SubscriberCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, entry := range r.sessions {
		for symbol := range entry.subs {
			counts[symbol]++
		}
	}
	return counts
}
