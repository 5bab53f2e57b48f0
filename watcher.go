package session

import (
	"context"
	"sync"
)

// AuthStream is anything that publishes auth state transitions. The
// client-bound provider implements it.
type AuthStream interface {
	OnAuthStateChange(fn func(AuthEvent)) Unsubscribe
}

// Watcher consumes the provider's auth stream and keeps the persisted session
// and the UserHolder in sync. It processes events strictly in emission order,
// drops none, and is the sole writer of both. Install it once per client
// lifetime and Close it on teardown.
type Watcher struct {
	storage Storage
	holder  *UserHolder
	decoder TokenDecoder
	sink    ActivitySink
	logger  Logger

	mu      sync.Mutex
	events  chan AuthEvent
	unsub   Unsubscribe
	done    chan struct{}
	started bool
}

// WatcherOption customizes watcher construction.
type WatcherOption func(*Watcher)

// WithWatcherLogger overrides the default logger.
func WithWatcherLogger(logger Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWatcherActivitySink forwards processed transitions to an audit sink.
func WithWatcherActivitySink(sink ActivitySink) WatcherOption {
	return func(w *Watcher) {
		w.sink = normalizeActivitySink(sink)
	}
}

// NewWatcher wires a watcher over the given storage, holder, and decoder.
func NewWatcher(storage Storage, holder *UserHolder, decoder TokenDecoder, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		storage: storage,
		holder:  holder,
		decoder: decoder,
		sink:    noopActivitySink{},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Watch subscribes to the stream and starts the processing loop. The
// subscription callback only enqueues, so the provider's emitter never blocks
// on our work; a single goroutine drains the queue, which is what preserves
// emission order end to end.
func (w *Watcher) Watch(stream AuthStream) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return invalidConfig("watcher already installed")
	}

	w.events = make(chan AuthEvent, 64)
	w.done = make(chan struct{})
	w.started = true

	events := w.events
	w.unsub = stream.OnAuthStateChange(func(event AuthEvent) {
		events <- event
	})

	go w.loop(events)
	return nil
}

// Close tears the watcher down: unsubscribes from the stream, drains what was
// already queued, and waits for the loop to exit.
func (w *Watcher) Close() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	if w.unsub != nil {
		w.unsub()
		w.unsub = nil
	}
	events := w.events
	done := w.done
	w.mu.Unlock()

	close(events)
	<-done
}

func (w *Watcher) loop(events <-chan AuthEvent) {
	defer close(w.done)
	for event := range events {
		w.apply(event)
	}
}

func (w *Watcher) apply(event AuthEvent) {
	ctx := context.Background()

	switch event.Type {
	case EventSignedIn, EventTokenRefreshed:
		if !event.Session.Complete() {
			w.logger.Error("watcher received %s without a complete session", event.Type)
			return
		}

		if err := w.storage.Store(event.Session); err != nil {
			w.logger.Error("watcher failed to persist session: %v", err)
		}

		user := event.User
		if user == nil {
			decoded, err := w.decoder.Decode(event.Session.AccessToken)
			if err != nil {
				w.logger.Warn("watcher could not decode user from session: %v", err)
			}
			user = decoded
		}
		w.holder.Set(user)

		activity := ActivitySignedIn
		if event.Type == EventTokenRefreshed {
			activity = ActivityTokenRefreshed
		}
		recordActivity(ctx, w.sink, w.logger, activity, user, map[string]any{
			"event_id": event.ID,
		})

	case EventSignedOut:
		if err := w.storage.Clear(); err != nil {
			w.logger.Error("watcher failed to clear session: %v", err)
		}
		w.holder.Set(nil)
		recordActivity(ctx, w.sink, w.logger, ActivitySignedOut, nil, map[string]any{
			"event_id": event.ID,
		})

	case EventUserUpdated:
		// Session stays untouched, only the observable value moves.
		w.holder.Set(event.User)
		recordActivity(ctx, w.sink, w.logger, ActivityUserUpdated, event.User, map[string]any{
			"event_id": event.ID,
		})

	default:
		w.logger.Warn("watcher ignoring unknown event type %q", event.Type)
	}
}
