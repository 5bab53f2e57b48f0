package session

import (
	"sync"
)

// UserHolder is the observable slot holding the current user, or nil when
// unauthenticated. It has exactly one writer (the Watcher) and any number of
// readers; subscribers observe every write in the order it happened.
type UserHolder struct {
	mu          sync.RWMutex
	user        *User
	subscribers []*holderSubscription
}

type holderSubscription struct {
	fn func(*User)
}

// NewUserHolder returns an empty holder.
func NewUserHolder() *UserHolder {
	return &UserHolder{}
}

// SeededUserHolder returns a holder whose initial value is decoded
// synchronously from any session already persisted in storage, so a cold
// start does not flash a false "logged out" state. The provider corrects the
// value asynchronously once the Watcher receives its first event.
func SeededUserHolder(storage Storage, decoder TokenDecoder) *UserHolder {
	h := NewUserHolder()
	if storage == nil || decoder == nil {
		return h
	}

	sess := storage.Load()
	if !sess.Complete() {
		return h
	}

	if user, err := decoder.Decode(sess.AccessToken); err == nil {
		h.user = user
	}
	return h
}

// Get returns the current user, or nil. Safe for concurrent use.
func (h *UserHolder) Get() *User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Set replaces the current value and notifies subscribers in registration
// order. Only the Watcher calls this; single-writer discipline is what keeps
// writes and their notifications serialized.
func (h *UserHolder) Set(user *User) {
	h.mu.Lock()
	h.user = user
	subs := make([]*holderSubscription, len(h.subscribers))
	copy(subs, h.subscribers)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.fn(user)
	}
}

// Subscribe registers fn for every subsequent write. fn is immediately
// invoked with the current value so late subscribers converge without a
// separate Get.
func (h *UserHolder) Subscribe(fn func(*User)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	sub := &holderSubscription{fn: fn}

	h.mu.Lock()
	h.subscribers = append(h.subscribers, sub)
	current := h.user
	h.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subscribers {
				if s == sub {
					h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
					break
				}
			}
		})
	}
}
