// Package events publishes package lifecycle transitions to subscribers the
// caller registers explicitly.
package events

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Type identifies a lifecycle transition.
type Type int

const (
	LibraryInstalled Type = iota
	LibraryUninstalled
	ModelAvailable
	ModelUnavailable
)

func (t Type) String() string {
	switch t {
	case LibraryInstalled:
		return "library-installed"
	case LibraryUninstalled:
		return "library-uninstalled"
	case ModelAvailable:
		return "model-available"
	case ModelUnavailable:
		return "model-unavailable"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Payload identifies the package an event is about.
type Payload struct {
	Name    string
	Version *semver.Version
	Path    string
}

// Event is one published transition.
type Event struct {
	Type    Type
	Payload Payload
}

// Handler receives events. Handlers run synchronously on the publishing
// goroutine, in subscription order.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus fans events out to its subscribers. The zero value is ready to use.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(e)
	}
}

// Len reports the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
