package exchangekeys

import (
	"errors"
	"sync"
)

// ErrBusy is returned when the same action is already running for the card.
var ErrBusy = errors.New("another request for this exchange is in progress")

// Action is a kind of credential operation. Each kind has its own busy flag.
type Action string

const (
	ActionSave   Action = "saving"
	ActionDelete Action = "deleting"
	ActionTest   Action = "testing"
)

type busyKey struct {
	owner      string
	exchangeID int64
	action     Action
}

// Busy tracks in-flight actions per owner, exchange and action kind, so one
// card's request never blocks another card.
type Busy struct {
	mu       sync.Mutex
	inFlight map[busyKey]struct{}
}

// NewBusy creates an empty tracker.
func NewBusy() *Busy {
	return &Busy{inFlight: make(map[busyKey]struct{})}
}

// Acquire sets the flag or returns ErrBusy. The returned release must be called.
func (b *Busy) Acquire(owner string, exchangeID int64, action Action) (func(), error) {
	key := busyKey{owner: owner, exchangeID: exchangeID, action: action}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inFlight[key]; ok {
		return nil, ErrBusy
	}
	b.inFlight[key] = struct{}{}

	return func() {
		b.mu.Lock()
		delete(b.inFlight, key)
		b.mu.Unlock()
	}, nil
}

// Is reports whether action is running.
func (b *Busy) Is(owner string, exchangeID int64, action Action) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inFlight[busyKey{owner: owner, exchangeID: exchangeID, action: action}]
	return ok
}
