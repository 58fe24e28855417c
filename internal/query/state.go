package query

import (
	"github.com/roach88/tracescope/internal/selector"
	"github.com/roach88/tracescope/internal/store"
)

// Status is the lifecycle stage of a cache entry.
type Status string

const (
	StatusInitial  Status = "initial"
	StatusFetching Status = "fetching"
	StatusIdle     Status = "idle"
	StatusError    Status = "error"
)

// Entry is one cached query. Entries are immutable; transitions replace
// them.
type Entry struct {
	Hash        string
	Key         string
	Args        any
	Status      Status
	Data        any
	Error       string
	Stale       bool
	HasData     bool
	Subscribers map[string]struct{}
}

// SubscriberCount returns the number of live subscriptions.
func (e *Entry) SubscriberCount() int {
	if e == nil {
		return 0
	}
	return len(e.Subscribers)
}

// State is the query store state.
type State struct {
	Entries map[string]*Entry
}

func initialState() State {
	return State{Entries: map[string]*Entry{}}
}

func update(draft *State, hash string, fn func(e *Entry)) {
	cur, ok := draft.Entries[hash]
	if !ok {
		return
	}
	next := *cur
	fn(&next)
	draft.Entries = store.SetKey(draft.Entries, hash, &next)
}

func setup(s *store.Store[State]) {
	store.On(s, QuerySubscribed, func(draft *State, p Subscribed) error {
		e, ok := draft.Entries[p.QueryHash]
		if !ok {
			e = &Entry{
				Hash:        p.QueryHash,
				Key:         p.QueryKey,
				Args:        p.Args,
				Status:      StatusInitial,
				Subscribers: map[string]struct{}{},
			}
		}
		next := *e
		next.Subscribers = store.SetKey(e.Subscribers, p.SubscriberKey, struct{}{})
		draft.Entries = store.SetKey(draft.Entries, p.QueryHash, &next)
		return nil
	})
	store.On(s, QueryUnsubscribed, func(draft *State, p Unsubscribed) error {
		update(draft, p.QueryHash, func(e *Entry) {
			e.Subscribers = store.DeleteKey(e.Subscribers, p.SubscriberKey)
		})
		return nil
	})
	store.On(s, QueryStarted, func(draft *State, p Started) error {
		update(draft, p.QueryHash, func(e *Entry) {
			e.Status = StatusFetching
		})
		return nil
	})
	store.On(s, QueryCompleted, func(draft *State, p Completed) error {
		update(draft, p.QueryHash, func(e *Entry) {
			e.Status = StatusIdle
			e.Data = p.Data
			e.HasData = true
			e.Error = ""
			e.Stale = false
		})
		return nil
	})
	store.On(s, QueryFailed, func(draft *State, p Failed) error {
		update(draft, p.QueryHash, func(e *Entry) {
			e.Status = StatusError
			e.Error = p.Error
		})
		return nil
	})
	store.On(s, QueryCancelled, func(draft *State, p HashEvent) error {
		update(draft, p.QueryHash, func(e *Entry) {
			if e.HasData {
				e.Status = StatusIdle
			} else {
				e.Status = StatusInitial
			}
		})
		return nil
	})
	store.On(s, QueryInvalidated, func(draft *State, p HashEvent) error {
		update(draft, p.QueryHash, func(e *Entry) {
			e.Stale = true
		})
		return nil
	})
	store.On(s, QueryCollected, func(draft *State, p HashEvent) error {
		draft.Entries = store.DeleteKey(draft.Entries, p.QueryHash)
		return nil
	})
}

// Store is the query cache store.
var Store = store.Define(Namespace, initialState, setup)

var (
	// EntrySelector returns the entry for a hash, or nil.
	EntrySelector = store.NewStoreSelector1(Store, func(s State, hash string) *Entry {
		return s.Entries[hash]
	})

	// StatusSelector returns the status for a hash; absent entries are
	// reported as initial.
	StatusSelector = store.NewSuperSelector1([]store.Dep{EntrySelector}, func(ctx *selector.Context, hash string) Status {
		e := EntrySelector.Select(ctx, hash)
		if e == nil {
			return StatusInitial
		}
		return e.Status
	})
)
