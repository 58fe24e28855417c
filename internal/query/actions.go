package query

import "github.com/roach88/tracescope/internal/action"

// Namespace of every query action.
const Namespace = "query"

// SubscribeCommand asks for a query to be kept alive under SubscriberKey.
type SubscribeCommand struct {
	QueryKey      string `json:"queryKey"`
	Args          any    `json:"args,omitempty"`
	SubscriberKey string `json:"subscriberKey"`
}

// UnsubscribeCommand releases one subscription.
type UnsubscribeCommand struct {
	QueryHash     string `json:"queryHash"`
	SubscriberKey string `json:"subscriberKey"`
}

// HashCommand targets one cache entry.
type HashCommand struct {
	QueryHash string `json:"queryHash"`
}

// Subscribed is published when a subscription is recorded.
type Subscribed struct {
	QueryHash     string `json:"queryHash"`
	QueryKey      string `json:"queryKey"`
	Args          any    `json:"args,omitempty"`
	SubscriberKey string `json:"subscriberKey"`
}

// Unsubscribed is published when a subscription is dropped.
type Unsubscribed struct {
	QueryHash     string `json:"queryHash"`
	SubscriberKey string `json:"subscriberKey"`
}

// Started is published when a fetch begins.
type Started struct {
	QueryHash string `json:"queryHash"`
}

// Completed carries fetched data.
type Completed struct {
	QueryHash string `json:"queryHash"`
	Data      any    `json:"data"`
}

// Failed carries a fetch error message.
type Failed struct {
	QueryHash string `json:"queryHash"`
	Error     string `json:"error"`
}

// HashEvent is published for events that only name the entry.
type HashEvent struct {
	QueryHash string `json:"queryHash"`
}

var (
	actions = action.NewSet(Namespace)

	SubscribeQuery   = action.Define[SubscribeCommand](actions, "subscribeQuery")
	UnsubscribeQuery = action.Define[UnsubscribeCommand](actions, "unsubscribeQuery")
	FetchQuery       = action.Define[HashCommand](actions, "fetchQuery")
	InvalidateQuery  = action.Define[HashCommand](actions, "invalidateQuery")
	CancelQuery      = action.Define[HashCommand](actions, "cancelQuery")

	QuerySubscribed   = action.Define[Subscribed](actions, "querySubscribed")
	QueryUnsubscribed = action.Define[Unsubscribed](actions, "queryUnsubscribed")
	QueryStarted      = action.Define[Started](actions, "queryStarted")
	QueryCompleted    = action.Define[Completed](actions, "queryCompleted")
	QueryFailed       = action.Define[Failed](actions, "queryFailed")
	QueryCancelled    = action.Define[HashEvent](actions, "queryCancelled")
	QueryInvalidated  = action.Define[HashEvent](actions, "queryInvalidated")
	QueryCollected    = action.Define[HashEvent](actions, "queryCollected")
)

// Actions returns the declared query action names.
func Actions() []string {
	return actions.Names()
}
