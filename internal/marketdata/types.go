// Package marketdata holds the value types shared by every layer of the
// subscription manager: ticker specs, the closed set of data types, the
// desired-subscription set, and the events published to the event bus.
package marketdata

import "fmt"

// DataType tags the kind of feed a Subscription asks for. The set is closed;
// new members require a new case everywhere a switch dispatches on it.
type DataType int

const (
	Ticker DataType = iota
	OrderBook
	Trades
	OpenOrders
	TradeHistory
)

func (t DataType) String() string {
	switch t {
	case Ticker:
		return "TICKER"
	case OrderBook:
		return "ORDER_BOOK"
	case Trades:
		return "TRADES"
	case OpenOrders:
		return "OPEN_ORDERS"
	case TradeHistory:
		return "USER_TRADE_HISTORY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Streaming reports whether this data type is one a streaming exchange
// pushes over its connection, as opposed to one only ever polled.
func (t DataType) Streaming() bool {
	switch t {
	case Ticker, OrderBook, Trades:
		return true
	default:
		return false
	}
}

// TickerSpec identifies a single market on a single exchange. Two specs
// with equal fields are the same market: comparison is structural, so
// TickerSpec is safe to use as a map key or in a set.
type TickerSpec struct {
	Exchange string
	Base     string
	Counter  string
}

// CurrencyPair renders the base/counter pair the way adapters expect it,
// e.g. "BTC/USDT".
func (s TickerSpec) CurrencyPair() string {
	return s.Base + "/" + s.Counter
}

func (s TickerSpec) String() string {
	return fmt.Sprintf("%s:%s", s.Exchange, s.CurrencyPair())
}

// Subscription is a single desired feed: one data type on one market.
type Subscription struct {
	Spec TickerSpec
	Type DataType
}

func (s Subscription) String() string {
	return fmt.Sprintf("%s/%s", s.Spec, s.Type)
}

// SubscriptionSet is an immutable, structurally-equal set of subscriptions.
// The zero value is the empty set. Construct with NewSubscriptionSet;
// once built, a SubscriptionSet is never mutated in place.
type SubscriptionSet struct {
	members map[Subscription]struct{}
}

// NewSubscriptionSet collapses duplicates and returns an immutable set.
func NewSubscriptionSet(subs ...Subscription) SubscriptionSet {
	members := make(map[Subscription]struct{}, len(subs))
	for _, s := range subs {
		members[s] = struct{}{}
	}
	return SubscriptionSet{members: members}
}

// Len returns the number of distinct subscriptions in the set.
func (s SubscriptionSet) Len() int {
	return len(s.members)
}

// Contains reports whether sub is a member of the set.
func (s SubscriptionSet) Contains(sub Subscription) bool {
	_, ok := s.members[sub]
	return ok
}

// Each calls fn once per member in unspecified order.
func (s SubscriptionSet) Each(fn func(Subscription)) {
	for sub := range s.members {
		fn(sub)
	}
}

// Equal reports structural equality: same members, regardless of how each
// set was built.
func (s SubscriptionSet) Equal(other SubscriptionSet) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for sub := range s.members {
		if _, ok := other.members[sub]; !ok {
			return false
		}
	}
	return true
}

// ByExchange groups the set's members by TickerSpec.Exchange, mirroring the
// reconciliation engine's first grouping step.
func (s SubscriptionSet) ByExchange() map[string]SubscriptionSet {
	byExchange := make(map[string][]Subscription)
	for sub := range s.members {
		byExchange[sub.Spec.Exchange] = append(byExchange[sub.Spec.Exchange], sub)
	}
	result := make(map[string]SubscriptionSet, len(byExchange))
	for exchange, subs := range byExchange {
		result[exchange] = NewSubscriptionSet(subs...)
	}
	return result
}

// Filter returns the subset of members for which keep returns true.
func (s SubscriptionSet) Filter(keep func(Subscription) bool) SubscriptionSet {
	var kept []Subscription
	for sub := range s.members {
		if keep(sub) {
			kept = append(kept, sub)
		}
	}
	return NewSubscriptionSet(kept...)
}

// Union returns a new set containing the members of both sets.
func (s SubscriptionSet) Union(other SubscriptionSet) SubscriptionSet {
	merged := make([]Subscription, 0, len(s.members)+len(other.members))
	for sub := range s.members {
		merged = append(merged, sub)
	}
	for sub := range other.members {
		merged = append(merged, sub)
	}
	return NewSubscriptionSet(merged...)
}
