// Package quota implements per-organization resource limits: the quota type
// catalog, per-org limit overrides, the concurrency-safe usage ledger, and the
// guard that business operations call to check and consume quota atomically.
package quota

import (
	"strconv"
	"time"
)

// Limit is a quota ceiling. Unbounded lifts the ceiling entirely; it is an
// explicit sentinel, never encoded as a negative value.
type Limit struct {
	Value     int64 `json:"value"`
	Unbounded bool  `json:"unbounded"`
}

// Bounded returns a limit with the given ceiling.
func Bounded(value int64) Limit {
	return Limit{Value: value}
}

// Unlimited returns the unbounded sentinel limit.
func Unlimited() Limit {
	return Limit{Unbounded: true}
}

// Reached reports whether usage has reached the limit.
func (l Limit) Reached(usage int64) bool {
	return !l.Unbounded && usage >= l.Value
}

// WouldExceed reports whether applying amount on top of usage would pass the limit.
func (l Limit) WouldExceed(usage, amount int64) bool {
	return !l.Unbounded && usage+amount > l.Value
}

// String renders the limit for logs and journal entries.
func (l Limit) String() string {
	if l.Unbounded {
		return "unbounded"
	}
	return strconv.FormatInt(l.Value, 10)
}

// Outcome is the result of an increment attempt. It is only meaningful when
// the accompanying error is nil.
type Outcome int

const (
	// Rejected means the increment was refused because it would pass the limit.
	Rejected Outcome = iota
	// Applied means the increment was accepted and durably recorded.
	Applied
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "rejected"
}

// Definition describes one catalog entry.
type Definition struct {
	Name         string
	Description  string
	Default      Limit
	TimeWindowed bool
	Window       time.Duration
}

// QuotaStatus is one row of the per-organization quota overview.
type QuotaStatus struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	EffectiveLimit Limit  `json:"effective_limit"`
	CurrentUsage   int64  `json:"current_usage"`
	Reached        bool   `json:"reached"`
}
