// Package events carries collection change notifications from writers to
// subscribers. Publishing is optional: services work the same with Nop.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Op is the kind of change applied to a record
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Collection names
const (
	Users           = "users"
	Courses         = "courses"
	Products        = "products"
	Orders          = "orders"
	Notifications   = "notifications"
	AccessLevels    = "accessLevels"
	Timers          = "timers"
	DiscountPresets = "discountPresets"
	PromoCodes      = "promoCodes"
	Currencies      = "currencies"
)

// Change describes one record change
type Change struct {
	Collection string    `json:"collection"`
	Op         Op        `json:"op"`
	ID         uint      `json:"id"`
	At         time.Time `json:"at"`
}

// Notifier publishes changes. Implementations must not block the writer for long.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// Nop discards every change
type Nop struct{}

func (Nop) Notify(context.Context, Change) error { return nil }

// NewChange stamps a change with the current time
func NewChange(collection string, op Op, id uint) Change {
	return Change{Collection: collection, Op: op, ID: id, At: time.Now().UTC()}
}

func encode(c Change) (string, error) {
	b, err := json.Marshal(c)
	return string(b), err
}

func decode(payload string) (Change, error) {
	var c Change
	err := json.Unmarshal([]byte(payload), &c)
	return c, err
}
