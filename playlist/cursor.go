package playlist

import (
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// indicates that no item has been selected yet
const positionNone = -1

// Option configures a Cursor.
type Option func(*Cursor)

// WithClock sets the time source used for schedule checks.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cursor) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRandom sets the source of random indexes. intn must return a value in
// [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(c *Cursor) {
		if intn != nil {
			c.intn = intn
		}
	}
}

// Cursor walks an immutable list of items, skipping the ones that are
// currently off schedule. It is owned by a single control loop and is not
// safe for concurrent use.
type Cursor struct {
	items        []Item
	random       bool
	index        int
	newIteration bool

	clock clockwork.Clock
	intn  func(n int) int
}

// New creates a cursor over items. The slice is copied.
func New(items []Item, random bool, opts ...Option) *Cursor {
	c := &Cursor{
		items:        append([]Item(nil), items...),
		random:       random,
		index:        positionNone,
		newIteration: true,
		clock:        clockwork.NewRealClock(),
		intn:         rand.Intn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromPaths creates a cursor from parallel path and restriction lists.
// Extra entries in the longer list are ignored.
func NewFromPaths(paths []string, restrictions []Restriction, random bool, opts ...Option) *Cursor {
	n := len(paths)
	if len(restrictions) < n {
		n = len(restrictions)
	}
	items := make([]Item, n)
	for i := 0; i < n; i++ {
		items[i] = Item{Path: paths[i], Restriction: restrictions[i]}
	}
	return New(items, random, opts...)
}

// Len returns the number of items.
func (c *Cursor) Len() int {
	return len(c.items)
}

// Random reports whether the cursor draws items at random.
func (c *Cursor) Random() bool {
	return c.random
}

// Item returns the item at index, or nil when out of range.
func (c *Cursor) Item(index int) *Item {
	if index < 0 || index >= len(c.items) {
		return nil
	}
	return &c.items[index]
}

// Items returns a copy of all items.
func (c *Cursor) Items() []Item {
	return append([]Item(nil), c.items...)
}

// IsOnSchedule reports whether the item at index may be shown right now.
func (c *Cursor) IsOnSchedule(index int) bool {
	if index < 0 || index >= len(c.items) {
		return false
	}
	return c.items[index].Restriction.Allows(c.clock.Now())
}

// Next moves the cursor to the next item that is on schedule and returns it.
// In random mode the starting point is drawn at random; the search for an
// on-schedule item always moves forward. Returns nil when nothing can play.
func (c *Cursor) Next() *Item {
	length := len(c.items)
	if length == 0 {
		return nil
	}

	if c.random {
		c.index = c.intn(length)
	} else if c.index == positionNone {
		c.index = 0
		c.newIteration = true
	} else {
		c.index++
		if c.index >= length {
			c.index = 0
			c.newIteration = true
		}
	}

	if c.IsOnSchedule(c.index) {
		return &c.items[c.index]
	}

	pos, found, wraps := scanForward(c.index, length, c.IsOnSchedule)
	c.index = pos
	if wraps > 0 {
		c.newIteration = true
	}
	if !found {
		return nil
	}
	return &c.items[pos]
}

// Peek returns the item Next would return in sequential mode without moving
// the cursor. Returns nil in random mode or before the first Next.
func (c *Cursor) Peek() *Item {
	length := len(c.items)
	if length == 0 || c.random || c.index == positionNone {
		return nil
	}

	next := c.index + 1
	if next >= length {
		next = 0
	}
	if c.IsOnSchedule(next) {
		return &c.items[next]
	}

	pos, found, _ := scanForward(next, length, c.IsOnSchedule)
	if !found {
		return nil
	}
	return &c.items[pos]
}

// Prev steps the cursor back so that the following Next lands on the
// previous on-schedule item, and returns the item the cursor now points at.
//
// With two items the schedule is ignored and the other slot's item is
// returned. When the step back crosses the start of the list the cursor is
// moved to the last position and nil is returned for that call.
func (c *Cursor) Prev() *Item {
	length := len(c.items)
	if length == 0 || c.random || c.index == positionNone || length == 1 {
		return nil
	}

	if length == 2 {
		if c.index == 0 {
			c.index = 1
			return &c.items[0]
		}
		c.index = 0
		return &c.items[1]
	}

	prev := c.index - 1
	if prev < 0 {
		prev = length - 1
	}

	if !c.IsOnSchedule(prev) {
		var found bool
		prev, found = scanBackward(prev, length, c.IsOnSchedule)
		if !found {
			return nil
		}
	}

	prev2 := prev - 1
	if prev2 < 0 {
		c.index = length - 1
		return nil
	}
	c.index = prev2
	return &c.items[c.index]
}

// CurrentIndex returns the index of the current item, or -1 when the list
// is empty or nothing has been selected yet.
func (c *Cursor) CurrentIndex() int {
	if len(c.items) == 0 {
		return -1
	}
	return c.index
}

// IsNewIteration reports whether the cursor wrapped back to the first item
// since the last AcknowledgeIteration.
func (c *Cursor) IsNewIteration() bool {
	return c.newIteration
}

// AcknowledgeIteration clears the new iteration flag.
func (c *Cursor) AcknowledgeIteration() {
	c.newIteration = false
}

// ScreenTime returns how long the item at index should stay on screen. The
// second value is false when no duration is configured.
func (c *Cursor) ScreenTime(index int) (time.Duration, bool) {
	item := c.Item(index)
	if item == nil || item.Restriction.ScreenTime == nil || *item.Restriction.ScreenTime <= 0 {
		return 0, false
	}
	return time.Duration(*item.Restriction.ScreenTime) * time.Second, true
}

// SendFeedback reports whether plays of the item at index should be
// recorded. Defaults to true.
func (c *Cursor) SendFeedback(index int) bool {
	item := c.Item(index)
	if item == nil || item.Restriction.SendFeedback == nil {
		return true
	}
	return *item.Restriction.SendFeedback
}

// OnlyOneActive reports whether exactly one item is on schedule.
func (c *Cursor) OnlyOneActive() bool {
	active := 0
	for i := range c.items {
		if c.IsOnSchedule(i) {
			active++
			if active >= 2 {
				break
			}
		}
	}
	return active == 1
}
