package services

import (
	"sync"
	"time"
)

// Change event kinds
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// TableExpedientes is the table name change-feed subscribers watch.
const TableExpedientes = "expedientes"

// ChangeEvent is a row-level change notification, mirroring what the
// hosted platform pushes to connected sessions.
type ChangeEvent struct {
	Table string
	Kind  string
	RowID string
}

type feedSubscriber struct {
	table string
	ch    chan ChangeEvent
}

// ChangeFeed broadcasts row-change events to subscribed sessions. The
// persistence layer publishes after every successful mutation, so every
// session observes changes made by any session.
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]feedSubscriber
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[int]feedSubscriber)}
}

// Subscribe registers interest in one table's events. The returned
// cancel func tears the subscription down; it is safe to call twice.
func (f *ChangeFeed) Subscribe(table string) (<-chan ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := feedSubscriber{table: table, ch: make(chan ChangeEvent, 16)}
	f.subs[id] = sub

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber of its table. Sends
// never block: a subscriber with a full buffer misses the event, which
// is harmless because consumers coalesce into a single refresh anyway.
func (f *ChangeFeed) Publish(ev ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.table != ev.Table {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Debouncer coalesces a burst of triggers into a single call to fn
// after the quiet window elapses. The timer resets on each trigger.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	fn      func()
	stopped bool
}

// DefaultDebounceWindow is the refresh coalescing window.
const DefaultDebounceWindow = 100 * time.Millisecond

func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules (or reschedules) the debounced call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels any pending call and disables further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
